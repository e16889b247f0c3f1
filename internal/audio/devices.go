// Package audio discovers Pulse input sources and streams PCM from one of them.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const applicationName = "voicefir"

var (
	// ErrNoInputDevice reports that no usable microphone could be resolved.
	ErrNoInputDevice = errors.New("no audio input device")
	// ErrAccessDenied reports that the sound server refused microphone access.
	ErrAccessDenied = errors.New("audio input access denied")
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the device can be recorded from right now.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(applicationName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, classify("connect pulse server", err)
	}
	return client, nil
}

// ListDevices returns every Pulse input source with default and availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, classify("read default source", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, classify("list sources", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceState(info.State),
			Available:   portAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// classify maps sound-server failures onto the package sentinels while
// keeping the original error in the chain.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "permission denied"):
		return fmt.Errorf("%s: %w: %w", op, ErrAccessDenied, err)
	case strings.Contains(msg, "no such entity"), strings.Contains(msg, "no such file"),
		strings.Contains(msg, "connection refused"):
		return fmt.Errorf("%s: %w: %w", op, ErrNoInputDevice, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// portAvailable treats sources without ports, and ports in the unknown state, as available.
func portAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			// unknown=0, no=1, yes=2
			return port.Available != 1
		}
	}
	return true
}
