package audio

import (
	"context"
	"fmt"
	"strings"
)

// Selection is the resolved capture source. Warning is set when a fallback was used.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// SelectDevice resolves the audio.input and audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return choose(devices, input, fallback)
}

func choose(devices []Device, input, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("%w: sound server reports no sources", ErrNoInputDevice)
	}

	input = normalizePreference(input)
	fallback = normalizePreference(fallback)

	primary, err := resolve(devices, input, "audio.input")
	if err != nil {
		return Selection{}, err
	}
	if primary.Usable() {
		return Selection{Device: primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	backup, err := resolve(devices, fallback, "audio.fallback")
	if err != nil {
		return Selection{}, fmt.Errorf("input %q is %s and no fallback: %w", primary.ID, reason, err)
	}
	if !backup.Usable() {
		return Selection{}, fmt.Errorf("%w: input %q is %s and fallback %q is not usable", ErrNoInputDevice, primary.ID, reason, backup.ID)
	}

	return Selection{
		Device:   backup,
		Warning:  fmt.Sprintf("input %q is %s; using %q", primary.ID, reason, backup.ID),
		Fallback: primary.ID != backup.ID,
	}, nil
}

// resolve finds the device for one preference; "" means the server default.
func resolve(devices []Device, preference, key string) (Device, error) {
	for _, device := range devices {
		if preference == "" && device.Default {
			return device, nil
		}
		if preference != "" && matches(device, preference) {
			return device, nil
		}
	}
	if preference == "" {
		return Device{}, fmt.Errorf("%w: default source is unavailable", ErrNoInputDevice)
	}
	return Device{}, fmt.Errorf("%w: %s %q did not match any device", ErrNoInputDevice, key, preference)
}

func normalizePreference(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "default" {
		return ""
	}
	return value
}

func matches(device Device, term string) bool {
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}
