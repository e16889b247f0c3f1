package capture

import (
	"fmt"
	"sync"
)

// Factory builds the process-wide recognition device.
type Factory func() (Device, error)

// Manager owns the single recognition device. The device is built on the
// first Acquire and kept for the life of the process; Release only drops a
// reference.
type Manager struct {
	factory Factory

	once   sync.Once
	device Device
	err    error

	mu   sync.Mutex
	refs int
}

func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// Acquire returns the shared device and takes a reference on it.
func (m *Manager) Acquire() (Device, error) {
	device, err := m.build()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.refs++
	m.mu.Unlock()
	return device, nil
}

// Release drops one reference. The device itself is never torn down.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs > 0 {
		m.refs--
	}
}

func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Supported reports whether a device could be built, building it if needed.
func (m *Manager) Supported() bool {
	_, err := m.build()
	return err == nil
}

func (m *Manager) build() (Device, error) {
	m.once.Do(func() {
		if m.factory == nil {
			m.err = ErrUnsupported
			return
		}
		device, err := m.factory()
		switch {
		case err != nil:
			m.err = fmt.Errorf("%w: %w", ErrUnsupported, err)
		case device == nil:
			m.err = ErrUnsupported
		default:
			m.device = device
		}
	})
	return m.device, m.err
}
