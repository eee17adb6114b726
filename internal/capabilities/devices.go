package capabilities

import (
	"context"
	"sync"
)

// Device is one audio input as reported by the client. Labels are only
// non-empty once the client has been granted generic microphone access, so
// callers must request that before enumerating.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Enumerator lists the audio inputs available to a capture client.
type Enumerator interface {
	ListInputs(ctx context.Context) ([]Device, error)
}

// ClientEnumerator holds the device list from the capture handshake.
type ClientEnumerator struct {
	mu      sync.RWMutex
	devices []Device
}

func NewClientEnumerator(devices []Device) *ClientEnumerator {
	return &ClientEnumerator{devices: devices}
}

func (e *ClientEnumerator) SetDevices(devices []Device) {
	e.mu.Lock()
	e.devices = devices
	e.mu.Unlock()
}

func (e *ClientEnumerator) ListInputs(_ context.Context) ([]Device, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Device, len(e.devices))
	copy(out, e.devices)
	return out, nil
}
