package capabilities

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// WakeLock keeps the client screen awake during capture. Acquire and Release
// are idempotent; an unsupported platform degrades to a logged warning.
type WakeLock interface {
	Acquire() error
	Release()
	Held() bool
}

// RelayWakeLock forwards wake-lock intent to the client over a send func
// (the capture socket). It only tracks held-ness server-side.
type RelayWakeLock struct {
	mu   sync.Mutex
	held bool

	send func(acquire bool) error
	log  *logrus.Logger
}

func NewRelayWakeLock(send func(acquire bool) error, log *logrus.Logger) *RelayWakeLock {
	return &RelayWakeLock{send: send, log: log}
}

func (w *RelayWakeLock) Acquire() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.held {
		return nil
	}
	if w.send == nil {
		if w.log != nil {
			w.log.Warn("wake lock unsupported on this client")
		}
		return nil
	}
	if err := w.send(true); err != nil {
		if w.log != nil {
			w.log.WithError(err).Warn("wake lock acquire failed")
		}
		return nil // degraded, never fatal for the session
	}
	w.held = true
	return nil
}

func (w *RelayWakeLock) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.held {
		return
	}
	w.held = false
	if w.send != nil {
		_ = w.send(false)
	}
}

func (w *RelayWakeLock) Held() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.held
}
