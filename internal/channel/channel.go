package channel

import (
	"context"
	"encoding/json"
)

// ChannelName is the broadcast channel the main window and the detached
// mini window share. Per-session buses suffix the session id onto it.
const ChannelName = "verbatim_pip_channel"

// Message kinds carried on the channel.
const (
	TypePipReady      = "pip_ready"      // mini -> main, once on load; asks for a snapshot
	TypeStateUpdate   = "state_update"   // main -> mini, every tick and transition
	TypeStopRecording = "stop_recording" // mini -> main
)

// Message is the wire envelope. State fields are full snapshots, not deltas,
// so out-of-order delivery across windows is harmless.
type Message struct {
	Type          string `json:"type"`
	IsRecording   bool   `json:"isRecording,omitempty"`
	RecordingTime int64  `json:"recordingTime,omitempty"` // elapsed seconds
}

func (m Message) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}

func Decode(b []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(b, &m)
	return m, err
}

// Bus is a best-effort, at-most-once broadcast channel. Delivery order is
// only FIFO per sender. Neither side owns shared state through it.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context) (<-chan Message, func())
	Close() error
}
