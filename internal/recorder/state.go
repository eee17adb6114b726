package recorder

// State is the in-memory recorder lifecycle for one capture client. It is
// never persisted; the durable outcome lives on the Session record.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateFinalizing State = "finalizing"
	StateUploading  State = "uploading"
	StateAnalyzing  State = "analyzing"
)

// Observer is notified on every state transition and elapsed-time tick.
// Views bind to this instead of re-deriving state from scattered flags.
type Observer interface {
	StateChanged(state State, elapsedSeconds int64)
}

// ObserverFunc adapts a func to Observer.
type ObserverFunc func(state State, elapsedSeconds int64)

func (f ObserverFunc) StateChanged(state State, elapsedSeconds int64) { f(state, elapsedSeconds) }
