package llm

import "context"

// Analysis is the structured result of one analysis pass.
type Analysis struct {
	Transcript  string   `json:"transcript"`
	Summary     string   `json:"summary"`
	ActionItems []string `json:"actionItems"`
	Speakers    []string `json:"speakers"`
}

// ToolCall is a structured one-click action suggestion. Name is one of the
// models.Tool* constants; Arguments is tool-specific.
type ToolCall struct {
	Name      string         `json:"toolName"`
	Arguments map[string]any `json:"arguments"`
}

// Gateway is the generative-model boundary. Analyze turns recorded audio
// into structured results; SuggestAction maps one action item onto a tool
// call, or nil when the model determined nothing usable.
type Gateway interface {
	Analyze(ctx context.Context, audio []byte, audioRef, prompt, locale string) (*Analysis, error)
	SuggestAction(ctx context.Context, meetingContext, actionItem, locale string) (*ToolCall, error)
	Close() error
}
