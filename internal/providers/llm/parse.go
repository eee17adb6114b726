package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/UnifiedAI-ONeID/verbatim/internal/locale"
)

// StripCodeFence removes a wrapping markdown code fence if the model added
// one (```json ... ``` or plain ```).
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		// drop the language tag line ("json", "JSON", ...)
		first := strings.TrimSpace(s[:i])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseAnalysis decodes a model response into Analysis, substituting
// locale placeholders for any absent field. It never fails on missing keys,
// only on unparseable JSON.
func ParseAnalysis(raw, loc string) (*Analysis, error) {
	var a Analysis
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &a); err != nil {
		return nil, fmt.Errorf("malformed analysis response: %w", err)
	}
	if a.Summary == "" {
		a.Summary = locale.Lookup(loc, locale.KeyNoSummary)
	}
	if a.Transcript == "" {
		a.Transcript = locale.Lookup(loc, locale.KeyNoTranscript)
	}
	if a.ActionItems == nil {
		a.ActionItems = []string{}
	}
	if a.Speakers == nil {
		a.Speakers = []string{}
	}
	return &a, nil
}

// ParseToolCall decodes an action suggestion. An absent or empty toolName
// yields (nil, nil): "no action determined" is not an error.
func ParseToolCall(raw string) (*ToolCall, error) {
	var tc ToolCall
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &tc); err != nil {
		return nil, fmt.Errorf("malformed tool call response: %w", err)
	}
	if strings.TrimSpace(tc.Name) == "" {
		return nil, nil
	}
	if tc.Arguments == nil {
		tc.Arguments = map[string]any{}
	}
	return &tc, nil
}
