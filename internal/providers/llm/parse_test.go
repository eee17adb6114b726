package llm

import (
	"testing"
)

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n ", "{}"},
		{"fence on one line", "```{\"a\":1}```", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripCodeFence(tc.in); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseAnalysis(t *testing.T) {
	raw := "```json\n" + `{
		"summary": "Team agreed on launch date.",
		"actionItems": ["Email vendors"],
		"transcript": "Speaker 1: launch in July",
		"speakers": ["Speaker 1"]
	}` + "\n```"

	a, err := ParseAnalysis(raw, "en")
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if a.Summary != "Team agreed on launch date." {
		t.Errorf("summary = %q", a.Summary)
	}
	if len(a.ActionItems) != 1 || a.ActionItems[0] != "Email vendors" {
		t.Errorf("actionItems = %v", a.ActionItems)
	}
	if len(a.Speakers) != 1 || a.Speakers[0] != "Speaker 1" {
		t.Errorf("speakers = %v", a.Speakers)
	}
}

func TestParseAnalysisFillsMissingFields(t *testing.T) {
	a, err := ParseAnalysis(`{}`, "en")
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if a.Summary != "No summary available." {
		t.Errorf("summary placeholder = %q", a.Summary)
	}
	if a.Transcript != "No transcript available." {
		t.Errorf("transcript placeholder = %q", a.Transcript)
	}
	if a.ActionItems == nil || a.Speakers == nil {
		t.Error("absent arrays must decode as empty, not nil")
	}
}

func TestParseAnalysisLocalizedPlaceholders(t *testing.T) {
	a, err := ParseAnalysis(`{"transcript":"halo"}`, "id")
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if a.Summary != "Ringkasan tidak tersedia." {
		t.Errorf("summary placeholder = %q", a.Summary)
	}
	if a.Transcript != "halo" {
		t.Errorf("transcript = %q", a.Transcript)
	}
}

func TestParseAnalysisMalformed(t *testing.T) {
	if _, err := ParseAnalysis("not json at all", "en"); err == nil {
		t.Fatal("expected error for malformed response")
	}
}

func TestParseToolCall(t *testing.T) {
	tc, err := ParseToolCall(`{"toolName":"draft_email","arguments":{"to":"a@b.c","subject":"Hi","body":"..."}}`)
	if err != nil {
		t.Fatalf("ParseToolCall: %v", err)
	}
	if tc == nil || tc.Name != "draft_email" {
		t.Fatalf("tool call = %#v", tc)
	}
	if tc.Arguments["subject"] != "Hi" {
		t.Errorf("arguments = %v", tc.Arguments)
	}
}

func TestParseToolCallNoAction(t *testing.T) {
	for _, raw := range []string{`{}`, `{"toolName":""}`, `{"toolName":"  "}`, `{"arguments":{"x":1}}`} {
		tc, err := ParseToolCall(raw)
		if err != nil {
			t.Fatalf("ParseToolCall(%q): %v", raw, err)
		}
		if tc != nil {
			t.Errorf("ParseToolCall(%q) = %#v, want nil (no action)", raw, tc)
		}
	}
}

func TestParseToolCallMalformed(t *testing.T) {
	if _, err := ParseToolCall("```json\n{broken\n```"); err == nil {
		t.Fatal("expected error for malformed response")
	}
}
