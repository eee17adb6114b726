package locale

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"en":    EN,
		"en-US": EN,
		"id":    ID,
		"id-ID": ID,
		"ID":    ID,
		"fr":    EN, // unsupported falls back to English
		"":      EN,
		"  en ": EN,
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLookupFallsBack(t *testing.T) {
	if got := Lookup("id", KeyTooShort); got != "Rekaman terlalu pendek untuk dianalisis." {
		t.Errorf("id lookup = %q", got)
	}
	if got := Lookup("fr", KeyTooShort); got != "Recording was too short to analyze." {
		t.Errorf("unsupported locale must fall back to English, got %q", got)
	}
	if got := Lookup("en", "no.such.key"); got != "no.such.key" {
		t.Errorf("unknown key must fall back to itself, got %q", got)
	}
}

func TestPromptsMentionContract(t *testing.T) {
	for _, loc := range []string{EN, ID} {
		p := AnalysisPrompt(loc)
		for _, key := range []string{"summary", "actionItems", "transcript", "speakers"} {
			if !strings.Contains(p, key) {
				t.Errorf("%s analysis prompt missing %q", loc, key)
			}
		}

		ap := ActionPrompt(loc)
		for _, tool := range []string{"create_calendar_event", "draft_email", "draft_invoice_email", "initiate_phone_call", "create_document"} {
			if !strings.Contains(ap, tool) {
				t.Errorf("%s action prompt missing tool %q", loc, tool)
			}
		}
	}
}
