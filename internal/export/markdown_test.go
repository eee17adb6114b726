package export

import (
	"strings"
	"testing"
	"time"

	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
)

func TestReplaceSpeakerLabels(t *testing.T) {
	transcript := "Speaker 1: hello\nSpeaker 10: hi\nSpeaker 1: bye"

	got := ReplaceSpeakerLabels(transcript, map[string]string{
		"Speaker 1":  "Alice",
		"Speaker 10": "Bob",
	})
	want := "Alice: hello\nBob: hi\nAlice: bye"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReplaceSpeakerLabelsIdentityIsNoop(t *testing.T) {
	transcript := "Speaker 1: hello"
	got := ReplaceSpeakerLabels(transcript, map[string]string{"Speaker 1": "Speaker 1"})
	if got != transcript {
		t.Errorf("identity mapping changed the transcript: %q", got)
	}
}

func TestReplaceSpeakerLabelsIsIdempotent(t *testing.T) {
	transcript := "Speaker 2: status update"
	speakers := map[string]string{"Speaker 2": "Carol"}

	once := ReplaceSpeakerLabels(transcript, speakers)
	twice := ReplaceSpeakerLabels(once, speakers)
	if once != twice {
		t.Errorf("second pass changed output: %q vs %q", once, twice)
	}
}

func TestReplaceSpeakerLabelsPartialRename(t *testing.T) {
	transcript := "Speaker 1: a\nSpeaker 2: b"
	got := ReplaceSpeakerLabels(transcript, map[string]string{
		"Speaker 1": "Dana",
		"Speaker 2": "Speaker 2",
	})
	want := "Dana: a\nSpeaker 2: b"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMarkdownSectionsAlwaysPresent(t *testing.T) {
	s := &models.Session{
		SessionID: "s1",
		Metadata:  models.Metadata{Title: "Weekly Sync"},
		CreatedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}

	out := Markdown(s)
	for _, want := range []string{"# Weekly Sync", "## Summary", "## Action Items", "## Speakers", "## Transcript"} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownSectionOrder(t *testing.T) {
	s := &models.Session{
		Metadata:  models.Metadata{Title: "T"},
		CreatedAt: time.Now(),
	}
	out := Markdown(s)

	last := -1
	for _, h := range []string{"## Summary", "## Action Items", "## Speakers", "## Transcript"} {
		i := strings.Index(out, h)
		if i < 0 {
			t.Fatalf("missing section %q", h)
		}
		if i < last {
			t.Fatalf("section %q out of order", h)
		}
		last = i
	}
}

func TestMarkdownFullExport(t *testing.T) {
	s := &models.Session{
		Metadata: models.Metadata{
			Title:    "Planning",
			Location: "Jakarta",
			MapURL:   "https://maps.example/x",
		},
		CreatedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		Speakers:  map[string]string{"Speaker 1": "Alice", "Speaker 2": "Speaker 2"},
		Results: &models.Results{
			Summary:     "Planned Q3.",
			ActionItems: []string{"Book room", "Send agenda"},
			Transcript:  "Speaker 1: let's plan\nSpeaker 2: ok",
		},
	}

	out := Markdown(s)

	if !strings.Contains(out, "2025-06-01 09:30") {
		t.Error("meta line missing date")
	}
	if !strings.Contains(out, "Jakarta ([map](https://maps.example/x))") {
		t.Error("meta line missing location link")
	}
	if !strings.Contains(out, "- Book room\n- Send agenda\n") {
		t.Error("action items not rendered as bullets")
	}
	// sorted speaker labels, display names shown
	if !strings.Contains(out, "## Speakers\n\n- Alice\n- Speaker 2\n") {
		t.Errorf("speakers section wrong:\n%s", out)
	}
	// transcript carries renamed labels
	if !strings.Contains(out, "Alice: let's plan\nSpeaker 2: ok") {
		t.Errorf("transcript not renamed:\n%s", out)
	}
}
