package export

import (
	"sort"
	"strings"

	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
)

// ReplaceSpeakerLabels substitutes every occurrence of each speaker label
// token with its display name. Labels map to themselves by default, so the
// operation is idempotent and untouched labels survive as-is. Longer labels
// are replaced first so "Speaker 1" never matches inside "Speaker 10".
func ReplaceSpeakerLabels(transcript string, speakers map[string]string) string {
	if len(speakers) == 0 {
		return transcript
	}

	labels := make([]string, 0, len(speakers))
	for label, name := range speakers {
		if name != "" && name != label {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		return transcript
	}
	sort.Slice(labels, func(i, j int) bool { return len(labels[i]) > len(labels[j]) })

	pairs := make([]string, 0, len(labels)*2)
	for _, label := range labels {
		pairs = append(pairs, label, speakers[label])
	}
	return strings.NewReplacer(pairs...).Replace(transcript)
}

// Markdown serializes a session into the export document. The five sections
// always appear in the same order; empty action items or speakers render as
// empty lists rather than dropped sections.
func Markdown(s *models.Session) string {
	var b strings.Builder

	b.WriteString("# " + s.Metadata.Title + "\n\n")

	meta := s.CreatedAt.Format("2006-01-02 15:04")
	if s.Metadata.Location != "" {
		meta += " — " + s.Metadata.Location
	}
	if s.Metadata.MapURL != "" {
		meta += " ([map](" + s.Metadata.MapURL + "))"
	}
	b.WriteString(meta + "\n\n")

	var results models.Results
	if s.Results != nil {
		results = *s.Results
	}

	b.WriteString("## Summary\n\n")
	b.WriteString(results.Summary + "\n\n")

	b.WriteString("## Action Items\n\n")
	for _, item := range results.ActionItems {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")

	b.WriteString("## Speakers\n\n")
	labels := make([]string, 0, len(s.Speakers))
	for label := range s.Speakers {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		b.WriteString("- " + s.Speakers[label] + "\n")
	}
	b.WriteString("\n")

	b.WriteString("## Transcript\n\n")
	b.WriteString(ReplaceSpeakerLabels(results.Transcript, s.Speakers) + "\n")

	return b.String()
}
