package llm

import (
	"context"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/UnifiedAI-ONeID/verbatim/internal/locale"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/stt"
)

// VertexGemini implements Gateway on Vertex AI. When an STT provider is
// attached the audio goes through a transcript-first pre-pass and the model
// only sees text; otherwise the audio blob is sent inline.
type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel

	stt stt.Provider // optional
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &VertexGemini{client: c, model: c.GenerativeModel(modelName)}, nil
}

// WithSTT switches the gateway to transcript-first analysis.
func (v *VertexGemini) WithSTT(p stt.Provider) *VertexGemini {
	v.stt = p
	return v
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Analyze(ctx context.Context, audio []byte, audioRef, prompt, loc string) (*Analysis, error) {
	parts := []vertexgenai.Part{vertexgenai.Text(prompt)}

	if v.stt != nil {
		text, _, err := v.stt.Transcribe(ctx, audio, loc)
		if err != nil {
			return nil, fmt.Errorf("stt pre-pass: %w", err)
		}
		parts = append(parts, vertexgenai.Text("Transcript:\n"+text))
	} else {
		parts = append(parts, vertexgenai.Blob{MIMEType: "audio/webm", Data: audio})
	}

	raw, err := v.generate(ctx, parts...)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(raw, loc)
}

func (v *VertexGemini) SuggestAction(ctx context.Context, meetingContext, actionItem, loc string) (*ToolCall, error) {
	prompt := locale.ActionPrompt(loc) +
		"\n\nMeeting context:\n" + meetingContext +
		"\n\nAction item:\n" + actionItem

	raw, err := v.generate(ctx, vertexgenai.Text(prompt))
	if err != nil {
		return nil, err
	}
	return ParseToolCall(raw)
}

func (v *VertexGemini) generate(ctx context.Context, parts ...vertexgenai.Part) (string, error) {
	it := v.model.GenerateContentStream(ctx, parts...)

	var sb strings.Builder
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", err
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					sb.WriteString(string(t))
				}
			}
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("model returned no content")
	}
	return sb.String(), nil
}
