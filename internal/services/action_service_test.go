package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/llm"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

type stubSessions struct {
	SessionService
	session *models.Session
	err     error
}

func (s *stubSessions) Get(context.Context, string) (*models.Session, error) {
	return s.session, s.err
}

type stubGateway struct {
	tc      *llm.ToolCall
	err     error
	context string
	item    string
}

func (g *stubGateway) Analyze(context.Context, []byte, string, string, string) (*llm.Analysis, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) SuggestAction(_ context.Context, meetingContext, actionItem, _ string) (*llm.ToolCall, error) {
	g.context = meetingContext
	g.item = actionItem
	return g.tc, g.err
}

func (g *stubGateway) Close() error { return nil }

func completedSession() *models.Session {
	return &models.Session{
		SessionID: "s1",
		OwnerID:   "u1",
		Status:    models.SessionCompleted,
		Locale:    "en",
		Metadata:  models.Metadata{Title: "Budget review"},
		Speakers:  map[string]string{"Speaker 1": "Alice"},
		Results: &models.Results{
			Summary:    "Budget approved.",
			Transcript: "Speaker 1: approve it",
		},
	}
}

func TestSuggestReturnsValidatedToolCall(t *testing.T) {
	gw := &stubGateway{tc: &llm.ToolCall{
		Name: models.ToolDraftEmail,
		Arguments: map[string]any{
			"to": "alice@example.com", "subject": "Budget", "body": "Approved.",
		},
	}}
	svc := NewActionService(&stubSessions{session: completedSession()}, gw, nil, nil)

	tc, err := svc.Suggest(context.Background(), "u1", "s1", "Email Alice the decision")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if tc == nil || tc.Name != models.ToolDraftEmail {
		t.Fatalf("tool call = %#v", tc)
	}
	// meeting context carries renamed transcript, not raw labels
	if want := "Alice: approve it"; !strings.Contains(gw.context, want) {
		t.Errorf("meeting context missing %q:\n%s", want, gw.context)
	}
	if gw.item != "Email Alice the decision" {
		t.Errorf("action item = %q", gw.item)
	}
}

func TestSuggestUnknownToolMeansNoAction(t *testing.T) {
	gw := &stubGateway{tc: &llm.ToolCall{Name: "book_flight", Arguments: map[string]any{"x": 1}}}
	svc := NewActionService(&stubSessions{session: completedSession()}, gw, nil, nil)

	tc, err := svc.Suggest(context.Background(), "u1", "s1", "Book flights")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if tc != nil {
		t.Fatalf("unknown tool must yield no action, got %#v", tc)
	}
}

func TestSuggestMissingArgumentsMeansNoAction(t *testing.T) {
	gw := &stubGateway{tc: &llm.ToolCall{
		Name:      models.ToolCalendarEvent,
		Arguments: map[string]any{"title": "Sync", "date": "2025-06-02"}, // no description/time
	}}
	svc := NewActionService(&stubSessions{session: completedSession()}, gw, nil, nil)

	tc, err := svc.Suggest(context.Background(), "u1", "s1", "Schedule a follow-up")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if tc != nil {
		t.Fatalf("incomplete arguments must yield no action, got %#v", tc)
	}
}

func TestSuggestNilSuggestionPassesThrough(t *testing.T) {
	svc := NewActionService(&stubSessions{session: completedSession()}, &stubGateway{}, nil, nil)

	tc, err := svc.Suggest(context.Background(), "u1", "s1", "Think about it")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if tc != nil {
		t.Fatalf("expected no action, got %#v", tc)
	}
}

func TestSuggestRequiresCompletedSession(t *testing.T) {
	sess := completedSession()
	sess.Status = models.SessionProcessing
	sess.Results = nil
	svc := NewActionService(&stubSessions{session: sess}, &stubGateway{}, nil, nil)

	_, err := svc.Suggest(context.Background(), "u1", "s1", "Do things")
	if !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Fatalf("err = %v, want FAILED_PRECONDITION", err)
	}
}

func TestSuggestGatewayFailureIsUnavailable(t *testing.T) {
	gw := &stubGateway{err: errors.New("quota exceeded")}
	svc := NewActionService(&stubSessions{session: completedSession()}, gw, nil, nil)

	_, err := svc.Suggest(context.Background(), "u1", "s1", "Email the team")
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("err = %v, want UNAVAILABLE", err)
	}
}

func TestSuggestValidatesInput(t *testing.T) {
	svc := NewActionService(&stubSessions{session: completedSession()}, &stubGateway{}, nil, nil)

	if _, err := svc.Suggest(context.Background(), "u1", "", "item"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("empty session id: err = %v", err)
	}
	if _, err := svc.Suggest(context.Background(), "u1", "s1", "  "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("blank action item: err = %v", err)
	}
}
