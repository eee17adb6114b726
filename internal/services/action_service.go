package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/UnifiedAI-ONeID/verbatim/internal/export"
	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/llm"
	pgrepo "github.com/UnifiedAI-ONeID/verbatim/internal/repositories/postgres"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

// requiredToolArgs is the fixed argument contract per tool. A suggestion
// missing required keys is treated as "no action determined", never crashed
// on.
var requiredToolArgs = map[string][]string{
	models.ToolCalendarEvent: {"title", "description", "date", "time"},
	models.ToolDraftEmail:    {"to", "subject", "body"},
	models.ToolInvoiceEmail:  {"recipientName", "lineItemDescription", "amount", "currencySymbol"},
	models.ToolPhoneCall:     {"phoneNumber"},
	models.ToolDocument:      {"title", "content"},
}

// ActionService turns one action item into a structured tool call via the
// analysis gateway and records every invocation.
type ActionService interface {
	Suggest(ctx context.Context, userID, sessionID, actionItem string) (*llm.ToolCall, error)
	History(ctx context.Context, userID, sessionID string) ([]models.ActionInvocation, error)
}

type actionService struct {
	sessions SessionService
	gateway  llm.Gateway
	log      *logrus.Logger
	actions  pgrepo.ActionRepository
}

func NewActionService(sessions SessionService, gateway llm.Gateway, actions pgrepo.ActionRepository, log *logrus.Logger) ActionService {
	if log == nil {
		log = logrus.New()
	}
	return &actionService{sessions: sessions, gateway: gateway, actions: actions, log: log}
}

func (s *actionService) Suggest(ctx context.Context, userID, sessionID, actionItem string) (*llm.ToolCall, error) {
	const op = "ActionService.Suggest"

	if sessionID == "" || strings.TrimSpace(actionItem) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and action item are required", nil)
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionCompleted || sess.Results == nil {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "session has no analysis results yet", nil)
	}

	meetingContext := sess.Metadata.Title + "\n\n" + sess.Results.Summary + "\n\n" +
		export.ReplaceSpeakerLabels(sess.Results.Transcript, sess.Speakers)

	tc, err := s.gateway.SuggestAction(ctx, meetingContext, actionItem, sess.Locale)
	if err != nil {
		// surfaced only in the action modal; the session record is untouched
		return nil, utils.E(utils.CodeUnavailable, op, "action suggestion failed", err)
	}

	tc = s.validate(tc)
	s.record(ctx, userID, sessionID, actionItem, tc)
	return tc, nil
}

// History returns the invocation log for one session, newest first.
func (s *actionService) History(ctx context.Context, userID, sessionID string) ([]models.ActionInvocation, error) {
	const op = "ActionService.History"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and session_id are required", nil)
	}
	if s.actions == nil {
		return []models.ActionInvocation{}, nil
	}
	out, err := s.actions.ListBySession(ctx, userID, sessionID, 50)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list action invocations", err)
	}
	return out, nil
}

// validate drops suggestions with an unrecognized tool or missing required
// arguments. Returning nil means "no action determined".
func (s *actionService) validate(tc *llm.ToolCall) *llm.ToolCall {
	if tc == nil {
		return nil
	}
	required, ok := requiredToolArgs[tc.Name]
	if !ok {
		s.log.WithField("tool", tc.Name).Debug("unrecognized tool name, no action")
		return nil
	}
	for _, key := range required {
		v, ok := tc.Arguments[key]
		if !ok || v == nil || v == "" {
			s.log.WithFields(logrus.Fields{"tool": tc.Name, "missing": key}).Debug("incomplete tool arguments, no action")
			return nil
		}
	}
	return tc
}

func (s *actionService) record(ctx context.Context, userID, sessionID, actionItem string, tc *llm.ToolCall) {
	if s.actions == nil {
		return
	}
	inv := &models.ActionInvocation{
		ID:         uuid.NewString(),
		UserID:     userID,
		SessionID:  sessionID,
		ActionItem: actionItem,
		Timestamp:  time.Now().UTC(),
	}
	if tc != nil {
		inv.ToolName = tc.Name
		if b, err := json.Marshal(tc.Arguments); err == nil {
			inv.Arguments = datatypes.JSON(b)
		}
	}
	if err := s.actions.Insert(ctx, inv); err != nil {
		s.log.WithError(err).Warn("failed to record action invocation")
	}
}
