package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/UnifiedAI-ONeID/verbatim/internal/cache"
	"github.com/UnifiedAI-ONeID/verbatim/internal/export"
	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	mongorepo "github.com/UnifiedAI-ONeID/verbatim/internal/repositories/mongo"
	pgrepo "github.com/UnifiedAI-ONeID/verbatim/internal/repositories/postgres"
	"github.com/UnifiedAI-ONeID/verbatim/internal/storage"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

// SessionService is the session store adapter the rest of the system
// consumes. Create/Update/Delete double as the recorder controller's store
// ports; every mutation invalidates the list cache and notifies watchers.
type SessionService interface {
	Create(ctx context.Context, s *models.Session) error
	Update(ctx context.Context, sessionID string, fields map[string]any) error
	Delete(ctx context.Context, sessionID string) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	List(ctx context.Context, ownerID string) ([]models.Session, error)
	RenameSpeaker(ctx context.Context, sessionID, label, name string) error
	ExportMarkdown(ctx context.Context, sessionID string) (string, error)
	AudioURL(ctx context.Context, sessionID string) (string, error)
	ListDigests(ctx context.Context, userID string) ([]models.MeetingDigest, error)
}

type sessionService struct {
	sessions mongorepo.SessionRepository
	digests  pgrepo.DigestRepository
	blobs    storage.BlobStore
	cache    cache.Cache
	events   EventPublisher
	log      *logrus.Logger

	listTTL time.Duration
}

func NewSessionService(
	sessions mongorepo.SessionRepository,
	digests pgrepo.DigestRepository,
	blobs storage.BlobStore,
	c cache.Cache,
	events EventPublisher,
	log *logrus.Logger,
) SessionService {
	if events == nil {
		events = NopEventPublisher{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &sessionService{
		sessions: sessions,
		digests:  digests,
		blobs:    blobs,
		cache:    c,
		events:   events,
		log:      log,
		listTTL:  30 * time.Second,
	}
}

func (s *sessionService) Create(ctx context.Context, sess *models.Session) error {
	const op = "SessionService.Create"

	if sess.SessionID == "" || sess.OwnerID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id and owner_id are required", nil)
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	s.invalidateList(ctx, sess.OwnerID)
	_ = s.events.Publish(ctx, sess.OwnerID, SessionEvent{
		Type: EventSessionCreated, SessionID: sess.SessionID, Status: sess.Status,
	})
	return nil
}

func (s *sessionService) Update(ctx context.Context, sessionID string, fields map[string]any) error {
	const op = "SessionService.Update"

	if sessionID == "" || len(fields) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "session_id and fields are required", nil)
	}
	if err := s.sessions.Update(ctx, sessionID, fields); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to update session", err)
	}

	sess, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		// updated but unreadable; watchers will catch up on the next event
		s.log.WithError(err).WithField("session_id", sessionID).Warn("post-update read failed")
		return nil
	}

	if sess.Status == models.SessionCompleted {
		s.upsertDigest(ctx, sess)
	}

	s.invalidateList(ctx, sess.OwnerID)
	_ = s.events.Publish(ctx, sess.OwnerID, SessionEvent{
		Type: EventSessionUpdated, SessionID: sessionID, Status: sess.Status,
	})
	return nil
}

// Delete removes the session record, its stored audio blob, and its digest
// row. The blob must not outlive the session.
func (s *sessionService) Delete(ctx context.Context, sessionID string) error {
	const op = "SessionService.Delete"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	sess, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load session", err)
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeInternal, op, "failed to delete session", err)
	}

	if sess.AudioRef != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, storage.AudioObjectName(sess.OwnerID, sessionID)); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("audio blob delete failed")
		}
	}
	if s.digests != nil {
		if err := s.digests.Delete(ctx, sessionID); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("digest delete failed")
		}
	}

	s.invalidateList(ctx, sess.OwnerID)
	_ = s.events.Publish(ctx, sess.OwnerID, SessionEvent{
		Type: EventSessionDeleted, SessionID: sessionID,
	})
	return nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) List(ctx context.Context, ownerID string) ([]models.Session, error) {
	const op = "SessionService.List"

	if ownerID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "owner_id is required", nil)
	}

	key := cache.SessionListKey(ownerID)
	if s.cache != nil {
		var cached []models.Session
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	out, err := s.sessions.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, out, s.listTTL)
	}
	return out, nil
}

// RenameSpeaker maps a speaker label to a display name. The stored
// transcript keeps its label tokens; substitution happens at render time, so
// repeating the rename is a no-op.
func (s *sessionService) RenameSpeaker(ctx context.Context, sessionID, label, name string) error {
	const op = "SessionService.RenameSpeaker"

	if sessionID == "" || label == "" || name == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id, label, and name are required", nil)
	}

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, ok := sess.Speakers[label]; !ok {
		return utils.E(utils.CodeNotFound, op, "unknown speaker label", nil)
	}

	return s.Update(ctx, sessionID, map[string]any{"speakers." + label: name})
}

func (s *sessionService) ExportMarkdown(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return export.Markdown(sess), nil
}

func (s *sessionService) AudioURL(ctx context.Context, sessionID string) (string, error) {
	const op = "SessionService.AudioURL"

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess.AudioRef == "" {
		return "", utils.E(utils.CodeNotFound, op, "session has no stored audio", nil)
	}
	url, err := s.blobs.SignedGetURL(ctx, storage.AudioObjectName(sess.OwnerID, sessionID), 15*time.Minute)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to sign audio url", err)
	}
	return url, nil
}

// ListDigests serves the compact completed-meeting read model without
// touching the session documents.
func (s *sessionService) ListDigests(ctx context.Context, userID string) ([]models.MeetingDigest, error) {
	const op = "SessionService.ListDigests"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if s.digests == nil {
		return []models.MeetingDigest{}, nil
	}
	out, err := s.digests.ListByUser(ctx, userID, 50)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list digests", err)
	}
	return out, nil
}

func (s *sessionService) upsertDigest(ctx context.Context, sess *models.Session) {
	if s.digests == nil || sess.Results == nil {
		return
	}
	speakersJSON, _ := json.Marshal(sess.Speakers)
	d := &models.MeetingDigest{
		SessionID:   sess.SessionID,
		UserID:      sess.OwnerID,
		Title:       sess.Metadata.Title,
		Summary:     sess.Results.Summary,
		ActionItems: sess.Results.ActionItems,
		Speakers:    datatypes.JSON(speakersJSON),
		CompletedAt: time.Now().UTC(),
	}
	if err := s.digests.Upsert(ctx, d); err != nil {
		s.log.WithError(err).WithField("session_id", sess.SessionID).Warn("digest upsert failed")
	}
}

func (s *sessionService) invalidateList(ctx context.Context, ownerID string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, cache.SessionListKey(ownerID))
	}
}
