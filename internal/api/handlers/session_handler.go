package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"github.com/UnifiedAI-ONeID/verbatim/internal/services"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
	"github.com/UnifiedAI-ONeID/verbatim/internal/workers"
)

type SessionHandler struct {
	svc   services.SessionService
	redis *redis.Client
}

func NewSessionHandler(svc services.SessionService, rdb *redis.Client) *SessionHandler {
	return &SessionHandler{svc: svc, redis: rdb}
}

func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessions, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// authorize loads the session and checks ownership.
func (h *SessionHandler) authorize(c *gin.Context, op string) (*models.Session, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return nil, false
	}

	sess, err := h.svc.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if sess.OwnerID != userID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.authorize(c, "SessionHandler.Get")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	sess, ok := h.authorize(c, "SessionHandler.Delete")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), sess.SessionID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type RenameSpeakerRequest struct {
	Label string `json:"label" binding:"required"` // ex: "Speaker 1"
	Name  string `json:"name" binding:"required"`  // ex: "Alex"
}

func (h *SessionHandler) RenameSpeaker(c *gin.Context) {
	sess, ok := h.authorize(c, "SessionHandler.RenameSpeaker")
	if !ok {
		return
	}

	var req RenameSpeakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.RenameSpeaker", "invalid request body", err))
		return
	}

	if err := h.svc.RenameSpeaker(c.Request.Context(), sess.SessionID, req.Label, req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Export(c *gin.Context) {
	sess, ok := h.authorize(c, "SessionHandler.Export")
	if !ok {
		return
	}

	md, err := h.svc.ExportMarkdown(c.Request.Context(), sess.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+sess.SessionID+`.md"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

func (h *SessionHandler) AudioURL(c *gin.Context) {
	sess, ok := h.authorize(c, "SessionHandler.AudioURL")
	if !ok {
		return
	}

	url, err := h.svc.AudioURL(c.Request.Context(), sess.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *SessionHandler) Digests(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	digests, err := h.svc.ListDigests(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"digests": digests})
}

// AdminGet looks up any session regardless of owner. Routed behind the admin
// role check.
func (h *SessionHandler) AdminGet(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Reanalyze enqueues a user-initiated retry for a stored recording. There is
// no automatic retry anywhere; this is the explicit path.
func (h *SessionHandler) Reanalyze(c *gin.Context) {
	sess, ok := h.authorize(c, "SessionHandler.Reanalyze")
	if !ok {
		return
	}
	if sess.AudioRef == "" {
		writeError(c, utils.E(utils.CodeFailedPrecondition, "SessionHandler.Reanalyze", "session has no stored audio", nil))
		return
	}

	if err := workers.EnqueueReanalysis(c.Request.Context(), h.redis, sess.OwnerID, sess.SessionID, sess.Locale); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, "SessionHandler.Reanalyze", "failed to enqueue reanalysis", err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": sess.SessionID, "status": models.SessionProcessing})
}
