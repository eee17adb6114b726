package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/UnifiedAI-ONeID/verbatim/internal/services"
	"github.com/UnifiedAI-ONeID/verbatim/internal/utils"
)

type ActionHandler struct {
	svc      services.ActionService
	sessions services.SessionService
}

func NewActionHandler(svc services.ActionService, sessions services.SessionService) *ActionHandler {
	return &ActionHandler{svc: svc, sessions: sessions}
}

type SuggestActionRequest struct {
	ActionItem string `json:"action_item" binding:"required"`
}

type SuggestActionResponse struct {
	ToolName  string         `json:"tool_name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	NoAction  bool           `json:"no_action"`
}

func (h *ActionHandler) Suggest(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.OwnerID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "ActionHandler.Suggest", "forbidden", nil))
		return
	}

	var req SuggestActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ActionHandler.Suggest", "invalid request body", err))
		return
	}

	tc, err := h.svc.Suggest(c.Request.Context(), userID, sessionID, req.ActionItem)
	if err != nil {
		writeError(c, err)
		return
	}

	if tc == nil {
		c.JSON(http.StatusOK, SuggestActionResponse{NoAction: true})
		return
	}
	c.JSON(http.StatusOK, SuggestActionResponse{ToolName: tc.Name, Arguments: tc.Arguments})
}

func (h *ActionHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	invocations, err := h.svc.History(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invocations": invocations})
}
