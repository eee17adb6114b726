package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/UnifiedAI-ONeID/verbatim/internal/api/handlers"
	"github.com/UnifiedAI-ONeID/verbatim/internal/api/middleware"
)

type Deps struct {
	Auth    *handlers.AuthHandler
	Session *handlers.SessionHandler
	Action  *handlers.ActionHandler
	Capture *handlers.CaptureHandler
	Pip     *handlers.PipHandler
	Watch   *handlers.WatchHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/auth/register", d.Auth.Register)
	r.POST("/auth/login", d.Auth.Login)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.GET("/me", d.Auth.Me)
	auth.PUT("/me/preferences", d.Auth.UpdatePreferences)
	auth.GET("/me/digests", d.Session.Digests)

	auth.GET("/sessions", d.Session.List)
	auth.GET("/sessions/:session_id", d.Session.Get)
	auth.DELETE("/sessions/:session_id", d.Session.Delete)
	auth.PUT("/sessions/:session_id/speakers", d.Session.RenameSpeaker)
	auth.GET("/sessions/:session_id/export", d.Session.Export)
	auth.GET("/sessions/:session_id/audio", d.Session.AudioURL)
	auth.POST("/sessions/:session_id/reanalyze", d.Session.Reanalyze)

	auth.POST("/sessions/:session_id/actions/suggest", d.Action.Suggest)
	auth.GET("/sessions/:session_id/actions", d.Action.History)

	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/sessions/:session_id", d.Session.AdminGet)

	// WebSocket
	auth.GET("/ws/capture", d.Capture.CaptureWS)
	auth.GET("/ws/pip", d.Pip.PipWS)
	auth.GET("/ws/sessions", d.Watch.SessionsWS)
}
