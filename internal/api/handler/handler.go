package handler

import (
	"campusconnect/backend/internal/apperrors"
	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/chat"
	"campusconnect/backend/internal/chathub"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler serves the chat REST surface and the live channel upgrade.
type Handler struct {
	Chat    *chat.Service
	Gateway *chathub.Gateway
	Tokens  *auth.TokenManager

	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHandler(chatSvc *chat.Service, gw *chathub.Gateway, tokens *auth.TokenManager, allowedOrigins []string, log *slog.Logger) *Handler {
	origins := NewOriginPolicy(allowedOrigins, log)
	return &Handler{
		Chat:    chatSvc,
		Gateway: gw,
		Tokens:  tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.Check,
		},
		log: log,
	}
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET("/ws/:id", h.ServeWebSocket)

	api := r.Group("/api/chat", h.Tokens.Middleware())
	api.POST("/groups", h.CreateGroup)
	api.GET("/groups", h.ListGroups)
	api.GET("/groups/:id", h.GetGroup)
	api.PUT("/groups/:id", h.UpdateGroup)
	api.POST("/groups/:id/members", h.AddMembers)
	api.DELETE("/groups/:id/leave", h.LeaveGroup)
	api.POST("/groups/:id/messages", h.SendMessage)
	api.GET("/groups/:id/messages", h.GetMessages)
	api.GET("/groups/:id/presence", h.Presence)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError writes the structured failure body for err.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": apperrors.PublicMessage(err),
		"code":  apperrors.Code(err),
	})
}
