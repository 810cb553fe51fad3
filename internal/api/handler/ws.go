package handler

import (
	"campusconnect/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// ServeWebSocket upgrades to the live channel for group :id. The token is
// read from ?token= (browsers cannot set headers on websocket requests) or
// from a bearer Authorization header. Credential and membership checks run
// after the upgrade so failures close with a policy-violation code.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = auth.BearerToken(c.GetHeader("Authorization"))
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.Gateway.Serve(c.Request.Context(), conn, token, c.Param("id"))
}
