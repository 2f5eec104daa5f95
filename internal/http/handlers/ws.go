package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/logger"
	"illyrian_project/internal/service"
)

// WS upgrades to a realtime session. Browsers cannot set headers on the
// handshake, so the token comes from the query.
func (h *Handler) WS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		handleError(c, domain.ErrUnauthenticated)
		return
	}

	id, err := service.ParseJWT(token)
	if err != nil {
		handleError(c, domain.ErrUnauthenticated)
		return
	}

	allowedOrigin := h.AllowedOrigin
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("ws upgrade failed", "user_id", id.UserID, "error", err)
		return
	}

	go h.Hub.Serve(id.UserID, conn)
}
