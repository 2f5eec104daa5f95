package handlers

import (
	"github.com/gin-gonic/gin"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	"illyrian_project/internal/http/middleware"
	"illyrian_project/internal/realtime"
	"illyrian_project/internal/service"
)

type Handler struct {
	Accounts      *service.AccountService
	Referrals     *service.ReferralService
	Engine        *engine.Engine
	Hub           *realtime.Hub
	AllowedOrigin string
}

func NewHandler(accounts *service.AccountService, referrals *service.ReferralService, eng *engine.Engine, hub *realtime.Hub, allowedOrigin string) *Handler {
	return &Handler{
		Accounts:      accounts,
		Referrals:     referrals,
		Engine:        eng,
		Hub:           hub,
		AllowedOrigin: allowedOrigin,
	}
}

// getUserID returns the authenticated caller or writes a 401.
func getUserID(c *gin.Context) (string, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		handleError(c, domain.ErrUnauthenticated)
		return "", false
	}
	return id, true
}

// laneParam parses :lane or writes a 400.
func laneParam(c *gin.Context) (domain.Lane, bool) {
	lane, err := domain.ParseLane(c.Param("lane"))
	if err != nil {
		handleError(c, err)
		return "", false
	}
	return lane, true
}
