package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"illyrian_project/internal/config"
	"illyrian_project/internal/http/handlers"
	"illyrian_project/internal/http/middleware"
)

// wsConnectLimit caps websocket handshakes per IP and minute.
const wsConnectLimit = 30

// NewRouter builds the gin engine with every route and middleware.
func NewRouter(h *handlers.Handler, health *handlers.HealthHandler, limits config.RateLimit, allowedOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Metrics(), middleware.CORS(allowedOrigin))
	RegisterRoutes(r, h, health, limits)
	return r
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, limits config.RateLimit) {
	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(limits.API, limits.APIWindow))
	registerAPIRoutes(v1, h, limits)

	// Realtime dashboard
	r.GET("/ws", middleware.SimpleRateLimit(wsConnectLimit, time.Minute), h.WS)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, limits config.RateLimit) {
	// Public
	api.GET("/catalog", h.Catalog)
	api.GET("/users/available", h.UsernameAvailable)

	auth := api.Group("")
	auth.Use(middleware.JWT())

	// Account
	auth.POST("/signup", h.Signup)
	auth.GET("/me", h.Me)
	auth.DELETE("/me", h.DeleteMe)
	auth.PUT("/me/wallets", h.SaveWallets)
	auth.POST("/me/wallets/unlock", h.UnlockWallets)
	auth.PATCH("/me/settings", h.UpdateSettings)
	auth.GET("/me/earnings", h.Earnings)
	auth.GET("/me/activity", h.Activity)

	// Referral system
	referral := auth.Group("/referral")
	{
		referral.GET("", h.GetReferral)
		referral.POST("/apply", middleware.UserRateLimit("referral", limits.Referral, limits.ReferralWindow), h.ApplyReferral)
	}

	// Investment and mining lanes
	commitments := auth.Group("/commitments/:lane")
	{
		commitments.GET("", h.GetCommitment)
		commitments.POST("", h.StartCommitment)
		commitments.POST("/complete", h.CompleteCommitment)
		commitments.POST("/reset", h.ResetCommitment)
	}
}
