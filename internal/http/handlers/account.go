package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	"illyrian_project/internal/http/middleware"
	"illyrian_project/internal/service"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username" binding:"required"`
}

// Signup creates the caller's account. The email defaults to the token claim.
func (h *Handler) Signup(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, domain.ErrUsernameTooShort)
		return
	}
	if req.Email == "" {
		req.Email = middleware.Email(c)
	}

	u, err := h.Accounts.Signup(c.Request.Context(), userID, req.Email, req.Username)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": domain.StatusAccountCreated, "user": u})
}

func (h *Handler) UsernameAvailable(c *gin.Context) {
	username := c.Query("username")
	available, err := h.Accounts.UsernameAvailable(c.Request.Context(), username)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "available": available})
}

// Me returns the profile together with both lane views.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	u, err := h.Accounts.Profile(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	nowMs := h.Engine.Clock().Now().UnixMilli()
	c.JSON(http.StatusOK, gin.H{
		"user":  u,
		"lanes": engine.Views(u, nowMs),
	})
}

func (h *Handler) DeleteMe(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.Accounts.Delete(c.Request.Context(), userID); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.StatusAccountDeleted})
}

func (h *Handler) SaveWallets(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req service.WalletsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, domain.ErrWalletsIncomplete)
		return
	}

	u, err := h.Accounts.SaveWallets(c.Request.Context(), userID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.StatusWalletsSaved, "user": u})
}

func (h *Handler) UnlockWallets(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	u, err := h.Accounts.UnlockWallets(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.StatusWalletsUnlocked, "user": u})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var patch service.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handleError(c, errInvalidBody)
		return
	}

	u, err := h.Accounts.UpdateSettings(c.Request.Context(), userID, patch)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": domain.StatusSettingsSaved, "user": u})
}

func (h *Handler) Earnings(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	e, err := h.Accounts.Earnings(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Activity lists the caller's recent audit entries.
func (h *Handler) Activity(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.Accounts.Activity(c.Request.Context(), userID, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"activity": logs})
}
