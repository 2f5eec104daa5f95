package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"illyrian_project/internal/domain"
)

// GetReferral returns the caller's code, creating one if needed, and bonus state.
func (h *Handler) GetReferral(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	overview, err := h.Referrals.Overview(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

type ApplyReferralRequest struct {
	Code string `json:"code"`
}

func (h *Handler) ApplyReferral(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, domain.ErrInvalidReferralCode)
		return
	}

	res, err := h.Referrals.ApplyReferral(c.Request.Context(), userID, req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
