package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCommitment returns the view of one lane.
func (h *Handler) GetCommitment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	lane, ok := laneParam(c)
	if !ok {
		return
	}

	out, err := h.Engine.Lane(c.Request.Context(), userID, lane)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type StartCommitmentRequest struct {
	TierID int64 `json:"tierId"`
}

func (h *Handler) StartCommitment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	lane, ok := laneParam(c)
	if !ok {
		return
	}

	var req StartCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, errInvalidBody)
		return
	}

	out, err := h.Engine.Start(c.Request.Context(), userID, lane, req.TierID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) CompleteCommitment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	lane, ok := laneParam(c)
	if !ok {
		return
	}

	out, err := h.Engine.Complete(c.Request.Context(), userID, lane)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ResetCommitment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	lane, ok := laneParam(c)
	if !ok {
		return
	}

	out, err := h.Engine.Reset(c.Request.Context(), userID, lane)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
