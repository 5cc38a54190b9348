package api

import (
	"net/http"

	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type captureCommissionRequest struct {
	ExternalRef string `json:"external_ref"`
}

// createCommission records a commission from an explicit rule
func (h *Handler) createCommission(c *gin.Context) {
	var req service.CreateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	commission, err := h.commissionService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commission)
}

// getCommission handles get commission by ID
func (h *Handler) getCommission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	commission, err := h.commissionService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}

// captureCommission moves a commission to captured
func (h *Handler) captureCommission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req captureCommissionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	commission, err := h.commissionService.Capture(c.Request.Context(), id, req.ExternalRef)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}

// settleCommission moves a commission to settled
func (h *Handler) settleCommission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	commission, err := h.commissionService.Settle(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}

// refundCommission reverses a captured or settled commission
func (h *Handler) refundCommission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	commission, err := h.commissionService.Refund(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}

type recomputeCommissionRequest struct {
	BaseAmount *decimal.Decimal `json:"base_amount,omitempty"`
}

// recomputeCommission re-derives the amount, optionally from a new base
func (h *Handler) recomputeCommission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req recomputeCommissionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	commission, err := h.commissionService.RecomputeAmount(c.Request.Context(), id, req.BaseAmount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}

// cancelCommission voids a commission before settlement
func (h *Handler) cancelCommission(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	commission, err := h.commissionService.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}
