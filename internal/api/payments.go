package api

import (
	"net/http"

	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type capturePaymentRequest struct {
	ProcessorFee *decimal.Decimal `json:"processor_fee,omitempty"`
	ExternalID   *string          `json:"external_id,omitempty"`
}

type failPaymentRequest struct {
	FailureCode    string `json:"failure_code"`
	FailureMessage string `json:"failure_message"`
}

// createPayment records a payment attempt. Repeating an idempotency key
// returns the payment recorded for the first attempt.
func (h *Handler) createPayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	payment, err := h.paymentService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// getPayment handles get payment by ID
func (h *Handler) getPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// authorizePayment moves a payment to authorized
func (h *Handler) authorizePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Authorize(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// capturePayment settles an authorized payment
func (h *Handler) capturePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req capturePaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	payment, err := h.paymentService.Capture(c.Request.Context(), id, req.ProcessorFee, req.ExternalID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// failPayment marks a payment as failed with a gateway code
func (h *Handler) failPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req failPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	payment, err := h.paymentService.Fail(c.Request.Context(), id, req.FailureCode, req.FailureMessage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// recomputePaymentNet re-derives net_amount from amount and processor_fee
func (h *Handler) recomputePaymentNet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.RecomputeNet(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// refundPayment refunds a settled payment
func (h *Handler) refundPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Refund(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// cancelPayment voids a payment that has not settled
func (h *Handler) cancelPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
