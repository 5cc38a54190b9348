package api

import (
	"net/http"
	"strconv"
	"strings"

	"booking-service/internal/models"
	"booking-service/internal/service"

	"github.com/gin-gonic/gin"
)

type cancelRequest struct {
	Reason string `json:"reason"`
}

// createBooking handles booking creation
func (h *Handler) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := h.bookingService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// listBookings filters bookings by client or status
func (h *Handler) listBookings(c *gin.Context) {
	if clientParam := c.Query("client_id"); clientParam != "" {
		clientID, err := strconv.ParseInt(clientParam, 10, 64)
		if err != nil || clientID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client_id"})
			return
		}
		bookings, err := h.bookingService.ListByClient(c.Request.Context(), clientID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": bookings})
		return
	}

	if statusParam := c.Query("status"); statusParam != "" {
		bookings, err := h.bookingService.ListByStatus(c.Request.Context(), strings.Split(statusParam, ","))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": bookings})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "client_id or status query parameter required"})
}

// getBooking handles get booking by ID
func (h *Handler) getBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// getBookingByCode handles lookup by public booking code
func (h *Handler) getBookingByCode(c *gin.Context) {
	booking, err := h.bookingService.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// updateBooking handles partial updates with server-side recomputation
func (h *Handler) updateBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req service.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := h.bookingService.Update(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// confirmBooking moves a booking to confirmed
func (h *Handler) confirmBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.Confirm(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// startBooking moves a booking to in_progress
func (h *Handler) startBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.Start(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// completeBooking moves a booking to completed
func (h *Handler) completeBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.Complete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// cancelBooking cancels a booking and releases its slot capacity
func (h *Handler) cancelBooking(c *gin.Context) {
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

	booking, err := h.bookingService.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// recomputeBooking re-derives the financial fields from stored inputs
func (h *Handler) recomputeBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.Recompute(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// setBookingPaymentStatus sets the payment_status enum directly
func (h *Handler) setBookingPaymentStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req paymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !models.ValidPaymentState(req.PaymentStatus) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown payment status",
			"code":  "validation_failed",
		})
		return
	}

	booking, err := h.bookingService.SetPaymentStatus(c.Request.Context(), id, req.PaymentStatus)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// listBookingPayments lists payment attempts against a booking
func (h *Handler) listBookingPayments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListByBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
