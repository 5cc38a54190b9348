package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	slotService       *service.SlotService
	bookingService    *service.BookingService
	paymentService    *service.PaymentService
	commissionService *service.CommissionService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	slotService *service.SlotService,
	bookingService *service.BookingService,
	paymentService *service.PaymentService,
	commissionService *service.CommissionService,
) *Handler {
	return &Handler{
		slotService:       slotService,
		bookingService:    bookingService,
		paymentService:    paymentService,
		commissionService: commissionService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/slots", h.createSlot)
		v1.GET("/slots/:id", h.getSlot)
		v1.GET("/slots/:id/availability", h.getSlotAvailability)
		v1.POST("/slots/:id/book", h.bookSlot)
		v1.POST("/slots/:id/unbook", h.unbookSlot)
		v1.PATCH("/slots/:id/status", h.setSlotStatus)
		v1.DELETE("/slots/:id", h.deleteSlot)

		v1.POST("/bookings", h.createBooking)
		v1.GET("/bookings", h.listBookings)
		v1.GET("/bookings/:id", h.getBooking)
		v1.GET("/bookings/code/:code", h.getBookingByCode)
		v1.PATCH("/bookings/:id", h.updateBooking)
		v1.POST("/bookings/:id/confirm", h.confirmBooking)
		v1.POST("/bookings/:id/start", h.startBooking)
		v1.POST("/bookings/:id/complete", h.completeBooking)
		v1.POST("/bookings/:id/cancel", h.cancelBooking)
		v1.POST("/bookings/:id/recompute", h.recomputeBooking)
		v1.PATCH("/bookings/:id/payment-status", h.setBookingPaymentStatus)
		v1.GET("/bookings/:id/payments", h.listBookingPayments)

		v1.POST("/payments", h.createPayment)
		v1.GET("/payments/:id", h.getPayment)
		v1.POST("/payments/:id/authorize", h.authorizePayment)
		v1.POST("/payments/:id/capture", h.capturePayment)
		v1.POST("/payments/:id/fail", h.failPayment)
		v1.POST("/payments/:id/refund", h.refundPayment)
		v1.POST("/payments/:id/cancel", h.cancelPayment)
		v1.POST("/payments/:id/recompute-net", h.recomputePaymentNet)

		v1.POST("/commissions", h.createCommission)
		v1.GET("/commissions/:id", h.getCommission)
		v1.POST("/commissions/:id/capture", h.captureCommission)
		v1.POST("/commissions/:id/settle", h.settleCommission)
		v1.POST("/commissions/:id/refund", h.refundCommission)
		v1.POST("/commissions/:id/cancel", h.cancelCommission)
		v1.POST("/commissions/:id/recompute", h.recomputeCommission)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to HTTP responses. Conflicts carry a
// machine-readable code so callers can branch without parsing messages.
func writeError(c *gin.Context, err error) {
	var transition *models.TransitionError
	var notBookable *models.NotBookableError
	var insufficient *models.InsufficientCapacityError

	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  "validation_failed",
		})
	case errors.Is(err, models.ErrSlotNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrPaymentNotFound),
		errors.Is(err, models.ErrCommissionNotFound),
		errors.Is(err, models.ErrOfferingNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
			"code":  "not_found",
		})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     insufficient.Error(),
			"code":      "insufficient_capacity",
			"requested": insufficient.Requested,
			"remaining": insufficient.Remaining,
		})
	case errors.As(err, &notBookable):
		c.JSON(http.StatusConflict, gin.H{
			"error":  notBookable.Error(),
			"code":   "slot_not_bookable",
			"status": notBookable.Status,
		})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{
			"error": transition.Error(),
			"code":  "invalid_transition",
			"from":  transition.From,
			"to":    transition.To,
		})
	case errors.Is(err, models.ErrNothingToUnbook):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"code":  "nothing_to_release",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal error",
			"code":  "internal",
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
