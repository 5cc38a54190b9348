package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	referenceMaxAttempts = 5
	idempotencyCacheTTL  = 24 * time.Hour
)

// PaymentService records money movement against bookings. Duplicate
// submissions carrying the same idempotency key receive the previously
// created record, never an error.
type PaymentService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store *store.Store, redis *redisclient.Client, eventPublisher *broker.EventPublisher) *PaymentService {
	return &PaymentService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreatePaymentRequest represents a request to record a payment attempt
type CreatePaymentRequest struct {
	BookingID      int64            `json:"booking_id" binding:"required"`
	ClientID       int64            `json:"client_id" binding:"required"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	ProcessorFee   *decimal.Decimal `json:"processor_fee,omitempty"`
	NetAmount      *decimal.Decimal `json:"net_amount,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	Method         string           `json:"method" binding:"required"`
	Gateway        string           `json:"gateway,omitempty"`
	Reference      string           `json:"reference,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
}

// Create records a payment attempt. The amount defaults to the booking's
// total; provider and currency default from the booking.
func (ps *PaymentService) Create(ctx context.Context, req *CreatePaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Create")
	defer span.End()

	if req.IdempotencyKey != "" {
		if existing, err := ps.lookupByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
			return nil, err
		} else if existing != nil {
			util.PaymentIdempotentHitsTotal.Inc()
			ps.logger.Info("Duplicate payment request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("payment_id", existing.ID))
			return existing, nil
		}
	}

	if req.Amount != nil && req.Amount.IsNegative() {
		return nil, models.ValidationError("amount must not be negative")
	}
	if req.ProcessorFee != nil && req.ProcessorFee.IsNegative() {
		return nil, models.ValidationError("processor_fee must not be negative")
	}

	booking, err := ps.store.GetBookingByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	amount := booking.TotalAmount
	if req.Amount != nil {
		amount = *req.Amount
	}
	fee := decimal.Zero
	if req.ProcessorFee != nil {
		fee = *req.ProcessorFee
	}
	net := models.ComputeNet(amount, fee)
	if req.NetAmount != nil {
		net = *req.NetAmount
	}
	currency := req.Currency
	if currency == "" {
		currency = booking.Currency
	}

	payment := &models.Payment{
		BookingID:      req.BookingID,
		ClientID:       req.ClientID,
		ProviderID:     booking.ProviderID,
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
		Amount:         amount,
		ProcessorFee:   fee,
		NetAmount:      net,
		Currency:       currency,
		Method:         req.Method,
		Gateway:        req.Gateway,
		Status:         models.PaymentStatusPending,
	}

	if err := ps.insertWithReferenceRetry(ctx, payment, req.Reference != ""); err != nil {
		return nil, err
	}

	util.PaymentsCreatedTotal.Inc()
	ps.logger.Info("Payment recorded",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", payment.BookingID),
		zap.String("reference", payment.Reference))

	if payment.IdempotencyKey != "" {
		if err := ps.redis.SetIdempotencyResult(ctx, payment.IdempotencyKey, payment.ID, idempotencyCacheTTL); err != nil {
			ps.logger.Warn("Failed to cache idempotency key", zap.Error(err))
		}
	}

	return payment, nil
}

// lookupByIdempotencyKey answers from the Redis cache first, then the
// database.
func (ps *PaymentService) lookupByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	if id, hit, err := ps.redis.GetIdempotencyResult(ctx, key); err != nil {
		ps.logger.Warn("Idempotency cache read failed, falling back to DB", zap.Error(err))
	} else if hit {
		return ps.store.GetPaymentByID(ctx, id)
	}
	return ps.store.GetPaymentByIdempotencyKey(ctx, key)
}

// insertWithReferenceRetry persists the payment, regenerating the reference
// on a unique collision. A concurrent insert under the same idempotency key
// resolves to the winner's record.
func (ps *PaymentService) insertWithReferenceRetry(ctx context.Context, payment *models.Payment, referenceSupplied bool) error {
	for attempt := 0; attempt < referenceMaxAttempts; attempt++ {
		if payment.Reference == "" {
			payment.Reference = generatePaymentReference()
		}

		err := ps.store.CreatePayment(ctx, payment)
		if err == nil {
			return nil
		}

		if store.IsUniqueViolation(err, "payments_idempotency_key_key") {
			existing, lookupErr := ps.store.GetPaymentByIdempotencyKey(ctx, payment.IdempotencyKey)
			if lookupErr != nil {
				return lookupErr
			}
			if existing != nil {
				util.PaymentIdempotentHitsTotal.Inc()
				*payment = *existing
				return nil
			}
			return err
		}

		if store.IsUniqueViolation(err, "payments_reference_key") {
			if referenceSupplied {
				return models.ValidationError("payment reference %q already exists", payment.Reference)
			}
			payment.Reference = ""
			continue
		}

		return fmt.Errorf("failed to create payment: %w", err)
	}
	return fmt.Errorf("failed to generate a unique payment reference after %d attempts", referenceMaxAttempts)
}

// Authorize moves pending → authorized, stamping authorized_at.
func (ps *PaymentService) Authorize(ctx context.Context, paymentID int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Authorize")
	defer span.End()

	payment, ok, err := ps.store.AuthorizePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ps.transitionFailure(ctx, paymentID, models.PaymentStatusAuthorized)
	}
	return payment, nil
}

// Capture updates fee/external id when given, recomputes net_amount and
// advances to succeeded, all in one atomic statement.
func (ps *PaymentService) Capture(ctx context.Context, paymentID int64, processorFee *decimal.Decimal, externalID *string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Capture")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PaymentCaptureLatency.Observe(time.Since(start).Seconds())
	}()

	if processorFee != nil && processorFee.IsNegative() {
		return nil, models.ValidationError("processor_fee must not be negative")
	}

	payment, ok, err := ps.store.CapturePayment(ctx, paymentID, processorFee, externalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ps.transitionFailure(ctx, paymentID, models.PaymentStatusSucceeded)
	}

	util.PaymentsCapturedTotal.Inc()
	ps.logger.Info("Payment captured",
		zap.Int64("payment_id", payment.ID),
		zap.String("net_amount", payment.NetAmount.String()))

	event := &models.PaymentCapturedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentCaptured),
		PaymentID: payment.ID,
		BookingID: payment.BookingID,
		NetAmount: payment.NetAmount,
		Reference: payment.Reference,
	}
	if err := ps.eventPublisher.PublishPaymentCaptured(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentCaptured event", zap.Error(err))
	}

	return payment, nil
}

// Fail records failure diagnostics and moves the payment to failed.
func (ps *PaymentService) Fail(ctx context.Context, paymentID int64, code, message string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Fail")
	defer span.End()

	payment, ok, err := ps.store.FailPayment(ctx, paymentID, code, message)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ps.transitionFailure(ctx, paymentID, models.PaymentStatusFailed)
	}

	util.PaymentsFailedTotal.Inc()
	ps.logger.Warn("Payment failed",
		zap.Int64("payment_id", payment.ID),
		zap.String("failure_code", code))

	event := &models.PaymentFailedEvent{
		BaseEvent:   newBaseEvent(models.EventTypePaymentFailed),
		PaymentID:   payment.ID,
		BookingID:   payment.BookingID,
		FailureCode: code,
		Reason:      message,
	}
	if err := ps.eventPublisher.PublishPaymentFailed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}

	return payment, nil
}

// Refund moves authorized/succeeded → refunded, stamping refunded_at.
func (ps *PaymentService) Refund(ctx context.Context, paymentID int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Refund")
	defer span.End()

	payment, ok, err := ps.store.RefundPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ps.transitionFailure(ctx, paymentID, models.PaymentStatusRefunded)
	}

	util.PaymentsRefundedTotal.Inc()

	event := &models.PaymentRefundedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentRefunded),
		PaymentID: payment.ID,
		BookingID: payment.BookingID,
		Amount:    payment.Amount,
	}
	if err := ps.eventPublisher.PublishPaymentRefunded(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentRefunded event", zap.Error(err))
	}

	return payment, nil
}

// Cancel moves a non-terminal payment to cancelled.
func (ps *PaymentService) Cancel(ctx context.Context, paymentID int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Cancel")
	defer span.End()

	payment, ok, err := ps.store.CancelPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ps.transitionFailure(ctx, paymentID, models.PaymentStatusCancelled)
	}
	return payment, nil
}

// RecomputeNet re-derives net_amount from the stored amount and fee.
func (ps *PaymentService) RecomputeNet(ctx context.Context, paymentID int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.RecomputeNet")
	defer span.End()

	return ps.store.RecomputePaymentNet(ctx, paymentID)
}

// Get retrieves a payment by ID
func (ps *PaymentService) Get(ctx context.Context, paymentID int64) (*models.Payment, error) {
	return ps.store.GetPaymentByID(ctx, paymentID)
}

// ListByBooking retrieves the payments recorded against a booking.
func (ps *PaymentService) ListByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	return ps.store.ListPaymentsByBooking(ctx, bookingID)
}

// transitionFailure classifies a guarded-update miss: either the payment is
// gone or its current status does not permit the edge.
func (ps *PaymentService) transitionFailure(ctx context.Context, paymentID int64, to string) error {
	current, err := ps.store.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}
	return &models.TransitionError{Entity: "payment", From: current.Status, To: to}
}

// generatePaymentReference returns a short prefixed random token, e.g.
// PAY-3E81C07D.
func generatePaymentReference() string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("PAY-%s", token)
}
