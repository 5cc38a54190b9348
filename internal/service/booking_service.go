package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const codeMaxAttempts = 5

// BookingService owns the booking lifecycle and its derived monetary
// fields. Subtotal, tax and total are always recomputed server-side when a
// contributing field changes.
type BookingService struct {
	store          *store.Store
	catalog        *CatalogClient
	slots          *SlotService
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger

	defaultCurrency string
	defaultTaxRate  decimal.Decimal
}

// NewBookingService creates a new booking service
func NewBookingService(
	store *store.Store,
	catalog *CatalogClient,
	slots *SlotService,
	eventPublisher *broker.EventPublisher,
	defaultCurrency string,
	defaultTaxRate decimal.Decimal,
) *BookingService {
	return &BookingService{
		store:           store,
		catalog:         catalog,
		slots:           slots,
		eventPublisher:  eventPublisher,
		logger:          util.GetLogger(),
		defaultCurrency: defaultCurrency,
		defaultTaxRate:  defaultTaxRate,
	}
}

// CreateBookingRequest represents a request to create a booking
type CreateBookingRequest struct {
	ClientID       int64            `json:"client_id" binding:"required"`
	OfferingID     int64            `json:"offering_id" binding:"required"`
	ProviderID     int64            `json:"provider_id,omitempty"`
	SlotID         *int64           `json:"slot_id,omitempty"`
	Quantity       int              `json:"quantity" binding:"required,min=1"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	TaxRate        *decimal.Decimal `json:"tax_rate,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	Code           string           `json:"code,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// UpdateBookingRequest carries a partial update. Derived fields are
// recomputed when a contributing field is present, unless the caller also
// supplies them explicitly (the override escape hatch).
type UpdateBookingRequest struct {
	Quantity       *int             `json:"quantity,omitempty"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	TaxRate        *decimal.Decimal `json:"tax_rate,omitempty"`
	Subtotal       *decimal.Decimal `json:"subtotal,omitempty"`
	TaxAmount      *decimal.Decimal `json:"tax_amount,omitempty"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	Currency       *string          `json:"currency,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

// Create validates the request, applies catalog defaults, derives the
// financial fields and persists everything in one atomic write. Slot-backed
// bookings consume slot capacity in the same transaction.
func (bs *BookingService) Create(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Create")
	defer span.End()

	if req.Quantity < 1 {
		util.BookingsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, models.ValidationError("quantity must be at least 1")
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, models.ValidationError("unit_price must not be negative")
	}
	if req.DiscountAmount != nil && req.DiscountAmount.IsNegative() {
		return nil, models.ValidationError("discount_amount must not be negative")
	}
	if err := validateTaxRate(req.TaxRate); err != nil {
		return nil, err
	}

	offering, err := bs.catalog.GetOffering(ctx, req.OfferingID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("offering_not_found").Inc()
		return nil, err
	}

	providerID := req.ProviderID
	if providerID == 0 {
		providerID = offering.ProviderID
	}

	unitPrice := offering.Price
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	discount := decimal.Zero
	if req.DiscountAmount != nil {
		discount = *req.DiscountAmount
	}
	taxRate := bs.defaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	currency := req.Currency
	if currency == "" {
		currency = offering.Currency
	}
	if currency == "" {
		currency = bs.defaultCurrency
	}

	subtotal, tax, total := models.ComputeBookingTotals(req.Quantity, unitPrice, discount, taxRate)

	booking := &models.Booking{
		Code:           req.Code,
		ClientID:       req.ClientID,
		ProviderID:     providerID,
		OfferingID:     req.OfferingID,
		SlotID:         req.SlotID,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		DiscountAmount: discount,
		TaxRate:        taxRate,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		TotalAmount:    total,
		Currency:       currency,
		Status:         models.BookingStatusPending,
		PaymentStatus:  models.PaymentStateUnpaid,
		Notes:          req.Notes,
	}

	if err := bs.insertWithCodeRetry(ctx, booking, req.Code != ""); err != nil {
		return nil, err
	}

	if booking.SlotID != nil {
		bs.slots.syncMirrorBooking(*booking.SlotID, booking.Quantity)
	}

	util.BookingsCreatedTotal.Inc()
	bs.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("code", booking.Code),
		zap.String("total_amount", booking.TotalAmount.String()))

	event := &models.BookingCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeBookingCreated),
		BookingID:   booking.ID,
		Code:        booking.Code,
		ClientID:    booking.ClientID,
		ProviderID:  booking.ProviderID,
		SlotID:      booking.SlotID,
		TotalAmount: booking.TotalAmount,
		Currency:    booking.Currency,
	}
	if err := bs.eventPublisher.PublishBookingCreated(ctx, event); err != nil {
		bs.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}

	return booking, nil
}

// insertWithCodeRetry persists the booking, regenerating the code on a
// unique collision. Caller-supplied codes are not regenerated.
func (bs *BookingService) insertWithCodeRetry(ctx context.Context, booking *models.Booking, codeSupplied bool) error {
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		if booking.Code == "" {
			booking.Code = generateBookingCode()
		}

		var err error
		if booking.SlotID != nil {
			_, err = bs.store.CreateBookingWithSlot(ctx, booking)
		} else {
			err = bs.store.CreateBooking(ctx, booking)
		}
		if err == nil {
			return nil
		}

		if store.IsUniqueViolation(err, "bookings_code_key") {
			if codeSupplied {
				util.BookingsFailedTotal.WithLabelValues("duplicate_code").Inc()
				return models.ValidationError("booking code %q already exists", booking.Code)
			}
			booking.Code = ""
			continue
		}

		switch err.(type) {
		case *models.NotBookableError, *models.InsufficientCapacityError:
			util.BookingsFailedTotal.WithLabelValues("capacity_denied").Inc()
		default:
			util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		}
		return err
	}
	return fmt.Errorf("failed to generate a unique booking code after %d attempts", codeMaxAttempts)
}

// Update applies a partial update. Financial fields are re-derived when any
// contributing field changed, unless the caller supplied the derived values
// explicitly.
func (bs *BookingService) Update(ctx context.Context, bookingID int64, req *UpdateBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Update")
	defer span.End()

	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, models.ValidationError("quantity must be at least 1")
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, models.ValidationError("unit_price must not be negative")
	}
	if req.DiscountAmount != nil && req.DiscountAmount.IsNegative() {
		return nil, models.ValidationError("discount_amount must not be negative")
	}
	if err := validateTaxRate(req.TaxRate); err != nil {
		return nil, err
	}

	booking, err := bs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// The slot consumed booking.Quantity units at creation and releases the
	// current quantity on cancel, so the two must stay in step.
	if req.Quantity != nil && booking.SlotID != nil && *req.Quantity != booking.Quantity {
		return nil, models.ValidationError("quantity is fixed on slot-backed bookings; cancel and rebook to change it")
	}

	if req.Quantity != nil {
		booking.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		booking.UnitPrice = *req.UnitPrice
	}
	if req.DiscountAmount != nil {
		booking.DiscountAmount = *req.DiscountAmount
	}
	if req.TaxRate != nil {
		booking.TaxRate = *req.TaxRate
	}
	if req.Currency != nil {
		booking.Currency = *req.Currency
	}
	if req.Notes != nil {
		booking.Notes = *req.Notes
	}

	contributingChanged := req.Quantity != nil || req.UnitPrice != nil ||
		req.DiscountAmount != nil || req.TaxRate != nil
	derivedSupplied := req.Subtotal != nil || req.TaxAmount != nil || req.TotalAmount != nil

	if derivedSupplied {
		if req.Subtotal != nil {
			booking.Subtotal = *req.Subtotal
		}
		if req.TaxAmount != nil {
			booking.TaxAmount = *req.TaxAmount
		}
		if req.TotalAmount != nil {
			booking.TotalAmount = *req.TotalAmount
		}
	} else if contributingChanged {
		booking.Subtotal, booking.TaxAmount, booking.TotalAmount = models.ComputeBookingTotals(
			booking.Quantity, booking.UnitPrice, booking.DiscountAmount, booking.TaxRate)
	}

	if err := bs.store.UpdateBookingFields(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return booking, nil
}

// Confirm moves a pending booking to confirmed. Confirming an already
// confirmed booking is a no-op.
func (bs *BookingService) Confirm(ctx context.Context, bookingID int64) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Confirm")
	defer span.End()

	booking, err := bs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingStatusConfirmed {
		return booking, nil
	}
	return bs.transition(ctx, booking, models.BookingStatusConfirmed)
}

// Start moves the booking to in_progress.
func (bs *BookingService) Start(ctx context.Context, bookingID int64) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Start")
	defer span.End()

	booking, err := bs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return bs.transition(ctx, booking, models.BookingStatusInProgress)
}

// Complete moves the booking to completed and announces it for settlement.
func (bs *BookingService) Complete(ctx context.Context, bookingID int64) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Complete")
	defer span.End()
	util.SpanSetBookingID(ctx, bookingID)

	booking, err := bs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	booking, err = bs.transition(ctx, booking, models.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}

	util.BookingsCompletedTotal.Inc()

	event := &models.BookingCompletedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeBookingCompleted),
		BookingID:   booking.ID,
		ProviderID:  booking.ProviderID,
		TotalAmount: booking.TotalAmount,
		Currency:    booking.Currency,
	}
	if err := bs.eventPublisher.PublishBookingCompleted(ctx, event); err != nil {
		bs.logger.Error("Failed to publish BookingCompleted event", zap.Error(err))
	}

	return booking, nil
}

// Cancel moves any non-terminal booking to cancelled, recording the reason
// and releasing consumed slot capacity.
func (bs *BookingService) Cancel(ctx context.Context, bookingID int64, reason string) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Cancel")
	defer span.End()
	util.SpanSetBookingID(ctx, bookingID)

	booking, err := bs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !models.BookingCanTransition(booking.Status, models.BookingStatusCancelled) {
		return nil, &models.TransitionError{Entity: "booking", From: booking.Status, To: models.BookingStatusCancelled}
	}

	ok, err := bs.store.CancelBooking(ctx, booking, reason, booking.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !ok {
		// Lost a race; report against the fresh status.
		fresh, err := bs.store.GetBookingByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		return nil, &models.TransitionError{Entity: "booking", From: fresh.Status, To: models.BookingStatusCancelled}
	}

	if booking.SlotID != nil {
		bs.slots.syncMirrorRelease(*booking.SlotID, booking.Quantity)
	}

	util.BookingsCancelledTotal.WithLabelValues(cancelReasonLabel(reason)).Inc()

	event := &models.BookingCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeBookingCancelled),
		BookingID: booking.ID,
		Reason:    reason,
	}
	if err := bs.eventPublisher.PublishBookingCancelled(ctx, event); err != nil {
		bs.logger.Error("Failed to publish BookingCancelled event", zap.Error(err))
	}

	return bs.store.GetBookingByID(ctx, bookingID)
}

// SetPaymentStatus sets the payment_status enum directly, independent of
// the booking status.
func (bs *BookingService) SetPaymentStatus(ctx context.Context, bookingID int64, paymentStatus string) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.SetPaymentStatus")
	defer span.End()

	if !models.ValidPaymentState(paymentStatus) {
		return nil, models.ValidationError("unknown payment status %q", paymentStatus)
	}
	if err := bs.store.SetBookingPaymentStatus(ctx, bookingID, paymentStatus); err != nil {
		return nil, err
	}
	return bs.store.GetBookingByID(ctx, bookingID)
}

// Recompute re-derives the financial fields from the stored contributing
// fields, correcting drift.
func (bs *BookingService) Recompute(ctx context.Context, bookingID int64) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Recompute")
	defer span.End()

	booking, err := bs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	booking.Subtotal, booking.TaxAmount, booking.TotalAmount = models.ComputeBookingTotals(
		booking.Quantity, booking.UnitPrice, booking.DiscountAmount, booking.TaxRate)

	if err := bs.store.UpdateBookingFinancials(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to store recomputed financials: %w", err)
	}
	return booking, nil
}

// Get retrieves a booking by ID
func (bs *BookingService) Get(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return bs.store.GetBookingByID(ctx, bookingID)
}

// GetByCode retrieves a booking by its code
func (bs *BookingService) GetByCode(ctx context.Context, code string) (*models.Booking, error) {
	return bs.store.GetBookingByCode(ctx, code)
}

// ListByClient retrieves a client's bookings, newest first
func (bs *BookingService) ListByClient(ctx context.Context, clientID int64) ([]models.Booking, error) {
	return bs.store.ListBookingsByClient(ctx, clientID)
}

// ListByStatus retrieves bookings in the given statuses, oldest first
func (bs *BookingService) ListByStatus(ctx context.Context, statuses []string) ([]models.Booking, error) {
	return bs.store.ListBookingsByStatus(ctx, statuses)
}

// ExpireStalePending cancels pending bookings older than the TTL, releasing
// their slot capacity. Used by the scheduler sweep.
func (bs *BookingService) ExpireStalePending(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.ExpireStalePending")
	defer span.End()

	stale, err := bs.store.ListStalePendingBookings(ctx, time.Now().Add(-ttl), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale bookings: %w", err)
	}

	expired := 0
	for i := range stale {
		if _, err := bs.Cancel(ctx, stale[i].ID, "expired"); err != nil {
			bs.logger.Warn("Failed to expire stale booking",
				zap.Int64("booking_id", stale[i].ID),
				zap.Error(err))
			continue
		}
		expired++
		util.StaleBookingsExpiredTotal.Inc()
	}
	return expired, nil
}

func (bs *BookingService) transition(ctx context.Context, booking *models.Booking, to string) (*models.Booking, error) {
	if !models.BookingCanTransition(booking.Status, to) {
		return nil, &models.TransitionError{Entity: "booking", From: booking.Status, To: to}
	}

	ok, err := bs.store.TransitionBookingStatus(ctx, booking.ID, booking.Status, to)
	if err != nil {
		return nil, fmt.Errorf("failed to transition booking: %w", err)
	}
	if !ok {
		fresh, err := bs.store.GetBookingByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		return nil, &models.TransitionError{Entity: "booking", From: fresh.Status, To: to}
	}

	booking.Status = to
	return booking, nil
}

func validateTaxRate(rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return models.ValidationError("tax_rate must be between 0 and 100")
	}
	return nil
}

func cancelReasonLabel(reason string) string {
	if reason == "expired" {
		return "expired"
	}
	return "requested"
}

// generateBookingCode returns a short prefixed random token, e.g.
// BK-9F2C41AB.
func generateBookingCode() string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("BK-%s", token)
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
