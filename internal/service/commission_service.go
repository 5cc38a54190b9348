package service

import (
	"context"
	"fmt"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CommissionService computes and tracks the platform's cut of a booking's
// settled amount or a subscription charge.
type CommissionService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger

	defaultType    string
	defaultPercent decimal.Decimal
}

// NewCommissionService creates a new commission service
func NewCommissionService(
	store *store.Store,
	eventPublisher *broker.EventPublisher,
	defaultType string,
	defaultPercent decimal.Decimal,
) *CommissionService {
	return &CommissionService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		defaultType:    defaultType,
		defaultPercent: defaultPercent,
	}
}

// CreateCommissionRequest represents a request to create a commission
type CreateCommissionRequest struct {
	BookingID       *int64           `json:"booking_id,omitempty"`
	SubscriptionID  *int64           `json:"subscription_id,omitempty"`
	ProviderID      int64            `json:"provider_id" binding:"required"`
	BaseAmount      decimal.Decimal  `json:"base_amount"`
	CommissionType  string           `json:"commission_type" binding:"required"`
	CommissionRate  decimal.Decimal  `json:"commission_rate"`
	CommissionFixed decimal.Decimal  `json:"commission_fixed"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Currency        string           `json:"currency" binding:"required"`
}

// Create validates the rule and records a pending commission. The amount is
// derived from the rule unless supplied explicitly.
func (cs *CommissionService) Create(ctx context.Context, req *CreateCommissionRequest) (*models.Commission, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.Create")
	defer span.End()

	if err := validateCommissionRule(req.CommissionType, req.CommissionRate, req.CommissionFixed); err != nil {
		return nil, err
	}
	if req.BaseAmount.IsNegative() {
		return nil, models.ValidationError("base_amount must not be negative")
	}

	amount := models.ComputeCommission(req.BaseAmount, req.CommissionType, req.CommissionRate, req.CommissionFixed)
	if req.Amount != nil {
		amount = *req.Amount
	}

	commission := &models.Commission{
		BookingID:       req.BookingID,
		SubscriptionID:  req.SubscriptionID,
		ProviderID:      req.ProviderID,
		BaseAmount:      req.BaseAmount,
		CommissionType:  req.CommissionType,
		CommissionRate:  req.CommissionRate,
		CommissionFixed: req.CommissionFixed,
		Amount:          amount,
		Currency:        req.Currency,
		Status:          models.CommissionStatusPending,
	}

	if err := cs.store.CreateCommission(ctx, commission); err != nil {
		return nil, fmt.Errorf("failed to create commission: %w", err)
	}

	util.CommissionsCreatedTotal.Inc()
	cs.logger.Info("Commission created",
		zap.Int64("commission_id", commission.ID),
		zap.String("amount", commission.Amount.String()))

	return commission, nil
}

// CreateForBooking records the provider commission earned on a completed
// booking. The rule comes from the provider's active subscription when one
// exists, else the platform defaults. A booking is credited at most once.
func (cs *CommissionService) CreateForBooking(ctx context.Context, bookingID int64) (*models.Commission, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.CreateForBooking")
	defer span.End()

	if existing, err := cs.store.GetCommissionByBooking(ctx, bookingID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	booking, err := cs.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	ruleType := cs.defaultType
	rate := cs.defaultPercent
	fixed := decimal.Zero

	sub, err := cs.store.GetActiveSubscription(ctx, booking.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription: %w", err)
	}
	if sub != nil {
		ruleType = sub.CommissionType
		rate = sub.CommissionRate
		fixed = sub.CommissionFixed
	}

	return cs.Create(ctx, &CreateCommissionRequest{
		BookingID:       &bookingID,
		ProviderID:      booking.ProviderID,
		BaseAmount:      booking.TotalAmount,
		CommissionType:  ruleType,
		CommissionRate:  rate,
		CommissionFixed: fixed,
		Currency:        booking.Currency,
	})
}

// ComputeAmount applies the stored rule without mutating anything. The
// stored base is used unless an override is given.
func (cs *CommissionService) ComputeAmount(ctx context.Context, commissionID int64, overrideBase *decimal.Decimal) (decimal.Decimal, error) {
	commission, err := cs.store.GetCommissionByID(ctx, commissionID)
	if err != nil {
		return decimal.Zero, err
	}

	base := commission.BaseAmount
	if overrideBase != nil {
		base = *overrideBase
	}
	return models.ComputeCommission(base, commission.CommissionType, commission.CommissionRate, commission.CommissionFixed), nil
}

// Capture moves pending → captured, stamping captured_at and the optional
// external payment-processor reference.
func (cs *CommissionService) Capture(ctx context.Context, commissionID int64, externalRef string) (*models.Commission, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.Capture")
	defer span.End()

	commission, ok, err := cs.store.CaptureCommission(ctx, commissionID, externalRef)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cs.transitionFailure(ctx, commissionID, models.CommissionStatusCaptured)
	}
	return commission, nil
}

// Settle moves captured → settled, stamping settled_at. The settlement event
// marks the cut as paid out to the platform.
func (cs *CommissionService) Settle(ctx context.Context, commissionID int64) (*models.Commission, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.Settle")
	defer span.End()

	commission, ok, err := cs.store.SettleCommission(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cs.transitionFailure(ctx, commissionID, models.CommissionStatusSettled)
	}

	util.CommissionsSettledTotal.Inc()
	cs.logger.Info("Commission settled",
		zap.Int64("commission_id", commission.ID),
		zap.String("amount", commission.Amount.String()))

	event := &models.CommissionSettledEvent{
		BaseEvent:    newBaseEvent(models.EventTypeCommissionSettled),
		CommissionID: commission.ID,
		ProviderID:   commission.ProviderID,
		Amount:       commission.Amount,
	}
	if err := cs.eventPublisher.PublishCommissionSettled(ctx, event); err != nil {
		cs.logger.Error("Failed to publish CommissionSettled event", zap.Error(err))
	}

	return commission, nil
}

// Refund moves captured/settled → refunded, stamping refunded_at.
func (cs *CommissionService) Refund(ctx context.Context, commissionID int64) (*models.Commission, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.Refund")
	defer span.End()

	commission, ok, err := cs.store.RefundCommission(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cs.transitionFailure(ctx, commissionID, models.CommissionStatusRefunded)
	}
	return commission, nil
}

// Cancel moves pending/captured → cancelled with an optional reason.
func (cs *CommissionService) Cancel(ctx context.Context, commissionID int64, reason string) (*models.Commission, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.Cancel")
	defer span.End()

	commission, ok, err := cs.store.CancelCommission(ctx, commissionID, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cs.transitionFailure(ctx, commissionID, models.CommissionStatusCancelled)
	}
	return commission, nil
}

// RecomputeAmount re-derives the amount; a new base also overwrites
// base_amount.
func (cs *CommissionService) RecomputeAmount(ctx context.Context, commissionID int64, newBase *decimal.Decimal) (*models.Commission, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.RecomputeAmount")
	defer span.End()

	commission, err := cs.store.GetCommissionByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}

	if newBase != nil {
		if newBase.IsNegative() {
			return nil, models.ValidationError("base_amount must not be negative")
		}
		commission.BaseAmount = *newBase
	}
	commission.Amount = models.ComputeCommission(
		commission.BaseAmount, commission.CommissionType, commission.CommissionRate, commission.CommissionFixed)

	if err := cs.store.UpdateCommissionAmount(ctx, commission); err != nil {
		return nil, fmt.Errorf("failed to store recomputed commission: %w", err)
	}
	return commission, nil
}

// Get retrieves a commission by ID
func (cs *CommissionService) Get(ctx context.Context, commissionID int64) (*models.Commission, error) {
	return cs.store.GetCommissionByID(ctx, commissionID)
}

func (cs *CommissionService) transitionFailure(ctx context.Context, commissionID int64, to string) error {
	current, err := cs.store.GetCommissionByID(ctx, commissionID)
	if err != nil {
		return err
	}
	return &models.TransitionError{Entity: "commission", From: current.Status, To: to}
}

func validateCommissionRule(ruleType string, rate, fixed decimal.Decimal) error {
	switch ruleType {
	case models.CommissionTypePercent:
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return models.ValidationError("commission_rate must be between 0 and 100")
		}
	case models.CommissionTypeFixed:
		if fixed.IsNegative() {
			return models.ValidationError("commission_fixed must not be negative")
		}
	default:
		return models.ValidationError("unknown commission_type %q", ruleType)
	}
	return nil
}
