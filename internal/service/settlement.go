package service

import (
	"context"
	"fmt"

	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// SettlementOrchestrator reacts to payment and booking lifecycle events and
// drives the cross-aggregate effects: marking bookings paid or refunded and
// crediting the provider commission on completion. Every handler is
// idempotent via the processed_events table so a redelivered message is a
// no-op.
type SettlementOrchestrator struct {
	store             *store.Store
	bookingService    *BookingService
	commissionService *CommissionService
	logger            *zap.Logger
}

// NewSettlementOrchestrator creates a new settlement orchestrator
func NewSettlementOrchestrator(
	store *store.Store,
	bookingService *BookingService,
	commissionService *CommissionService,
) *SettlementOrchestrator {
	return &SettlementOrchestrator{
		store:             store,
		bookingService:    bookingService,
		commissionService: commissionService,
		logger:            util.NamedLogger("settlement"),
	}
}

// HandlePaymentCaptured marks the booking as paid
func (so *SettlementOrchestrator) HandlePaymentCaptured(ctx context.Context, event *models.PaymentCapturedEvent) error {
	ctx, span := util.StartSpan(ctx, "SettlementOrchestrator.HandlePaymentCaptured")
	defer span.End()

	processed, err := so.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	so.logger.Info("Handling payment captured",
		zap.Int64("booking_id", event.BookingID),
		zap.String("reference", event.Reference))

	if _, err := so.bookingService.SetPaymentStatus(ctx, event.BookingID, models.PaymentStatePaid); err != nil {
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}

	if err := so.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		so.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	so.logger.Info("Booking marked paid", zap.Int64("booking_id", event.BookingID))
	return nil
}

// HandlePaymentRefunded marks the booking as refunded
func (so *SettlementOrchestrator) HandlePaymentRefunded(ctx context.Context, event *models.PaymentRefundedEvent) error {
	ctx, span := util.StartSpan(ctx, "SettlementOrchestrator.HandlePaymentRefunded")
	defer span.End()

	processed, err := so.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	so.logger.Warn("Handling payment refund",
		zap.Int64("booking_id", event.BookingID),
		zap.String("amount", event.Amount.String()))

	if _, err := so.bookingService.SetPaymentStatus(ctx, event.BookingID, models.PaymentStateRefunded); err != nil {
		return fmt.Errorf("failed to mark booking refunded: %w", err)
	}

	if err := so.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		so.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	so.logger.Info("Booking marked refunded", zap.Int64("booking_id", event.BookingID))
	return nil
}

// HandleBookingCompleted credits the provider commission for the booking
func (so *SettlementOrchestrator) HandleBookingCompleted(ctx context.Context, event *models.BookingCompletedEvent) error {
	ctx, span := util.StartSpan(ctx, "SettlementOrchestrator.HandleBookingCompleted")
	defer span.End()

	processed, err := so.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	so.logger.Info("Handling booking completed",
		zap.Int64("booking_id", event.BookingID),
		zap.Int64("provider_id", event.ProviderID))

	commission, err := so.commissionService.CreateForBooking(ctx, event.BookingID)
	if err != nil {
		return fmt.Errorf("failed to create commission: %w", err)
	}

	if err := so.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		so.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	so.logger.Info("Commission credited",
		zap.Int64("booking_id", event.BookingID),
		zap.Int64("commission_id", commission.ID),
		zap.String("amount", commission.Amount.String()))
	return nil
}

// HandlePaymentFailed logs the failure; the stale-booking sweep will expire
// the pending booking if no retry succeeds before the TTL.
func (so *SettlementOrchestrator) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "SettlementOrchestrator.HandlePaymentFailed")
	defer span.End()

	processed, err := so.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	so.logger.Warn("Payment failed for booking",
		zap.Int64("booking_id", event.BookingID),
		zap.String("failure_code", event.FailureCode),
		zap.String("reason", event.Reason))

	if err := so.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		so.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
