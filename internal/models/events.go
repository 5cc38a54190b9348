package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeBookingCreated    = "BOOKING_CREATED"
	EventTypeBookingCompleted  = "BOOKING_COMPLETED"
	EventTypeBookingCancelled  = "BOOKING_CANCELLED"
	EventTypePaymentCaptured   = "PAYMENT_CAPTURED"
	EventTypePaymentFailed     = "PAYMENT_FAILED"
	EventTypePaymentRefunded   = "PAYMENT_REFUNDED"
	EventTypeCommissionSettled = "COMMISSION_SETTLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when a booking is created
type BookingCreatedEvent struct {
	BaseEvent
	BookingID   int64           `json:"booking_id"`
	Code        string          `json:"code"`
	ClientID    int64           `json:"client_id"`
	ProviderID  int64           `json:"provider_id"`
	SlotID      *int64          `json:"slot_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

// BookingCompletedEvent published when a booking reaches completed; the
// settlement worker creates the provider commission from it.
type BookingCompletedEvent struct {
	BaseEvent
	BookingID   int64           `json:"booking_id"`
	ProviderID  int64           `json:"provider_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

// BookingCancelledEvent published when a booking is cancelled
type BookingCancelledEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	Reason    string `json:"reason"`
}

// PaymentCapturedEvent published when a payment advances to succeeded
type PaymentCapturedEvent struct {
	BaseEvent
	PaymentID int64           `json:"payment_id"`
	BookingID int64           `json:"booking_id"`
	NetAmount decimal.Decimal `json:"net_amount"`
	Reference string          `json:"reference"`
}

// PaymentFailedEvent published when a payment fails
type PaymentFailedEvent struct {
	BaseEvent
	PaymentID   int64  `json:"payment_id"`
	BookingID   int64  `json:"booking_id"`
	FailureCode string `json:"failure_code"`
	Reason      string `json:"reason"`
}

// PaymentRefundedEvent published when a payment is refunded
type PaymentRefundedEvent struct {
	BaseEvent
	PaymentID int64           `json:"payment_id"`
	BookingID int64           `json:"booking_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// CommissionSettledEvent published when a commission is paid out
type CommissionSettledEvent struct {
	BaseEvent
	CommissionID int64           `json:"commission_id"`
	ProviderID   int64           `json:"provider_id"`
	Amount       decimal.Decimal `json:"amount"`
}
