package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceOffering is a catalog entry. Read-only to this service; it supplies
// defaults (provider, price, currency) when a booking omits them.
type ServiceOffering struct {
	ID              int64           `db:"id" json:"id"`
	ProviderID      int64           `db:"provider_id" json:"provider_id"`
	Name            string          `db:"name" json:"name"`
	Price           decimal.Decimal `db:"price" json:"price"`
	Currency        string          `db:"currency" json:"currency"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	Active          bool            `db:"active" json:"active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// AvailabilitySlot is a bookable time window for one (provider, offering)
// pair. booked_count never exceeds capacity.
type AvailabilitySlot struct {
	ID             int64            `db:"id" json:"id"`
	ProviderID     int64            `db:"provider_id" json:"provider_id"`
	OfferingID     int64            `db:"offering_id" json:"offering_id"`
	StartAt        time.Time        `db:"start_at" json:"start_at"`
	EndAt          time.Time        `db:"end_at" json:"end_at"`
	Capacity       int              `db:"capacity" json:"capacity"`
	BookedCount    int              `db:"booked_count" json:"booked_count"`
	Status         string           `db:"status" json:"status"`
	PriceOverride  *decimal.Decimal `db:"price_override" json:"price_override,omitempty"`
	Currency       string           `db:"currency" json:"currency"`
	RecurrenceRule string           `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	RecurrenceEnd  *time.Time       `db:"recurrence_end" json:"recurrence_end,omitempty"`
	ParentID       *int64           `db:"parent_id" json:"parent_id,omitempty"`
	DeletedAt      *time.Time       `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Slot statuses
const (
	SlotStatusAvailable = "available"
	SlotStatusFull      = "full"
	SlotStatusBlocked   = "blocked"
	SlotStatusCancelled = "cancelled"
)

// Recurrence rules for template slots
const (
	RecurrenceNone   = "none"
	RecurrenceDaily  = "daily"
	RecurrenceWeekly = "weekly"
)

// RemainingCapacity reports how many units can still be booked.
func (s *AvailabilitySlot) RemainingCapacity() int {
	return s.Capacity - s.BookedCount
}

// IsBookable reports whether the slot admits new reservations. Blocked and
// cancelled override availability regardless of count.
func (s *AvailabilitySlot) IsBookable(now time.Time) bool {
	return s.DeletedAt == nil &&
		s.Status == SlotStatusAvailable &&
		s.RemainingCapacity() > 0 &&
		s.StartAt.After(now)
}

// Booking is a client's reservation of a service. The financial fields
// subtotal/tax_amount/total_amount are always server-derived.
type Booking struct {
	ID              int64           `db:"id" json:"id"`
	Code            string          `db:"code" json:"code"`
	ClientID        int64           `db:"client_id" json:"client_id"`
	ProviderID      int64           `db:"provider_id" json:"provider_id"`
	OfferingID      int64           `db:"offering_id" json:"offering_id"`
	SlotID          *int64          `db:"slot_id" json:"slot_id,omitempty"`
	Quantity        int             `db:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	DiscountAmount  decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TaxRate         decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount       decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Currency        string          `db:"currency" json:"currency"`
	Status          string          `db:"status" json:"status"`
	PaymentStatus   string          `db:"payment_status" json:"payment_status"`
	Notes           string          `db:"notes" json:"notes,omitempty"`
	CancelledReason string          `db:"cancelled_reason" json:"cancelled_reason,omitempty"`
	CancelledAt     *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Booking statuses
const (
	BookingStatusPending    = "pending"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
)

// Booking payment statuses
const (
	PaymentStateUnpaid   = "unpaid"
	PaymentStatePaid     = "paid"
	PaymentStateRefunded = "refunded"
	PaymentStatePartial  = "partial"
)

// Payment is a single money-movement attempt against one booking.
type Payment struct {
	ID             int64           `db:"id" json:"id"`
	BookingID      int64           `db:"booking_id" json:"booking_id"`
	ClientID       int64           `db:"client_id" json:"client_id"`
	ProviderID     int64           `db:"provider_id" json:"provider_id"`
	Reference      string          `db:"reference" json:"reference"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	ProcessorFee   decimal.Decimal `db:"processor_fee" json:"processor_fee"`
	NetAmount      decimal.Decimal `db:"net_amount" json:"net_amount"`
	Currency       string          `db:"currency" json:"currency"`
	Method         string          `db:"method" json:"method"`
	Gateway        string          `db:"gateway" json:"gateway"`
	ExternalID     string          `db:"external_id" json:"external_id,omitempty"`
	Status         string          `db:"status" json:"status"`
	FailureCode    string          `db:"failure_code" json:"failure_code,omitempty"`
	FailureMessage string          `db:"failure_message" json:"failure_message,omitempty"`
	AuthorizedAt   *time.Time      `db:"authorized_at" json:"authorized_at,omitempty"`
	CapturedAt     *time.Time      `db:"captured_at" json:"captured_at,omitempty"`
	RefundedAt     *time.Time      `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Payment statuses
const (
	PaymentStatusPending    = "pending"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusCancelled  = "cancelled"
)

// Commission is the platform's earned cut of a booking or subscription
// charge. Exactly one of booking_id/subscription_id is set.
type Commission struct {
	ID              int64           `db:"id" json:"id"`
	BookingID       *int64          `db:"booking_id" json:"booking_id,omitempty"`
	SubscriptionID  *int64          `db:"subscription_id" json:"subscription_id,omitempty"`
	ProviderID      int64           `db:"provider_id" json:"provider_id"`
	BaseAmount      decimal.Decimal `db:"base_amount" json:"base_amount"`
	CommissionType  string          `db:"commission_type" json:"commission_type"`
	CommissionRate  decimal.Decimal `db:"commission_rate" json:"commission_rate"`
	CommissionFixed decimal.Decimal `db:"commission_fixed" json:"commission_fixed"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Currency        string          `db:"currency" json:"currency"`
	Status          string          `db:"status" json:"status"`
	ExternalRef     string          `db:"external_ref" json:"external_ref,omitempty"`
	CancelReason    string          `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CapturedAt      *time.Time      `db:"captured_at" json:"captured_at,omitempty"`
	SettledAt       *time.Time      `db:"settled_at" json:"settled_at,omitempty"`
	RefundedAt      *time.Time      `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Commission rule types
const (
	CommissionTypePercent = "percent"
	CommissionTypeFixed   = "fixed"
)

// Commission statuses
const (
	CommissionStatusPending   = "pending"
	CommissionStatusCaptured  = "captured"
	CommissionStatusSettled   = "settled"
	CommissionStatusRefunded  = "refunded"
	CommissionStatusCancelled = "cancelled"
)

// Subscription carries a provider's plan and its commission rule. Its
// commission math must stay identical to the commission engine, so it
// delegates to ComputeCommission.
type Subscription struct {
	ID              int64           `db:"id" json:"id"`
	ProviderID      int64           `db:"provider_id" json:"provider_id"`
	PlanName        string          `db:"plan_name" json:"plan_name"`
	CommissionType  string          `db:"commission_type" json:"commission_type"`
	CommissionRate  decimal.Decimal `db:"commission_rate" json:"commission_rate"`
	CommissionFixed decimal.Decimal `db:"commission_fixed" json:"commission_fixed"`
	Status          string          `db:"status" json:"status"`
	PeriodStart     time.Time       `db:"period_start" json:"period_start"`
	PeriodEnd       time.Time       `db:"period_end" json:"period_end"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// SubscriptionStatusActive marks a subscription whose rule applies.
const SubscriptionStatusActive = "active"

// ComputeCommission applies a percent or fixed commission rule to a base
// amount, rounded to currency precision. Unknown rule types yield zero.
func ComputeCommission(base decimal.Decimal, ruleType string, rate, fixed decimal.Decimal) decimal.Decimal {
	switch ruleType {
	case CommissionTypePercent:
		return base.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	case CommissionTypeFixed:
		return fixed.Round(2)
	}
	return decimal.Zero
}

// ComputeCommission returns the platform cut of a subscription charge under
// this subscription's rule.
func (s *Subscription) ComputeCommission(amount decimal.Decimal) decimal.Decimal {
	return ComputeCommission(amount, s.CommissionType, s.CommissionRate, s.CommissionFixed)
}

// ComputeNet derives a payment net amount: amount minus processor fee,
// floored at zero.
func ComputeNet(amount, processorFee decimal.Decimal) decimal.Decimal {
	net := amount.Sub(processorFee).Round(2)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// ComputeBookingTotals derives subtotal, tax amount and total from the
// contributing fields. Subtotal floors at zero when the discount exceeds
// the gross amount.
func ComputeBookingTotals(quantity int, unitPrice, discount, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount).Round(2)
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	tax = subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}

// ProcessedEvent records a consumed event id for worker idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
