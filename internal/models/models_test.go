package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeBookingTotals(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		unitPrice string
		discount  string
		taxRate   string
		subtotal  string
		tax       string
		total     string
	}{
		{
			name:     "standard rate",
			quantity: 2, unitPrice: "10000", discount: "0", taxRate: "19.25",
			subtotal: "20000", tax: "3850", total: "23850",
		},
		{
			name:     "with discount",
			quantity: 3, unitPrice: "5000", discount: "2500", taxRate: "19.25",
			subtotal: "12500", tax: "2406.25", total: "14906.25",
		},
		{
			name:     "zero tax",
			quantity: 1, unitPrice: "7500", discount: "0", taxRate: "0",
			subtotal: "7500", tax: "0", total: "7500",
		},
		{
			name:     "discount exceeds gross",
			quantity: 1, unitPrice: "1000", discount: "5000", taxRate: "19.25",
			subtotal: "0", tax: "0", total: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, tax, total := ComputeBookingTotals(
				tt.quantity,
				decimal.RequireFromString(tt.unitPrice),
				decimal.RequireFromString(tt.discount),
				decimal.RequireFromString(tt.taxRate),
			)
			assert.True(t, decimal.RequireFromString(tt.subtotal).Equal(subtotal), "subtotal: got %s", subtotal)
			assert.True(t, decimal.RequireFromString(tt.tax).Equal(tax), "tax: got %s", tax)
			assert.True(t, decimal.RequireFromString(tt.total).Equal(total), "total: got %s", total)
		})
	}
}

func TestComputeBookingTotalsIdempotent(t *testing.T) {
	// Recomputing from the same inputs must reproduce the same outputs
	s1, t1, tot1 := ComputeBookingTotals(2, decimal.RequireFromString("10000"), decimal.Zero, decimal.RequireFromString("19.25"))
	s2, t2, tot2 := ComputeBookingTotals(2, decimal.RequireFromString("10000"), decimal.Zero, decimal.RequireFromString("19.25"))

	assert.True(t, s1.Equal(s2))
	assert.True(t, t1.Equal(t2))
	assert.True(t, tot1.Equal(tot2))
}

func TestComputeNet(t *testing.T) {
	net := ComputeNet(decimal.RequireFromString("25000"), decimal.RequireFromString("500"))
	assert.True(t, decimal.RequireFromString("24500").Equal(net))

	// Fee larger than the amount floors at zero
	net = ComputeNet(decimal.RequireFromString("100"), decimal.RequireFromString("500"))
	assert.True(t, net.IsZero())

	net = ComputeNet(decimal.RequireFromString("25000"), decimal.Zero)
	assert.True(t, decimal.RequireFromString("25000").Equal(net))
}

func TestComputeCommission(t *testing.T) {
	base := decimal.RequireFromString("10000")

	percent := ComputeCommission(base, CommissionTypePercent, decimal.RequireFromString("10"), decimal.Zero)
	assert.True(t, decimal.RequireFromString("1000").Equal(percent))

	fixed := ComputeCommission(base, CommissionTypeFixed, decimal.Zero, decimal.RequireFromString("750"))
	assert.True(t, decimal.RequireFromString("750").Equal(fixed))

	// Fractional percent rounds to currency precision
	rounded := ComputeCommission(decimal.RequireFromString("999"), CommissionTypePercent, decimal.RequireFromString("12.5"), decimal.Zero)
	assert.True(t, decimal.RequireFromString("124.88").Equal(rounded))

	unknown := ComputeCommission(base, "tiered", decimal.RequireFromString("10"), decimal.RequireFromString("750"))
	assert.True(t, unknown.IsZero())
}

func TestSubscriptionComputeCommission(t *testing.T) {
	sub := &Subscription{
		CommissionType: CommissionTypePercent,
		CommissionRate: decimal.RequireFromString("15"),
	}
	got := sub.ComputeCommission(decimal.RequireFromString("20000"))
	assert.True(t, decimal.RequireFromString("3000").Equal(got))
}

func TestBookingTransitions(t *testing.T) {
	assert.True(t, BookingCanTransition(BookingStatusPending, BookingStatusConfirmed))
	assert.True(t, BookingCanTransition(BookingStatusPending, BookingStatusCancelled))
	assert.True(t, BookingCanTransition(BookingStatusConfirmed, BookingStatusInProgress))
	assert.True(t, BookingCanTransition(BookingStatusInProgress, BookingStatusCompleted))

	// Terminal statuses have no outgoing edges
	assert.False(t, BookingCanTransition(BookingStatusCompleted, BookingStatusCancelled))
	assert.False(t, BookingCanTransition(BookingStatusCancelled, BookingStatusConfirmed))

	assert.False(t, BookingCanTransition(BookingStatusConfirmed, BookingStatusPending))
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, PaymentCanTransition(PaymentStatusPending, PaymentStatusAuthorized))
	assert.True(t, PaymentCanTransition(PaymentStatusAuthorized, PaymentStatusSucceeded))
	assert.True(t, PaymentCanTransition(PaymentStatusSucceeded, PaymentStatusRefunded))

	// succeeded can still fail or be cancelled after the fact
	assert.True(t, PaymentCanTransition(PaymentStatusSucceeded, PaymentStatusFailed))
	assert.True(t, PaymentCanTransition(PaymentStatusSucceeded, PaymentStatusCancelled))

	// Capture requires authorization first
	assert.False(t, PaymentCanTransition(PaymentStatusPending, PaymentStatusSucceeded))
	assert.False(t, PaymentCanTransition(PaymentStatusFailed, PaymentStatusAuthorized))
	assert.False(t, PaymentCanTransition(PaymentStatusRefunded, PaymentStatusSucceeded))
}

func TestCommissionTransitions(t *testing.T) {
	assert.True(t, CommissionCanTransition(CommissionStatusPending, CommissionStatusCaptured))
	assert.True(t, CommissionCanTransition(CommissionStatusCaptured, CommissionStatusSettled))
	assert.True(t, CommissionCanTransition(CommissionStatusSettled, CommissionStatusRefunded))

	assert.False(t, CommissionCanTransition(CommissionStatusPending, CommissionStatusSettled))
	assert.False(t, CommissionCanTransition(CommissionStatusRefunded, CommissionStatusSettled))
}

func TestSlotIsBookable(t *testing.T) {
	now := time.Now()
	slot := &AvailabilitySlot{
		StartAt:     now.Add(time.Hour),
		Capacity:    5,
		BookedCount: 2,
		Status:      SlotStatusAvailable,
	}

	assert.True(t, slot.IsBookable(now))
	assert.Equal(t, 3, slot.RemainingCapacity())

	full := *slot
	full.BookedCount = 5
	assert.False(t, full.IsBookable(now))

	blocked := *slot
	blocked.Status = SlotStatusBlocked
	assert.False(t, blocked.IsBookable(now))

	past := *slot
	past.StartAt = now.Add(-time.Hour)
	assert.False(t, past.IsBookable(now))

	deleted := *slot
	deletedAt := now
	deleted.DeletedAt = &deletedAt
	assert.False(t, deleted.IsBookable(now))
}
