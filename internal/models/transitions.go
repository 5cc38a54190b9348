package models

// Status transition tables. An entity may only move along a listed edge;
// terminal statuses have no entry.

var bookingTransitions = map[string][]string{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

var paymentTransitions = map[string][]string{
	PaymentStatusPending:    {PaymentStatusAuthorized, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusAuthorized: {PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled},
	// succeeded is not terminal: a late processor failure or an operator
	// cancellation can still land after capture.
	PaymentStatusSucceeded: {PaymentStatusRefunded, PaymentStatusFailed, PaymentStatusCancelled},
}

var commissionTransitions = map[string][]string{
	CommissionStatusPending:  {CommissionStatusCaptured, CommissionStatusCancelled},
	CommissionStatusCaptured: {CommissionStatusSettled, CommissionStatusRefunded, CommissionStatusCancelled},
	CommissionStatusSettled:  {CommissionStatusRefunded},
}

func allowed(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BookingCanTransition reports whether a booking may move from one status to
// another.
func BookingCanTransition(from, to string) bool {
	return allowed(bookingTransitions, from, to)
}

// PaymentCanTransition reports whether a payment may move from one status to
// another.
func PaymentCanTransition(from, to string) bool {
	return allowed(paymentTransitions, from, to)
}

// CommissionCanTransition reports whether a commission may move from one
// status to another.
func CommissionCanTransition(from, to string) bool {
	return allowed(commissionTransitions, from, to)
}

// ValidPaymentState reports whether s is a known booking payment_status.
func ValidPaymentState(s string) bool {
	switch s {
	case PaymentStateUnpaid, PaymentStatePaid, PaymentStateRefunded, PaymentStatePartial:
		return true
	}
	return false
}

// ValidSlotStatus reports whether s is a known slot status.
func ValidSlotStatus(s string) bool {
	switch s {
	case SlotStatusAvailable, SlotStatusFull, SlotStatusBlocked, SlotStatusCancelled:
		return true
	}
	return false
}
