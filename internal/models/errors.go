package models

import (
	"errors"
	"fmt"
)

var (
	ErrSlotNotFound       = errors.New("slot not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrCommissionNotFound = errors.New("commission not found")
	ErrOfferingNotFound   = errors.New("service offering not found")
)

// ErrNothingToUnbook is returned when releasing capacity on a slot with no
// active reservations.
var ErrNothingToUnbook = errors.New("slot has no booked capacity to release")

// ErrValidation marks malformed or out-of-range input; no mutation happened.
var ErrValidation = errors.New("validation error")

// NotBookableError is returned when a slot rejects reservations for a reason
// other than capacity: wrong status, past start, or soft-deleted.
type NotBookableError struct {
	SlotID int64
	Status string
}

func (e *NotBookableError) Error() string {
	return fmt.Sprintf("slot %d is not bookable (status=%s)", e.SlotID, e.Status)
}

// InsufficientCapacityError carries the remaining capacity so callers can
// retry with a smaller quantity.
type InsufficientCapacityError struct {
	SlotID    int64
	Requested int
	Remaining int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("slot %d has insufficient capacity: requested=%d remaining=%d",
		e.SlotID, e.Requested, e.Remaining)
}

// TransitionError is returned for a status edge outside the transition
// table.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", e.Entity, e.From, e.To)
}

// ValidationError wraps ErrValidation with a field-level message.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
