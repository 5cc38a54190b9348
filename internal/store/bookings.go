package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-service/internal/models"

	"github.com/lib/pq"
)

const insertBookingQuery = `
	INSERT INTO bookings
		(code, client_id, provider_id, offering_id, slot_id, quantity,
		 unit_price, discount_amount, tax_rate, subtotal, tax_amount,
		 total_amount, currency, status, payment_status, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id, created_at, updated_at`

// CreateBooking inserts a booking with its derived financial fields.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	return s.db.GetContext(ctx, b, insertBookingQuery,
		b.Code, b.ClientID, b.ProviderID, b.OfferingID, b.SlotID, b.Quantity,
		b.UnitPrice, b.DiscountAmount, b.TaxRate, b.Subtotal, b.TaxAmount,
		b.TotalAmount, b.Currency, b.Status, b.PaymentStatus, b.Notes)
}

// CreateBookingWithSlot inserts the booking and consumes slot capacity in
// one transaction, so a capacity rejection leaves no partial write.
func (s *Store) CreateBookingWithSlot(ctx context.Context, b *models.Booking) (*models.AvailabilitySlot, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	slot, err := bookSlot(ctx, tx, s, *b.SlotID, b.Quantity)
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, b, insertBookingQuery,
		b.Code, b.ClientID, b.ProviderID, b.OfferingID, b.SlotID, b.Quantity,
		b.UnitPrice, b.DiscountAmount, b.TaxRate, b.Subtotal, b.TaxAmount,
		b.TotalAmount, b.Currency, b.Status, b.PaymentStatus, b.Notes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}
	return slot, nil
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingByCode retrieves a booking by its human-readable code
func (s *Store) GetBookingByCode(ctx context.Context, code string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, "SELECT * FROM bookings WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBookingFields persists mutable booking fields together with the
// re-derived financials.
func (s *Store) UpdateBookingFields(ctx context.Context, b *models.Booking) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET quantity = $2, unit_price = $3, discount_amount = $4, tax_rate = $5,
		    subtotal = $6, tax_amount = $7, total_amount = $8, currency = $9,
		    notes = $10, updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.Quantity, b.UnitPrice, b.DiscountAmount, b.TaxRate,
		b.Subtotal, b.TaxAmount, b.TotalAmount, b.Currency, b.Notes)
	return err
}

// TransitionBookingStatus moves a booking along one status edge with a
// compare-and-set guard. Returns false when the row was not in the expected
// status.
func (s *Store) TransitionBookingStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2",
		id, from, to)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CancelBooking marks the booking cancelled and, for slot-backed bookings,
// releases the consumed capacity in the same transaction.
func (s *Store) CancelBooking(ctx context.Context, b *models.Booking, reason string, from string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = $3, cancelled_reason = $4, cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		b.ID, from, models.BookingStatusCancelled, reason)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if b.SlotID != nil {
		if _, err := unbookSlot(ctx, tx, s, *b.SlotID, b.Quantity); err != nil {
			// A drained counter or a since-deleted slot leaves nothing to
			// release; neither is a reason to keep the booking alive.
			if err != models.ErrNothingToUnbook && err != models.ErrSlotNotFound {
				return false, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// SetBookingPaymentStatus sets the payment_status enum directly.
func (s *Store) SetBookingPaymentStatus(ctx context.Context, id int64, paymentStatus string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1",
		id, paymentStatus)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrBookingNotFound
	}
	return nil
}

// UpdateBookingFinancials overwrites only the derived fields, used by
// recompute/backfill.
func (s *Store) UpdateBookingFinancials(ctx context.Context, b *models.Booking) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET subtotal = $2, tax_amount = $3, total_amount = $4, updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.Subtotal, b.TaxAmount, b.TotalAmount)
	return err
}

// ListStalePendingBookings retrieves pending bookings created before the
// cutoff, for the expiry sweep.
func (s *Store) ListStalePendingBookings(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`,
		models.BookingStatusPending, cutoff, limit)
	return bookings, err
}

// ListBookingsByClient retrieves bookings for a client
func (s *Store) ListBookingsByClient(ctx context.Context, clientID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE client_id = $1 ORDER BY created_at DESC", clientID)
	return bookings, err
}

// ListBookingsByStatus retrieves bookings in one status, oldest first.
func (s *Store) ListBookingsByStatus(ctx context.Context, statuses []string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE status = ANY($1) ORDER BY created_at", pq.Array(statuses))
	return bookings, err
}
