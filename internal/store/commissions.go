package store

import (
	"context"
	"database/sql"

	"booking-service/internal/models"
)

// CreateCommission inserts a commission record.
func (s *Store) CreateCommission(ctx context.Context, c *models.Commission) error {
	query := `
		INSERT INTO commissions
			(booking_id, subscription_id, provider_id, base_amount,
			 commission_type, commission_rate, commission_fixed, amount,
			 currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, c, query,
		c.BookingID, c.SubscriptionID, c.ProviderID, c.BaseAmount,
		c.CommissionType, c.CommissionRate, c.CommissionFixed, c.Amount,
		c.Currency, c.Status)
}

// GetCommissionByID retrieves a commission by ID
func (s *Store) GetCommissionByID(ctx context.Context, id int64) (*models.Commission, error) {
	var c models.Commission
	err := s.db.GetContext(ctx, &c, "SELECT * FROM commissions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrCommissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCommissionByBooking retrieves the commission for a booking, or nil when
// none exists. Guards against double crediting one booking.
func (s *Store) GetCommissionByBooking(ctx context.Context, bookingID int64) (*models.Commission, error) {
	var c models.Commission
	err := s.db.GetContext(ctx, &c,
		"SELECT * FROM commissions WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1", bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CaptureCommission moves pending → captured, stamping captured_at and the
// optional external settlement reference.
func (s *Store) CaptureCommission(ctx context.Context, id int64, externalRef string) (*models.Commission, bool, error) {
	var c models.Commission
	err := s.db.GetContext(ctx, &c, `
		UPDATE commissions
		SET status = $2, external_ref = COALESCE(NULLIF($3, ''), external_ref),
		    captured_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING *`,
		id, models.CommissionStatusCaptured, externalRef, models.CommissionStatusPending)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

// SettleCommission moves captured → settled, stamping settled_at.
func (s *Store) SettleCommission(ctx context.Context, id int64) (*models.Commission, bool, error) {
	var c models.Commission
	err := s.db.GetContext(ctx, &c, `
		UPDATE commissions
		SET status = $2, settled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *`,
		id, models.CommissionStatusSettled, models.CommissionStatusCaptured)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

// RefundCommission moves captured/settled → refunded, stamping refunded_at.
func (s *Store) RefundCommission(ctx context.Context, id int64) (*models.Commission, bool, error) {
	var c models.Commission
	err := s.db.GetContext(ctx, &c, `
		UPDATE commissions
		SET status = $2, refunded_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING *`,
		id, models.CommissionStatusRefunded,
		models.CommissionStatusCaptured, models.CommissionStatusSettled)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

// CancelCommission moves pending/captured → cancelled with a reason.
func (s *Store) CancelCommission(ctx context.Context, id int64, reason string) (*models.Commission, bool, error) {
	var c models.Commission
	err := s.db.GetContext(ctx, &c, `
		UPDATE commissions
		SET status = $2, cancel_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING *`,
		id, models.CommissionStatusCancelled, reason,
		models.CommissionStatusPending, models.CommissionStatusCaptured)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

// UpdateCommissionAmount overwrites base_amount and the re-derived amount.
func (s *Store) UpdateCommissionAmount(ctx context.Context, c *models.Commission) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE commissions
		SET base_amount = $2, amount = $3, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.BaseAmount, c.Amount)
	return err
}
