package store

import (
	"context"
	"database/sql"

	"booking-service/internal/models"

	"github.com/shopspring/decimal"
)

// CreatePayment inserts a payment record.
func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments
			(booking_id, client_id, provider_id, reference, idempotency_key,
			 amount, processor_fee, net_amount, currency, method, gateway, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, p, query,
		p.BookingID, p.ClientID, p.ProviderID, p.Reference, nullIfEmpty(p.IdempotencyKey),
		p.Amount, p.ProcessorFee, p.NetAmount, p.Currency, p.Method, p.Gateway, p.Status)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// GetPaymentByID retrieves a payment by ID
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, "SELECT * FROM payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPaymentByIdempotencyKey retrieves a payment by idempotency key, or nil
// when none exists. Duplicate-submission creates answer from this record.
func (s *Store) GetPaymentByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, "SELECT * FROM payments WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPaymentsByBooking retrieves payments against a booking, newest first.
func (s *Store) ListPaymentsByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE booking_id = $1 ORDER BY created_at DESC", bookingID)
	return payments, err
}

// AuthorizePayment moves pending → authorized, stamping authorized_at.
func (s *Store) AuthorizePayment(ctx context.Context, id int64) (*models.Payment, bool, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, `
		UPDATE payments
		SET status = $2, authorized_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING *`,
		id, models.PaymentStatusAuthorized, models.PaymentStatusPending)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// CapturePayment is the one path that updates fee/external id, recomputes
// net_amount and advances to succeeded atomically.
func (s *Store) CapturePayment(ctx context.Context, id int64, fee *decimal.Decimal, externalID *string) (*models.Payment, bool, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, `
		UPDATE payments
		SET processor_fee = COALESCE($2, processor_fee),
		    external_id = COALESCE($3, external_id),
		    net_amount = GREATEST(amount - COALESCE($2, processor_fee), 0),
		    status = $4, captured_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $5
		RETURNING *`,
		id, fee, externalID, models.PaymentStatusSucceeded, models.PaymentStatusAuthorized)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// FailPayment records failure diagnostics and moves to failed.
func (s *Store) FailPayment(ctx context.Context, id int64, code, message string) (*models.Payment, bool, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, `
		UPDATE payments
		SET status = $2, failure_code = $3, failure_message = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ($5, $6, $7)
		RETURNING *`,
		id, models.PaymentStatusFailed, code, message,
		models.PaymentStatusPending, models.PaymentStatusAuthorized, models.PaymentStatusSucceeded)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// RefundPayment moves authorized/succeeded → refunded, stamping refunded_at.
func (s *Store) RefundPayment(ctx context.Context, id int64) (*models.Payment, bool, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, `
		UPDATE payments
		SET status = $2, refunded_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING *`,
		id, models.PaymentStatusRefunded,
		models.PaymentStatusAuthorized, models.PaymentStatusSucceeded)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// CancelPayment moves any non-terminal payment to cancelled.
func (s *Store) CancelPayment(ctx context.Context, id int64) (*models.Payment, bool, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, `
		UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4, $5)
		RETURNING *`,
		id, models.PaymentStatusCancelled,
		models.PaymentStatusPending, models.PaymentStatusAuthorized, models.PaymentStatusSucceeded)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// RecomputePaymentNet re-derives net_amount from the stored amount and fee
// without a status change.
func (s *Store) RecomputePaymentNet(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, `
		UPDATE payments
		SET net_amount = GREATEST(amount - processor_fee, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING *`,
		id)
	if err == sql.ErrNoRows {
		return nil, models.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
