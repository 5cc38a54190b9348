package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateSlot creates a new availability slot
func (s *Store) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots
			(provider_id, offering_id, start_at, end_at, capacity, booked_count,
			 status, price_override, currency, recurrence_rule, recurrence_end, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, slot, query,
		slot.ProviderID, slot.OfferingID, slot.StartAt, slot.EndAt,
		slot.Capacity, slot.BookedCount, slot.Status, slot.PriceOverride,
		slot.Currency, slot.RecurrenceRule, slot.RecurrenceEnd, slot.ParentID)
}

// GetSlotByID retrieves a live (non-deleted) slot by ID
func (s *Store) GetSlotByID(ctx context.Context, id int64) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := s.db.GetContext(ctx, &slot,
		"SELECT * FROM availability_slots WHERE id = $1 AND deleted_at IS NULL", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// GetSlotForAudit retrieves a slot regardless of soft deletion
func (s *Store) GetSlotForAudit(ctx context.Context, id int64) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := s.db.GetContext(ctx, &slot,
		"SELECT * FROM availability_slots WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// bookSlotQuery admits qty units in one conditional statement. The guard is
// the capacity invariant: concurrent callers can never push booked_count
// past capacity because the comparison and the increment are one atomic
// UPDATE.
const bookSlotQuery = `
	UPDATE availability_slots
	SET booked_count = booked_count + $2,
	    status = CASE WHEN booked_count + $2 >= capacity THEN 'full' ELSE status END,
	    updated_at = NOW()
	WHERE id = $1
	  AND deleted_at IS NULL
	  AND status = 'available'
	  AND start_at > NOW()
	  AND booked_count + $2 <= capacity
	RETURNING *`

// BookSlot atomically reserves qty units of slot capacity. On rejection the
// slot is re-read to classify the failure.
func (s *Store) BookSlot(ctx context.Context, slotID int64, qty int) (*models.AvailabilitySlot, error) {
	return bookSlot(ctx, s.db, s, slotID, qty)
}

func bookSlot(ctx context.Context, q sqlx.ExtContext, s *Store, slotID int64, qty int) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := sqlx.GetContext(ctx, q, &slot, bookSlotQuery, slotID, qty)
	if err == nil {
		return &slot, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to book slot: %w", err)
	}

	current, lookupErr := s.GetSlotByID(ctx, slotID)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if current.Status == models.SlotStatusBlocked || current.Status == models.SlotStatusCancelled || !current.StartAt.After(time.Now()) {
		return nil, &models.NotBookableError{SlotID: slotID, Status: current.Status}
	}
	// A full slot, or one without enough remaining units, is a capacity
	// shortfall rather than a state problem.
	return nil, &models.InsufficientCapacityError{
		SlotID:    slotID,
		Requested: qty,
		Remaining: current.RemainingCapacity(),
	}
}

// unbookSlotQuery releases up to qty units and reopens a full slot once the
// count drops below capacity.
const unbookSlotQuery = `
	UPDATE availability_slots
	SET booked_count = GREATEST(booked_count - $2, 0),
	    status = CASE
	        WHEN status = 'full' AND GREATEST(booked_count - $2, 0) < capacity THEN 'available'
	        ELSE status
	    END,
	    updated_at = NOW()
	WHERE id = $1
	  AND deleted_at IS NULL
	  AND booked_count > 0
	RETURNING *`

// UnbookSlot atomically releases up to qty units of slot capacity.
func (s *Store) UnbookSlot(ctx context.Context, slotID int64, qty int) (*models.AvailabilitySlot, error) {
	return unbookSlot(ctx, s.db, s, slotID, qty)
}

func unbookSlot(ctx context.Context, q sqlx.ExtContext, s *Store, slotID int64, qty int) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := sqlx.GetContext(ctx, q, &slot, unbookSlotQuery, slotID, qty)
	if err == nil {
		return &slot, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to unbook slot: %w", err)
	}

	if _, lookupErr := s.GetSlotByID(ctx, slotID); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, models.ErrNothingToUnbook
}

// SetSlotStatus applies an administrative status override. It never touches
// booked_count.
func (s *Store) SetSlotStatus(ctx context.Context, slotID int64, status string) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := s.db.GetContext(ctx, &slot, `
		UPDATE availability_slots
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING *`,
		slotID, status)
	if err == sql.ErrNoRows {
		return nil, models.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// SoftDeleteSlot logically removes a slot; it stays retrievable for audit.
func (s *Store) SoftDeleteSlot(ctx context.Context, slotID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE availability_slots SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		slotID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrSlotNotFound
	}
	return nil
}

// ListRecurringTemplates retrieves live template slots that spawn recurring
// instances.
func (s *Store) ListRecurringTemplates(ctx context.Context) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := s.db.SelectContext(ctx, &slots, `
		SELECT * FROM availability_slots
		WHERE recurrence_rule <> $1 AND parent_id IS NULL AND deleted_at IS NULL
		ORDER BY id`,
		models.RecurrenceNone)
	return slots, err
}

// ListUpcomingSlots retrieves live future slots still accepting or holding
// reservations, for mirror warmup.
func (s *Store) ListUpcomingSlots(ctx context.Context) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := s.db.SelectContext(ctx, &slots, `
		SELECT * FROM availability_slots
		WHERE deleted_at IS NULL AND start_at > NOW() AND status IN ($1, $2)
		ORDER BY start_at`,
		models.SlotStatusAvailable, models.SlotStatusFull)
	return slots, err
}

// SlotInstanceExists checks whether a recurrence instance already exists for
// a template at a given start time.
func (s *Store) SlotInstanceExists(ctx context.Context, parentID int64, startAt time.Time) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM availability_slots
			WHERE parent_id = $1 AND start_at = $2 AND deleted_at IS NULL
		)`,
		parentID, startAt)
	return exists, err
}
