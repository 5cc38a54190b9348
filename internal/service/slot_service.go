package service

import (
	"context"
	"fmt"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SlotService owns availability-slot capacity and status. Admission is
// decided by a single conditional update in Postgres; the Redis mirror only
// serves fast availability reads.
type SlotService struct {
	store   *store.Store
	redis   *redisclient.Client
	catalog *CatalogClient
	logger  *zap.Logger
}

// NewSlotService creates a new slot service
func NewSlotService(store *store.Store, redis *redisclient.Client, catalog *CatalogClient) *SlotService {
	return &SlotService{
		store:   store,
		redis:   redis,
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// CreateSlotRequest represents a request to create an availability slot
type CreateSlotRequest struct {
	ProviderID     int64            `json:"provider_id"`
	OfferingID     int64            `json:"offering_id" binding:"required"`
	StartAt        time.Time        `json:"start_at" binding:"required"`
	EndAt          time.Time        `json:"end_at" binding:"required"`
	Capacity       int              `json:"capacity" binding:"required,min=1"`
	PriceOverride  *decimal.Decimal `json:"price_override,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	RecurrenceRule string           `json:"recurrence_rule,omitempty"`
	RecurrenceEnd  *time.Time       `json:"recurrence_end,omitempty"`
}

// CreateSlot creates a bookable slot, defaulting provider and currency from
// the referenced offering.
func (ss *SlotService) CreateSlot(ctx context.Context, req *CreateSlotRequest) (*models.AvailabilitySlot, error) {
	ctx, span := util.StartSpan(ctx, "SlotService.CreateSlot")
	defer span.End()

	if !req.EndAt.After(req.StartAt) {
		return nil, models.ValidationError("end_at must be after start_at")
	}
	if req.PriceOverride != nil && req.PriceOverride.IsNegative() {
		return nil, models.ValidationError("price_override must not be negative")
	}

	rule := req.RecurrenceRule
	if rule == "" {
		rule = models.RecurrenceNone
	}
	switch rule {
	case models.RecurrenceNone, models.RecurrenceDaily, models.RecurrenceWeekly:
	default:
		return nil, models.ValidationError("unknown recurrence_rule %q", rule)
	}

	offering, err := ss.catalog.GetOffering(ctx, req.OfferingID)
	if err != nil {
		return nil, err
	}

	providerID := req.ProviderID
	if providerID == 0 {
		providerID = offering.ProviderID
	}
	currency := req.Currency
	if currency == "" {
		currency = offering.Currency
	}

	slot := &models.AvailabilitySlot{
		ProviderID:     providerID,
		OfferingID:     req.OfferingID,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Capacity:       req.Capacity,
		BookedCount:    0,
		Status:         models.SlotStatusAvailable,
		PriceOverride:  req.PriceOverride,
		Currency:       currency,
		RecurrenceRule: rule,
		RecurrenceEnd:  req.RecurrenceEnd,
	}

	if err := ss.store.CreateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}

	ss.mirrorSlot(slot)
	return slot, nil
}

// Book reserves qty units of slot capacity. Exactly one of two concurrent
// callers racing for the last units wins.
func (ss *SlotService) Book(ctx context.Context, slotID int64, qty int) (*models.AvailabilitySlot, error) {
	ctx, span := util.StartSpan(ctx, "SlotService.Book")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SlotBookLatency.Observe(time.Since(start).Seconds())
	}()

	if qty < 1 {
		return nil, models.ValidationError("quantity must be at least 1")
	}

	slot, err := ss.store.BookSlot(ctx, slotID, qty)
	if err != nil {
		switch err.(type) {
		case *models.NotBookableError:
			util.SlotBookingsDeniedTotal.WithLabelValues("not_bookable").Inc()
		case *models.InsufficientCapacityError:
			util.SlotBookingsDeniedTotal.WithLabelValues("insufficient_capacity").Inc()
		}
		return nil, err
	}

	util.SlotBookingsTotal.Inc()
	ss.logger.Info("Slot capacity booked",
		zap.Int64("slot_id", slotID),
		zap.Int("quantity", qty),
		zap.Int("booked_count", slot.BookedCount))

	ss.syncMirrorBooking(slotID, qty)
	return slot, nil
}

// Unbook releases up to qty previously booked units.
func (ss *SlotService) Unbook(ctx context.Context, slotID int64, qty int) (*models.AvailabilitySlot, error) {
	ctx, span := util.StartSpan(ctx, "SlotService.Unbook")
	defer span.End()

	if qty < 1 {
		return nil, models.ValidationError("quantity must be at least 1")
	}

	slot, err := ss.store.UnbookSlot(ctx, slotID, qty)
	if err != nil {
		return nil, err
	}

	util.SlotReleasesTotal.Inc()
	ss.syncMirrorRelease(slotID, qty)
	return slot, nil
}

// SetStatus applies an administrative status override (block, cancel,
// reopen). booked_count is untouched.
func (ss *SlotService) SetStatus(ctx context.Context, slotID int64, status string) (*models.AvailabilitySlot, error) {
	ctx, span := util.StartSpan(ctx, "SlotService.SetStatus")
	defer span.End()

	if !models.ValidSlotStatus(status) {
		return nil, models.ValidationError("unknown slot status %q", status)
	}

	slot, err := ss.store.SetSlotStatus(ctx, slotID, status)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.SlotStatusBlocked, models.SlotStatusCancelled:
		if err := ss.redis.DropSlotMirror(ctx, slotID); err != nil {
			ss.logger.Warn("Failed to drop slot mirror", zap.Int64("slot_id", slotID), zap.Error(err))
		}
	default:
		ss.mirrorSlot(slot)
	}

	return slot, nil
}

// Delete soft-deletes a slot; it stays retrievable for audit.
func (ss *SlotService) Delete(ctx context.Context, slotID int64) error {
	ctx, span := util.StartSpan(ctx, "SlotService.Delete")
	defer span.End()

	if err := ss.store.SoftDeleteSlot(ctx, slotID); err != nil {
		return err
	}
	if err := ss.redis.DropSlotMirror(ctx, slotID); err != nil {
		ss.logger.Warn("Failed to drop slot mirror", zap.Int64("slot_id", slotID), zap.Error(err))
	}
	return nil
}

// Get retrieves a live slot
func (ss *SlotService) Get(ctx context.Context, slotID int64) (*models.AvailabilitySlot, error) {
	return ss.store.GetSlotByID(ctx, slotID)
}

// GetForAudit retrieves a slot regardless of soft deletion
func (ss *SlotService) GetForAudit(ctx context.Context, slotID int64) (*models.AvailabilitySlot, error) {
	return ss.store.GetSlotForAudit(ctx, slotID)
}

// Availability reports remaining capacity and bookability, answering from
// the Redis mirror when possible and falling back to the database.
func (ss *SlotService) Availability(ctx context.Context, slotID int64) (remaining int, bookable bool, err error) {
	capacity, booked, mirrorErr := ss.redis.GetSlotMirror(ctx, slotID)
	if mirrorErr == nil {
		return capacity - booked, capacity-booked > 0, nil
	}

	slot, err := ss.store.GetSlotByID(ctx, slotID)
	if err != nil {
		return 0, false, err
	}
	return slot.RemainingCapacity(), slot.IsBookable(time.Now()), nil
}

// SyncSlotsToRedis seeds the capacity mirror from the database.
func (ss *SlotService) SyncSlotsToRedis(ctx context.Context) error {
	ss.logger.Info("Starting slot mirror sync")

	slots, err := ss.store.ListUpcomingSlots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list upcoming slots: %w", err)
	}

	for i := range slots {
		slot := &slots[i]
		if err := ss.redis.InitSlot(ctx, slot.ID, slot.Capacity, slot.BookedCount, slot.StartAt); err != nil {
			ss.logger.Error("Failed to mirror slot",
				zap.Int64("slot_id", slot.ID),
				zap.Error(err))
		}
	}

	ss.logger.Info("Slot mirror sync completed", zap.Int("count", len(slots)))
	return nil
}

// ExpandRecurring materializes instances of recurring slot templates up to
// the horizon. Existing instances are never duplicated.
func (ss *SlotService) ExpandRecurring(ctx context.Context, horizon time.Duration) (int, error) {
	ctx, span := util.StartSpan(ctx, "SlotService.ExpandRecurring")
	defer span.End()

	templates, err := ss.store.ListRecurringTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recurring templates: %w", err)
	}

	now := time.Now()
	until := now.Add(horizon)
	created := 0

	for i := range templates {
		tpl := &templates[i]
		limit := until
		if tpl.RecurrenceEnd != nil && tpl.RecurrenceEnd.Before(limit) {
			limit = *tpl.RecurrenceEnd
		}

		for _, startAt := range NextOccurrences(tpl.RecurrenceRule, tpl.StartAt, now, limit) {
			exists, err := ss.store.SlotInstanceExists(ctx, tpl.ID, startAt)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}

			parentID := tpl.ID
			instance := &models.AvailabilitySlot{
				ProviderID:     tpl.ProviderID,
				OfferingID:     tpl.OfferingID,
				StartAt:        startAt,
				EndAt:          startAt.Add(tpl.EndAt.Sub(tpl.StartAt)),
				Capacity:       tpl.Capacity,
				Status:         models.SlotStatusAvailable,
				PriceOverride:  tpl.PriceOverride,
				Currency:       tpl.Currency,
				RecurrenceRule: models.RecurrenceNone,
				ParentID:       &parentID,
			}
			if err := ss.store.CreateSlot(ctx, instance); err != nil {
				return created, fmt.Errorf("failed to create slot instance: %w", err)
			}
			ss.mirrorSlot(instance)
			created++
			util.RecurringSlotsExpandedTotal.Inc()
		}
	}

	if created > 0 {
		ss.logger.Info("Recurring slots expanded", zap.Int("created", created))
	}
	return created, nil
}

// NextOccurrences lists the recurrence instants of a series that fall after
// `from` and at or before `until`. The template's own start is not an
// occurrence.
func NextOccurrences(rule string, seriesStart time.Time, from, until time.Time) []time.Time {
	var step time.Duration
	switch rule {
	case models.RecurrenceDaily:
		step = 24 * time.Hour
	case models.RecurrenceWeekly:
		step = 7 * 24 * time.Hour
	default:
		return nil
	}

	var out []time.Time
	for t := seriesStart.Add(step); !t.After(until); t = t.Add(step) {
		if t.After(from) {
			out = append(out, t)
		}
	}
	return out
}

func (ss *SlotService) mirrorSlot(slot *models.AvailabilitySlot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ss.redis.InitSlot(ctx, slot.ID, slot.Capacity, slot.BookedCount, slot.StartAt); err != nil {
		ss.logger.Warn("Failed to mirror slot",
			zap.Int64("slot_id", slot.ID),
			zap.Error(err))
	}
}

func (ss *SlotService) syncMirrorBooking(slotID int64, qty int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := ss.redis.ApplyBooking(ctx, slotID, qty); err != nil {
		ss.logger.Warn("Failed to sync booking to slot mirror",
			zap.Int64("slot_id", slotID),
			zap.Error(err))
	}
}

func (ss *SlotService) syncMirrorRelease(slotID int64, qty int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ss.redis.ApplyRelease(ctx, slotID, qty); err != nil {
		ss.logger.Warn("Failed to sync release to slot mirror",
			zap.Int64("slot_id", slotID),
			zap.Error(err))
	}
}
