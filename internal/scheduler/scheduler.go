package scheduler

import (
	"context"
	"time"

	"booking-service/internal/redisclient"
	"booking-service/internal/service"
	"booking-service/internal/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// AcquireLock namespaces these under lock: itself.
	staleSweepLockKey   = "stale-booking-sweep"
	recurrenceLockKey   = "recurrence-expansion"
	jobLockTTL          = 5 * time.Minute
	staleSweepBatchSize = 100
)

// Scheduler runs the periodic maintenance jobs: expiring stale pending
// bookings and materializing upcoming instances of recurring slots. Each
// job takes a redis lock first so only one replica runs it.
type Scheduler struct {
	cron           *cron.Cron
	redis          *redisclient.Client
	bookingService *service.BookingService
	slotService    *service.SlotService
	logger         *zap.Logger

	pendingTTL time.Duration
	horizon    time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(
	redis *redisclient.Client,
	bookingService *service.BookingService,
	slotService *service.SlotService,
	pendingTTL time.Duration,
	horizon time.Duration,
) *Scheduler {
	return &Scheduler{
		cron:           cron.New(),
		redis:          redis,
		bookingService: bookingService,
		slotService:    slotService,
		logger:         util.NamedLogger("scheduler"),
		pendingTTL:     pendingTTL,
		horizon:        horizon,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.sweepStaleBookings); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", s.expandRecurringSlots); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.Duration("pending_ttl", s.pendingTTL),
		zap.Duration("recurrence_horizon", s.horizon))
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) sweepStaleBookings() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ok, err := s.redis.AcquireLock(ctx, staleSweepLockKey, jobLockTTL)
	if err != nil {
		s.logger.Error("Failed to acquire stale sweep lock", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := s.redis.ReleaseLock(ctx, staleSweepLockKey); err != nil {
			s.logger.Error("Failed to release stale sweep lock", zap.Error(err))
		}
	}()

	expired, err := s.bookingService.ExpireStalePending(ctx, s.pendingTTL, staleSweepBatchSize)
	if err != nil {
		s.logger.Error("Stale booking sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("Expired stale pending bookings", zap.Int("count", expired))
	}
}

func (s *Scheduler) expandRecurringSlots() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ok, err := s.redis.AcquireLock(ctx, recurrenceLockKey, jobLockTTL)
	if err != nil {
		s.logger.Error("Failed to acquire recurrence lock", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := s.redis.ReleaseLock(ctx, recurrenceLockKey); err != nil {
			s.logger.Error("Failed to release recurrence lock", zap.Error(err))
		}
	}()

	created, err := s.slotService.ExpandRecurring(ctx, s.horizon)
	if err != nil {
		s.logger.Error("Recurring slot expansion failed", zap.Error(err))
		return
	}
	s.logger.Info("Recurring slots expanded", zap.Int("created", created))
}
