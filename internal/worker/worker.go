package worker

import (
	"context"
	"log"

	"booking-service/internal/broker"
	"booking-service/internal/service"
)

// SettlementWorker consumes domain events and feeds them into the
// settlement orchestrator.
type SettlementWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	orchestrator *service.SettlementOrchestrator
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(
	consumer *broker.Consumer,
	orchestrator *service.SettlementOrchestrator,
) *SettlementWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnPaymentCaptured(orchestrator.HandlePaymentCaptured)
	eventHandler.OnPaymentRefunded(orchestrator.HandlePaymentRefunded)
	eventHandler.OnPaymentFailed(orchestrator.HandlePaymentFailed)
	eventHandler.OnBookingCompleted(orchestrator.HandleBookingCompleted)

	return &SettlementWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		orchestrator: orchestrator,
	}
}

// Start starts the worker
func (w *SettlementWorker) Start(ctx context.Context) error {
	log.Println("Starting settlement worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SettlementWorker) Stop() error {
	log.Println("Stopping settlement worker...")
	return w.consumer.Close()
}
