package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking-service/config"
	"booking-service/internal/api"
	"booking-service/internal/broker"
	"booking-service/internal/redisclient"
	"booking-service/internal/scheduler"
	"booking-service/internal/service"
	"booking-service/internal/store"
	"booking-service/internal/util"
	"booking-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting booking service")

	tp, err := util.InitTracer("booking-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	defaultTaxRate, err := decimal.NewFromString(cfg.Business.DefaultTaxRate)
	if err != nil {
		log.Fatalf("Invalid default tax rate %q: %v", cfg.Business.DefaultTaxRate, err)
	}
	defaultCommissionPercent, err := decimal.NewFromString(cfg.Business.DefaultCommissionPercent)
	if err != nil {
		log.Fatalf("Invalid default commission percent %q: %v", cfg.Business.DefaultCommissionPercent, err)
	}

	catalogClient := service.NewCatalogClient(db, redisClient)
	slotService := service.NewSlotService(db, redisClient, catalogClient)
	bookingService := service.NewBookingService(db, catalogClient, slotService, eventPublisher,
		cfg.Business.DefaultCurrency, defaultTaxRate)
	paymentService := service.NewPaymentService(db, redisClient, eventPublisher)
	commissionService := service.NewCommissionService(db, eventPublisher,
		cfg.Business.DefaultCommissionType, defaultCommissionPercent)
	orchestrator := service.NewSettlementOrchestrator(db, bookingService, commissionService)

	ctx := context.Background()
	if err := slotService.SyncSlotsToRedis(ctx); err != nil {
		log.Printf("Failed to sync slots to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking, cfg.Kafka.ConsumerGroup)
	settlementWorker := worker.NewSettlementWorker(consumer, orchestrator)
	go func() {
		if err := settlementWorker.Start(workerCtx); err != nil {
			log.Printf("Settlement worker error: %v", err)
		}
	}()

	jobs := scheduler.NewScheduler(redisClient, bookingService, slotService,
		time.Duration(cfg.Business.PendingBookingTTLMinutes)*time.Minute,
		time.Duration(cfg.Business.RecurrenceHorizonDays)*24*time.Hour)
	if err := jobs.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(slotService, bookingService, paymentService, commissionService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	jobs.Stop()
	workerCancel()
	settlementWorker.Stop()

	log.Println("Server exited")
}
