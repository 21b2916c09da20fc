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

	"storefront/config"
	"storefront/internal/ai"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/ledger"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront")

	shutdownTracer, err := util.InitTracer(util.TracerConfig{
		JaegerEndpoint: cfg.Observ.JaegerEndpoint,
		Env:            cfg.Server.Env,
		SampleRatio:    cfg.Observ.TraceSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	locker := store.NewLocalLocker()
	var idempotency service.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		locker = store.MultiLocker(locker, redisClient.Locker(cfg.Redis.LockTTL))
		idempotency = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	db, err := store.NewStore(cfg.Storage.DataDir, locker)
	if err != nil {
		log.Fatalf("Failed to open data directory: %v", err)
	}

	var (
		sales    *ledger.Ledger
		eventLog worker.EventLog
		report   api.SalesReport
	)
	if cfg.Ledger.DSN != "" {
		sales, err = ledger.Open(cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			log.Fatalf("Failed to open sales ledger: %v", err)
		}
		defer sales.Close()
		eventLog, report = sales, sales
		logger.Info("Sales ledger connected", zap.String("driver", cfg.Ledger.Driver))
	}

	var (
		publisher       broker.Publisher
		inventorySource broker.Source
		ledgerSource    broker.Source
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = producer
		inventorySource = broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.InventoryGroup)
		if sales != nil {
			ledgerSource = broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.LedgerGroup)
		}
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		bus := broker.NewLocalBus()
		publisher = bus
		inventorySource = bus.Subscribe()
		if sales != nil {
			ledgerSource = bus.Subscribe()
		}
		logger.Info("Using in-process event bus")
	}

	var generator ai.Generator
	if cfg.Assistant.APIKey != "" {
		gemini, err := ai.NewGeminiClient(context.Background(), ai.GeminiConfig{
			APIKey:  cfg.Assistant.APIKey,
			Model:   cfg.Assistant.Model,
			BaseURL: cfg.Assistant.BaseURL,
			Timeout: cfg.Assistant.Timeout,
		})
		if err != nil {
			log.Fatalf("Failed to create assistant client: %v", err)
		}
		generator = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, assistant disabled")
	}

	eventPublisher := broker.NewEventPublisher(publisher)
	products := service.NewProductService(db)
	pricing := service.NewPricingService(db)

	svc := api.Services{
		Products:  products,
		Blog:      service.NewBlogService(db),
		Pricing:   pricing,
		Users:     service.NewUserService(db, products),
		Carts:     service.NewCartService(db, products),
		Wishlists: service.NewWishlistService(db, products),
		Checkout:  service.NewCheckoutService(db, pricing, products, eventPublisher, idempotency),
		Auth:      service.NewAuthService(db, cfg.Auth),
		Assistant: service.NewAssistantService(generator, products),
		Sales:     report,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	inventoryWorker := worker.NewInventoryWorker(inventorySource, db, eventLog)
	go func() {
		if err := inventoryWorker.Start(workerCtx); err != nil {
			logger.Error("Inventory worker error", zap.Error(err))
		}
	}()

	var ledgerWorker *worker.LedgerWorker
	if sales != nil {
		ledgerWorker = worker.NewLedgerWorker(ledgerSource, sales, eventLog)
		go func() {
			if err := ledgerWorker.Start(workerCtx); err != nil {
				logger.Error("Ledger worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(svc, api.Limits{
		AuthPerMinute:      cfg.RateLimit.AuthPerMinute,
		AssistantPerMinute: cfg.RateLimit.AssistantPerMinute,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	inventoryWorker.Stop()
	if ledgerWorker != nil {
		ledgerWorker.Stop()
	}

	logger.Info("Server exited")
}
