package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	pricingapp "github.com/gestion/settlement/internal/application/pricing"
	settlementapp "github.com/gestion/settlement/internal/application/settlement"
	domainsettlement "github.com/gestion/settlement/internal/domain/settlement"
	"github.com/gestion/settlement/internal/infrastructure/config"
	"github.com/gestion/settlement/internal/infrastructure/logger"
	"github.com/gestion/settlement/internal/infrastructure/notification"
	"github.com/gestion/settlement/internal/infrastructure/persistence"
	"github.com/gestion/settlement/internal/interfaces/http/handler"
	"github.com/gestion/settlement/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting settlement engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Path),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// The legacy schema must pre-exist; the engine verifies, never creates.
	if err := db.VerifySchema(log); err != nil {
		log.Fatal("Schema contract violated", zap.Error(err))
	}

	// Initialize repositories
	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	counterRepo := persistence.NewGormCounterRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	verificationRepo := persistence.NewGormVerificationRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Domain collaborators from configuration
	ruleBook, err := cfg.Settlement.RuleBook()
	if err != nil {
		log.Fatal("Invalid rule masks", zap.Error(err))
	}
	schedule, err := cfg.Pricing.Schedule()
	if err != nil {
		log.Fatal("Invalid fee schedule", zap.Error(err))
	}

	normalizer := domainsettlement.NewNormalizer(catalogRepo, catalogRepo, ruleBook, log)
	reconciler := domainsettlement.NewReconciler(cfg.Settlement.ReconcilerConfig(), log)
	notifier := notification.NewLogNotifier(log)

	// Application services
	settlementService := settlementapp.NewService(
		normalizer,
		reconciler,
		catalogRepo,
		counterRepo,
		ledgerRepo,
		verificationRepo,
		txScope,
		notifier,
		settlementapp.CommitConfig{
			CourierVendors:       cfg.Settlement.CourierVendors,
			DefaultCourierVendor: cfg.Settlement.DefaultCourierVendor,
			CarrierSupplier:      cfg.Settlement.CarrierSupplier,
			MaxDocNumber:         cfg.Settlement.MaxDocNumber,
			MinSaleCost:          decimal.NewFromFloat(cfg.Settlement.MinSaleCost),
			SellerAccount:        cfg.Settlement.SellerAccount,
			PaymentMethod:        cfg.Settlement.PaymentMethod,
			SKUs:                 cfg.Settlement.ShippingSKUs(),
		},
		log,
	)
	pricingService := pricingapp.NewService(
		decimal.NewFromFloat(cfg.Pricing.CommissionRate), schedule, log)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	if err := handler.RegisterValidations(); err != nil {
		log.Fatal("Failed to register binding validators", zap.Error(err))
	}
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	router.NewRouter(engine).
		Register(handler.NewSettlementHandler(settlementService)).
		Register(handler.NewPricingHandler(pricingService)).
		Register(handler.NewSystemHandler(db)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
