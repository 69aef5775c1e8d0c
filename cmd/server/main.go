package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/djonanko/payin-service/internal/adapter/http/controller"
	"github.com/djonanko/payin-service/internal/adapter/http/middleware"
	"github.com/djonanko/payin-service/internal/adapter/http/router"
	"github.com/djonanko/payin-service/internal/adapter/ledger"
	"github.com/djonanko/payin-service/internal/adapter/repository/postgres"
	"github.com/djonanko/payin-service/internal/config"
	"github.com/djonanko/payin-service/internal/metrics"
	"github.com/djonanko/payin-service/internal/queue"
	"github.com/djonanko/payin-service/internal/scheduler"
	"github.com/djonanko/payin-service/internal/usecase/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		cancel()
		log.Fatalf("open database: %v", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("ensure schema: %v", err)
	}
	cancel()

	metrics.Init()

	ledgerClient := ledger.NewClient(cfg.LedgerBaseURL, cfg.LedgerAPIKey)
	payments := postgres.NewPaymentRepository(db)

	payinService := services.NewPayinService(
		payments,
		ledgerClient,
		services.NewFeesService(),
		cfg.ReservationAccountNumber,
		cfg.CollectionAccountNumber,
	)
	billingService := services.NewBillingService(ledgerClient, cfg.SubscriptionPrice, cfg.QueueWorkers)

	paymentQueue := queue.NewPaymentQueue(
		payinService.ProcessPayment,
		cfg.QueueWorkers,
		cfg.QueueMaxAttempts,
		cfg.QueueBackoff,
	)

	billing := scheduler.New()
	billing.Monthly("debit-subscriptions", cfg.BillingDebitDay, billingService.DebitSubscriptions)
	billing.Monthly("reset-premium-status", cfg.BillingResetDay, billingService.ResetPremiumStatus)

	authMiddleware := middleware.JWTAuth(cfg.JWTSecret, ledgerClient)
	mux := router.New(
		controller.NewPayinController(payinService, paymentQueue),
		controller.NewQueueController(paymentQueue),
		authMiddleware,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("payin service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	billing.Stop()
	paymentQueue.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("close database: %v", err)
	}
}
