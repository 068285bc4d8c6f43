package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/zjoart/go-topup-wallet/cmd/routes"
	"github.com/zjoart/go-topup-wallet/internal/cashback"
	"github.com/zjoart/go-topup-wallet/internal/deposit"
	"github.com/zjoart/go-topup-wallet/internal/key"
	"github.com/zjoart/go-topup-wallet/internal/notification"
	"github.com/zjoart/go-topup-wallet/internal/outbox"
	"github.com/zjoart/go-topup-wallet/internal/provider"
	"github.com/zjoart/go-topup-wallet/internal/purchase"
	"github.com/zjoart/go-topup-wallet/internal/user"
	"github.com/zjoart/go-topup-wallet/internal/vendor"
	"github.com/zjoart/go-topup-wallet/internal/wallet"
	"github.com/zjoart/go-topup-wallet/pkg/config"
	"github.com/zjoart/go-topup-wallet/pkg/database"
	"github.com/zjoart/go-topup-wallet/pkg/events"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

func main() {
	defer logger.Sync()

	cfg := config.LoadConfig()

	database.Connect(cfg.DBUrl)
	database.Migrate(database.DB,
		&user.User{},
		&key.APIKey{},
		&wallet.Wallet{},
		&wallet.Transaction{},
		&wallet.CashbackTransaction{},
		&purchase.Intent{},
		&deposit.Event{},
		&notification.Notification{},
		&outbox.Event{},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := events.NewRedisClient(cfg.RedisURL, cfg.RedisPassword)

	userRepo := user.NewRepository(database.DB)
	walletRepo := wallet.NewRepository(database.DB)
	notificationRepo := notification.NewRepository(database.DB)
	notifier := notification.NewService(notificationRepo)

	vendorClient := vendor.NewClient(cfg.VendorBaseURL, cfg.VendorAPIKey, cfg.VendorTimeout)
	providerClient := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.VendorTimeout)

	depositService := deposit.NewService(userRepo, walletRepo, deposit.NewRepository(database.DB), notifier,
		cfg.ProviderWebhookSecret, cfg.RequireWebhookSignature)
	if !cfg.RequireWebhookSignature {
		logger.Warn("Deposit webhooks without a signature will be accepted")
	}

	// start background worker
	worker := deposit.NewWorker(depositService, redisClient)
	worker.Start(ctx)

	r := mux.NewRouter()
	handler := routes.RegisterRoutes(ctx, r, cfg, routes.Dependencies{
		Users:         userRepo,
		Keys:          key.NewRepository(database.DB),
		Wallets:       walletRepo,
		Notifications: notificationRepo,
		Purchases:     purchase.NewService(walletRepo, purchase.NewRepository(database.DB), vendorClient, notifier),
		Deposits:      depositService,
		Accounts:      deposit.NewAccountService(userRepo, providerClient),
		Cashback:      cashback.NewService(walletRepo, notifier, cfg.MinCashbackWithdrawal),
		RetryQueue:    redisClient,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.VendorTimeout + 15*time.Second,
	}

	go func() {
		logger.Info("Server starting", logger.Fields{"port": cfg.Port, "env": cfg.Env})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Could not listen", logger.Fields{"port": cfg.Port, "error": err.Error()})
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", logger.WithError(err))
	}
	if err := redisClient.Client.Close(); err != nil {
		logger.Warn("Failed to close Redis client", logger.WithError(err))
	}
	logger.Info("Server gracefully shut down")
}
