package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/zjoart/go-topup-wallet/internal/purchase"
	"github.com/zjoart/go-topup-wallet/pkg/config"
	"github.com/zjoart/go-topup-wallet/pkg/database"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

func main() {
	defer logger.Sync()

	cfg := config.LoadConfig()
	database.Connect(cfg.DBUrl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler := purchase.NewReconciler(purchase.NewRepository(database.DB), cfg.ReconcileGrace)

	// one pass immediately so a restart does not wait a full interval
	if _, err := reconciler.RunOnce(ctx); err != nil {
		logger.Error("Initial reconciliation failed", logger.WithError(err))
	}
	reconciler.Run(ctx, cfg.ReconcileInterval)
}
