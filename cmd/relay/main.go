package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/zjoart/go-topup-wallet/internal/outbox"
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

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("Failed to close Kafka writer", logger.WithError(err))
		}
	}()

	logger.Info("Relaying outbox events", logger.Fields{"topic": cfg.KafkaTopic, "brokers": cfg.KafkaBrokers})
	outbox.NewRelay(outbox.NewRepository(database.DB), writer).Run(ctx, time.Second)
}
