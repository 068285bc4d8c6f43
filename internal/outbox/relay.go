package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

// Publisher is satisfied by *kafka.Writer.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Relay struct {
	Repo      Repository
	Publisher Publisher
	BatchSize int
}

func NewRelay(repo Repository, publisher Publisher) *Relay {
	return &Relay{Repo: repo, Publisher: publisher, BatchSize: 100}
}

// RelayOnce publishes one batch of pending events in id order and returns how many
// were delivered. It stops at the first publish failure so ordering is kept.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	evts, err := r.Repo.Poll(ctx, r.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, evt := range evts {
		msg := kafka.Message{
			Key:   []byte(evt.AggregateID),
			Value: evt.Payload,
			Time:  evt.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(evt.EventType)},
				{Key: "event_id", Value: []byte(strconv.FormatUint(evt.ID, 10))},
			},
		}
		if err := r.Publisher.WriteMessages(ctx, msg); err != nil {
			return sent, err
		}
		if err := r.Repo.MarkProcessed(ctx, evt.ID); err != nil {
			// published but not marked: consumers see it again and dedupe on event_id
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Outbox relay started", logger.Fields{"interval": interval.String()})
	for {
		select {
		case <-ctx.Done():
			logger.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			n, err := r.RelayOnce(ctx)
			if err != nil {
				logger.Error("Outbox relay failed", logger.Merge(logger.WithError(err), logger.Fields{"sent": n}))
				continue
			}
			if n > 0 {
				logger.Debug("Outbox events relayed", logger.Fields{"sent": n})
			}
		}
	}
}
