package deposit

import (
	"context"
	"errors"
	"time"

	"github.com/zjoart/go-topup-wallet/pkg/events"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

// Queue is the Redis retry list. *events.RedisClient satisfies it.
type Queue interface {
	PublishDeposit(ctx context.Context, event events.DepositEvent) error
	NextDeposit(ctx context.Context, timeout time.Duration) (*events.DepositEvent, []byte, error)
	PushToDLQ(ctx context.Context, data []byte) error
}

// Worker re-applies deposits whose wallet credit failed during the webhook call.
type Worker struct {
	Service    *Service
	Queue      Queue
	MaxRetries int
	Backoff    time.Duration
	PopTimeout time.Duration
}

func NewWorker(service *Service, queue Queue) *Worker {
	return &Worker{
		Service:    service,
		Queue:      queue,
		MaxRetries: 3,
		Backoff:    time.Second,
		PopTimeout: 5 * time.Second,
	}
}

func (w *Worker) Start(ctx context.Context) {
	logger.Info("Starting deposit retry worker...")
	go w.Run(ctx)
}

func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			logger.Info("Deposit retry worker stopped")
			return
		}
		if err := w.ProcessNext(ctx); err != nil && !errors.Is(err, events.ErrQueueEmpty) && ctx.Err() == nil {
			logger.Error("DepositWorker: failed to read queue", logger.WithError(err))
			sleep(ctx, w.Backoff)
		}
	}
}

// ProcessNext handles at most one queued deposit. It returns events.ErrQueueEmpty
// when nothing arrived within PopTimeout.
func (w *Worker) ProcessNext(ctx context.Context) error {
	evt, raw, err := w.Queue.NextDeposit(ctx, w.PopTimeout)
	if err != nil {
		if raw != nil {
			logger.Error("DepositWorker: undecodable event", logger.Merge(logger.WithError(err), logger.Fields{"data": string(raw)}))
			w.moveToDLQ(ctx, raw)
			return nil
		}
		return err
	}

	w.handle(ctx, evt, raw)
	return nil
}

func (w *Worker) handle(ctx context.Context, evt *events.DepositEvent, raw []byte) {
	fields := logger.Fields{logger.ReferenceKey: evt.Reference}

	n, err := Decode(evt.Payload)
	if err != nil {
		logger.Error("DepositWorker: invalid payload", logger.Merge(fields, logger.WithError(err)))
		w.moveToDLQ(ctx, raw)
		return
	}

	for i := 0; i < w.MaxRetries; i++ {
		// the payload passed authentication before it was queued
		res, err := w.Service.Process(ctx, n, evt.Payload, evt.Verified)
		if err == nil {
			logger.Info("DepositWorker: processed event", logger.Merge(fields, logger.Fields{"outcome": string(res.Outcome)}))
			return
		}
		if errors.Is(err, ErrUnknownAccount) || errors.Is(err, ErrInvalidPayload) {
			logger.Error("DepositWorker: event cannot be applied", logger.Merge(fields, logger.WithError(err)))
			break
		}

		logger.Warn("DepositWorker: failed to process event, retrying", logger.Merge(fields, logger.Fields{
			"attempt":       i + 1,
			logger.ErrorKey: err.Error(),
		}))
		if !sleep(ctx, time.Duration(i+1)*w.Backoff) {
			return
		}
	}

	logger.Error("DepositWorker: giving up, moving to DLQ", fields)
	w.moveToDLQ(ctx, raw)
}

func (w *Worker) moveToDLQ(ctx context.Context, data []byte) {
	if err := w.Queue.PushToDLQ(context.WithoutCancel(ctx), data); err != nil {
		logger.Error("DepositWorker: failed to push to DLQ", logger.WithError(err))
	}
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
