package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

const (
	DepositRetryQueue = "deposit_retry"
	DepositDLQ        = "deposit_retry_dlq"
)

// ErrQueueEmpty is returned when a blocking pop times out without an event.
var ErrQueueEmpty = errors.New("queue empty")

type RedisClient struct {
	Client *redis.Client
}

// DepositEvent carries an authenticated deposit notification that could not be
// applied synchronously. Verified is false when it arrived unsigned.
type DepositEvent struct {
	Reference string          `json:"reference"`
	Payload   json.RawMessage `json:"payload"`
	Verified  bool            `json:"verified"`
	Reason    string          `json:"reason"`
	QueuedAt  time.Time       `json:"queued_at"`
}

func NewRedisClient(url, password string) *RedisClient {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{
			Addr:     url,
			Password: password,
			DB:       0,
		}
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("Failed to connect to Redis", logger.Fields{"error": err.Error(), "addr": opt.Addr})
	} else {
		logger.Info("Connected to Redis", logger.Fields{"addr": opt.Addr})
	}

	return &RedisClient{Client: rdb}
}

func (r *RedisClient) PublishDeposit(ctx context.Context, event DepositEvent) error {
	if event.QueuedAt.IsZero() {
		event.QueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.Client.RPush(ctx, DepositRetryQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to push event to redis: %w", err)
	}

	return nil
}

// NextDeposit blocks up to timeout for the next queued deposit. The raw bytes are
// returned alongside so undecodable entries can still be dead-lettered.
func (r *RedisClient) NextDeposit(ctx context.Context, timeout time.Duration) (*DepositEvent, []byte, error) {
	result, err := r.Client.BLPop(ctx, timeout, DepositRetryQueue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, nil, err
	}

	raw := []byte(result[1])
	var event DepositEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, raw, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, raw, nil
}

func (r *RedisClient) PushToDLQ(ctx context.Context, data []byte) error {
	if err := r.Client.RPush(ctx, DepositDLQ, data).Err(); err != nil {
		return fmt.Errorf("failed to push event to DLQ: %w", err)
	}
	return nil
}
