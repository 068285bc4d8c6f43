package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Poll(ctx context.Context, limit int) ([]Event, error)
	MarkProcessed(ctx context.Context, id uint64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Enqueue writes an event using tx so it commits or rolls back with the caller's rows.
func Enqueue(tx *gorm.DB, aggregate, aggregateID, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	return tx.Create(&Event{
		Aggregate:   aggregate,
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     raw,
	}).Error
}

func (r *repository) Poll(ctx context.Context, limit int) ([]Event, error) {
	var evts []Event
	err := r.db.WithContext(ctx).Where("processed = ?", false).Order("id").Limit(limit).Find(&evts).Error
	return evts, err
}

func (r *repository) MarkProcessed(ctx context.Context, id uint64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&Event{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}
