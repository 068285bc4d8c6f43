package outbox

import (
	"time"

	"gorm.io/datatypes"
)

type Event struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	Aggregate   string         `gorm:"size:64;not null" json:"aggregate"`
	AggregateID string         `gorm:"size:64;not null;index" json:"aggregate_id"`
	EventType   string         `gorm:"size:64;not null" json:"event_type"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Processed   bool           `gorm:"not null;default:false;index" json:"processed"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (Event) TableName() string { return "outbox_events" }
