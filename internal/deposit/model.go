package deposit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Event is the dedup claim for a provider transaction. A row exists only for
// deposits whose wallet credit committed.
type Event struct {
	Reference         string          `gorm:"primaryKey;size:128" json:"reference"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Payload           datatypes.JSON  `gorm:"type:jsonb" json:"payload"`
	SignatureVerified bool            `gorm:"not null" json:"signature_verified"`
	ProcessedAt       time.Time       `gorm:"not null" json:"processed_at"`
}

func (Event) TableName() string { return "deposit_events" }
