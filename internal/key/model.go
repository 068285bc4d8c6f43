package key

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type APIKey struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Key         string         `gorm:"uniqueIndex;not null" json:"-"`
	MaskedKey   string         `json:"masked_key"`
	Permissions pq.StringArray `gorm:"type:text[]" json:"permissions"`
	Name        string         `json:"name"`
	ExpiresAt   time.Time      `json:"expires_at"`
	IsRevoked   bool           `gorm:"default:false" json:"is_revoked"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (k *APIKey) BeforeCreate(*gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

// Active reports whether the key can still authenticate at now.
func (k *APIKey) Active(now time.Time) bool {
	return !k.IsRevoked && now.Before(k.ExpiresAt)
}

type Permission string

const (
	PermissionRead     Permission = "READ"
	PermissionPurchase Permission = "PURCHASE"
	PermissionWithdraw Permission = "WITHDRAW"
)

var AllowedPermissions = []Permission{
	PermissionRead,
	PermissionPurchase,
	PermissionWithdraw,
}
