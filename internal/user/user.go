package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is provisioned by the identity service; this service only reads it and
// records the virtual bank account issued for deposits.
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `json:"name"`
	Email         string    `gorm:"uniqueIndex" json:"email"`
	Phone         string    `json:"phone"`
	AccountNumber *string   `gorm:"uniqueIndex" json:"account_number,omitempty"`
	AccountName   string    `json:"account_name,omitempty"`
	BankName      string    `json:"bank_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) HasVirtualAccount() bool {
	return u.AccountNumber != nil && *u.AccountNumber != ""
}
