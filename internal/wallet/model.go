package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Kind string

const (
	KindMain     Kind = "main"
	KindCashback Kind = "cashback"
)

type Wallet struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_user_kind" json:"user_id"`
	Kind           Kind            `gorm:"type:varchar(16);not null;uniqueIndex:idx_wallet_user_kind" json:"kind"`
	Balance        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	TotalEarned    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_earned"`
	TotalWithdrawn decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_withdrawn"`
	PinHash        string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

type Category string

const (
	CategoryDeposit       Category = "deposit"
	CategoryAirtime       Category = "airtime"
	CategoryData          Category = "data"
	CategoryElectricity   Category = "electricity"
	CategoryTV            Category = "tv"
	CategoryTransfer      Category = "transfer"
	CategoryReferralBonus Category = "referral_bonus"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is an append-only main wallet ledger row. Status is final at insert.
type Transaction struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Type        TransactionType   `gorm:"type:varchar(16);not null" json:"type"`
	Category    Category          `gorm:"type:varchar(32);not null" json:"category"`
	Amount      decimal.Decimal   `gorm:"type:numeric(20,2);not null" json:"amount"`
	Description string            `json:"description"`
	Status      TransactionStatus `gorm:"type:varchar(16);not null" json:"status"`
	Reference   *string           `gorm:"uniqueIndex" json:"reference,omitempty"`
	Metadata    datatypes.JSON    `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type CashbackType string

const (
	CashbackEarned    CashbackType = "earned"
	CashbackWithdrawn CashbackType = "withdrawn"
)

type CashbackTransaction struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                 uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Type                   CashbackType    `gorm:"type:varchar(16);not null" json:"type"`
	Amount                 decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Category               Category        `gorm:"type:varchar(32)" json:"category"`
	Description            string          `json:"description"`
	ReferenceTransactionID *uuid.UUID      `gorm:"type:uuid" json:"reference_transaction_id,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

func (c *CashbackTransaction) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
