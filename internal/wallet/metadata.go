package wallet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var (
	ErrMetadataMismatch = errors.New("metadata does not match transaction category")
	ErrUnknownCategory  = errors.New("unknown transaction category")
)

// Metadata is the per-category payload stored with a ledger row. Each category has
// exactly one concrete variant.
type Metadata interface {
	Category() Category
}

// VendorOutcome is what the aggregator told us about a purchase attempt.
type VendorOutcome struct {
	VendorReference string          `json:"vendor_reference,omitempty"`
	VendorResponse  json.RawMessage `json:"vendor_response,omitempty"`
	Error           string          `json:"error,omitempty"`
}

type AirtimeMetadata struct {
	Network      string `json:"network"`
	MobileNumber string `json:"mobile_number"`
	VendorOutcome
}

type DataMetadata struct {
	Plan         string `json:"plan"`
	MobileNumber string `json:"mobile_number"`
	VendorOutcome
}

type CableMetadata struct {
	PlanID          string `json:"plan_id"`
	SmartCardNumber string `json:"smart_card_number"`
	VendorOutcome
}

type ElectricityMetadata struct {
	DiscoID     string `json:"disco_id"`
	MeterType   string `json:"meter_type"`
	MeterNumber string `json:"meter_number"`
	Token       string `json:"token,omitempty"`
	VendorOutcome
}

type DepositSource string

const (
	SourceBankTransfer DepositSource = "bank_transfer"
	SourceCashback     DepositSource = "cashback"
)

type DepositMetadata struct {
	Source                DepositSource    `json:"source"`
	SenderName            string           `json:"sender_name,omitempty"`
	SenderAccountNumber   string           `json:"sender_account_number,omitempty"`
	SenderBank            string           `json:"sender_bank,omitempty"`
	AmountPaid            *decimal.Decimal `json:"amount_paid,omitempty"`
	SettlementFee         *decimal.Decimal `json:"settlement_fee,omitempty"`
	ProviderTimestamp     string           `json:"provider_timestamp,omitempty"`
	CashbackTransactionID *uuid.UUID       `json:"cashback_transaction_id,omitempty"`
}

type TransferMetadata struct {
	From Kind `json:"from"`
	To   Kind `json:"to"`
}

type ReferralMetadata struct {
	ReferredUserID uuid.UUID `json:"referred_user_id"`
}

func (AirtimeMetadata) Category() Category     { return CategoryAirtime }
func (DataMetadata) Category() Category        { return CategoryData }
func (CableMetadata) Category() Category       { return CategoryTV }
func (ElectricityMetadata) Category() Category { return CategoryElectricity }
func (DepositMetadata) Category() Category     { return CategoryDeposit }
func (TransferMetadata) Category() Category    { return CategoryTransfer }
func (ReferralMetadata) Category() Category    { return CategoryReferralBonus }

// SetMetadata encodes m onto the row, refusing a variant from another category.
func (t *Transaction) SetMetadata(m Metadata) error {
	if m.Category() != t.Category {
		return fmt.Errorf("%w: %s on %s", ErrMetadataMismatch, m.Category(), t.Category)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	t.Metadata = datatypes.JSON(raw)
	return nil
}

// DecodeMetadata returns the concrete variant for the row's category, or nil when
// the row carries no metadata.
func (t *Transaction) DecodeMetadata() (Metadata, error) {
	if len(t.Metadata) == 0 {
		return nil, nil
	}

	var m Metadata
	switch t.Category {
	case CategoryAirtime:
		m = &AirtimeMetadata{}
	case CategoryData:
		m = &DataMetadata{}
	case CategoryTV:
		m = &CableMetadata{}
	case CategoryElectricity:
		m = &ElectricityMetadata{}
	case CategoryDeposit:
		m = &DepositMetadata{}
	case CategoryTransfer:
		m = &TransferMetadata{}
	case CategoryReferralBonus:
		m = &ReferralMetadata{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, t.Category)
	}

	if err := json.Unmarshal(t.Metadata, m); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", t.Category, err)
	}
	return m, nil
}
