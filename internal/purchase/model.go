package purchase

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zjoart/go-topup-wallet/internal/vendor"
	"github.com/zjoart/go-topup-wallet/internal/wallet"
)

// State is the position of a purchase in the debit, vendor, ledger sequence.
type State string

const (
	StateDebited         State = "debited"
	StateVendorSucceeded State = "vendor_succeeded"
	StateVendorFailed    State = "vendor_failed"
	StateCompleted       State = "completed"
	StateRefunded        State = "refunded"
	StateReview          State = "review"
)

// awaitingVendor are the states a vendor outcome may still settle. The reconciler
// can park a slow purchase in review before its vendor call returns.
var awaitingVendor = []State{StateDebited, StateReview}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateRefunded || s == StateReview
}

// Request is a purchase as submitted by the user. Service comes from the route.
type Request struct {
	Service         vendor.ServiceType `json:"service"`
	Amount          decimal.Decimal    `json:"amount"`
	Network         string             `json:"network,omitempty" validate:"required_if=Service airtime"`
	MobileNumber    string             `json:"mobile_number,omitempty" validate:"required_if=Service airtime,required_if=Service data"`
	Plan            string             `json:"plan,omitempty" validate:"required_if=Service data"`
	PlanID          string             `json:"plan_id,omitempty" validate:"required_if=Service cable"`
	SmartCardNumber string             `json:"smart_card_number,omitempty" validate:"required_if=Service cable"`
	DiscoID         string             `json:"disco_id,omitempty" validate:"required_if=Service electricity"`
	MeterType       string             `json:"meter_type,omitempty" validate:"required_if=Service electricity"`
	MeterNumber     string             `json:"meter_number,omitempty" validate:"required_if=Service electricity"`
}

func (r Request) Order() vendor.Order {
	o := vendor.Order{
		Service:         r.Service,
		Amount:          r.Amount,
		Network:         r.Network,
		MobileNumber:    r.MobileNumber,
		PlanID:          r.PlanID,
		SmartCardNumber: r.SmartCardNumber,
		DiscoID:         r.DiscoID,
		MeterType:       r.MeterType,
		MeterNumber:     r.MeterNumber,
	}
	if r.Service == vendor.ServiceData {
		o.PlanID = r.Plan
	}
	return o
}

func categoryFor(s vendor.ServiceType) wallet.Category {
	switch s {
	case vendor.ServiceAirtime:
		return wallet.CategoryAirtime
	case vendor.ServiceData:
		return wallet.CategoryData
	case vendor.ServiceCable:
		return wallet.CategoryTV
	case vendor.ServiceElectricity:
		return wallet.CategoryElectricity
	}
	return ""
}

// Intent records a purchase from the moment the wallet is debited until the
// attempt has exactly one ledger row and, on failure, has been refunded.
type Intent struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	Service         vendor.ServiceType `gorm:"type:varchar(16);not null" json:"service"`
	Category        wallet.Category    `gorm:"type:varchar(32);not null" json:"category"`
	Amount          decimal.Decimal    `gorm:"type:numeric(20,2);not null" json:"amount"`
	State           State              `gorm:"type:varchar(20);not null;index" json:"state"`
	Order           datatypes.JSON     `gorm:"column:order_params;type:jsonb" json:"order"`
	VendorReference string             `json:"vendor_reference,omitempty"`
	VendorResponse  datatypes.JSON     `gorm:"type:jsonb" json:"vendor_response,omitempty"`
	Error           string             `gorm:"type:text" json:"error,omitempty"`
	TransactionID   *uuid.UUID         `gorm:"type:uuid" json:"transaction_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (Intent) TableName() string { return "purchase_intents" }

func (i *Intent) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func newIntent(userID uuid.UUID, req Request) (*Intent, error) {
	order, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	now := time.Now().UTC()
	return &Intent{
		ID:        uuid.New(),
		UserID:    userID,
		Service:   req.Service,
		Category:  categoryFor(req.Service),
		Amount:    req.Amount,
		State:     StateDebited,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (i *Intent) request() (Request, error) {
	var req Request
	if err := json.Unmarshal(i.Order, &req); err != nil {
		return req, fmt.Errorf("decode order for intent %s: %w", i.ID, err)
	}
	return req, nil
}

// Reference is the ledger reference for the intent's single ledger row.
func (i *Intent) Reference() string {
	return "PUR-" + i.ID.String()
}

// ledgerEntry builds the debit row for the intent's current vendor outcome.
func (i *Intent) ledgerEntry(status wallet.TransactionStatus) (*wallet.Transaction, error) {
	req, err := i.request()
	if err != nil {
		return nil, err
	}

	outcome := wallet.VendorOutcome{
		VendorReference: i.VendorReference,
		VendorResponse:  json.RawMessage(i.VendorResponse),
		Error:           i.Error,
	}

	var (
		meta wallet.Metadata
		desc string
	)
	switch req.Service {
	case vendor.ServiceAirtime:
		meta = wallet.AirtimeMetadata{Network: req.Network, MobileNumber: req.MobileNumber, VendorOutcome: outcome}
		desc = fmt.Sprintf("%s airtime for %s", req.Network, req.MobileNumber)
	case vendor.ServiceData:
		meta = wallet.DataMetadata{Plan: req.Plan, MobileNumber: req.MobileNumber, VendorOutcome: outcome}
		desc = fmt.Sprintf("Data plan %s for %s", req.Plan, req.MobileNumber)
	case vendor.ServiceCable:
		meta = wallet.CableMetadata{PlanID: req.PlanID, SmartCardNumber: req.SmartCardNumber, VendorOutcome: outcome}
		desc = fmt.Sprintf("Cable plan %s for %s", req.PlanID, req.SmartCardNumber)
	case vendor.ServiceElectricity:
		token := ""
		if status == wallet.TransactionCompleted {
			token = tokenFrom(i.VendorResponse)
		}
		meta = wallet.ElectricityMetadata{DiscoID: req.DiscoID, MeterType: req.MeterType, MeterNumber: req.MeterNumber, Token: token, VendorOutcome: outcome}
		desc = fmt.Sprintf("Electricity %s meter %s", req.DiscoID, req.MeterNumber)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, req.Service)
	}

	ref := i.Reference()
	tx := &wallet.Transaction{
		UserID:      i.UserID,
		Type:        wallet.TransactionDebit,
		Category:    i.Category,
		Amount:      i.Amount,
		Description: desc,
		Status:      status,
		Reference:   &ref,
	}
	if err := tx.SetMetadata(meta); err != nil {
		return nil, err
	}
	return tx, nil
}

func tokenFrom(raw datatypes.JSON) string {
	var env struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &env) != nil {
		return ""
	}
	return env.Data.Token
}
