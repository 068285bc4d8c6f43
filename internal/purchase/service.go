package purchase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/zjoart/go-topup-wallet/internal/notification"
	"github.com/zjoart/go-topup-wallet/internal/vendor"
	"github.com/zjoart/go-topup-wallet/internal/wallet"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
	"github.com/zjoart/go-topup-wallet/pkg/validator"
)

var (
	ErrMissingParameters  = errors.New("missing required parameters")
	ErrInvalidAmount      = errors.New("amount must be a positive value with at most two decimal places")
	ErrUnsupportedService = errors.New("unsupported service")
)

// ParamError lists the fields a purchase request is missing.
type ParamError struct {
	Fields map[string]string
}

func (e *ParamError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrMissingParameters, strings.Join(names, ", "))
}

func (e *ParamError) Unwrap() error { return ErrMissingParameters }

// Vendor is the aggregator as the purchase flow sees it. *vendor.Client satisfies it.
type Vendor interface {
	Purchase(ctx context.Context, order vendor.Order) (*vendor.Receipt, error)
	ValidateSmartCard(ctx context.Context, planID, smartCardNumber string) (*vendor.Customer, error)
	ValidateMeter(ctx context.Context, discoID, meterType, meterNumber string) (*vendor.Customer, error)
}

type Result struct {
	IntentID        uuid.UUID  `json:"intent_id"`
	TransactionID   *uuid.UUID `json:"transaction_id,omitempty"`
	Reference       string     `json:"reference"`
	VendorReference string     `json:"vendor_reference,omitempty"`
	Message         string     `json:"message,omitempty"`
	Token           string     `json:"token,omitempty"`
}

type Service struct {
	Wallets  wallet.Repository
	Intents  Repository
	Vendor   Vendor
	Notifier notification.Notifier
}

func NewService(wallets wallet.Repository, intents Repository, v Vendor, notifier notification.Notifier) *Service {
	if notifier == nil {
		notifier = notification.Discard{}
	}
	return &Service{Wallets: wallets, Intents: intents, Vendor: v, Notifier: notifier}
}

func (s *Service) check(req Request) error {
	if !req.Service.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedService, req.Service)
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return ErrInvalidAmount
	}
	if fields := validator.Validate(req); fields != nil {
		return &ParamError{Fields: fields}
	}
	return nil
}

// Purchase debits the caller's main wallet, buys the product and records the
// outcome. A vendor failure is refunded before the *vendor.Error is returned.
func (s *Service) Purchase(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	fields := logger.Fields{
		logger.UserIdKey: userID.String(),
		"service":        string(req.Service),
		logger.AmountKey: req.Amount.String(),
	}

	mainWallet, err := s.Wallets.GetWallet(ctx, userID, wallet.KindMain)
	if err != nil {
		return nil, err
	}
	if mainWallet.Balance.LessThan(req.Amount) {
		return nil, wallet.ErrInsufficientBalance
	}

	intent, err := newIntent(userID, req)
	if err != nil {
		return nil, err
	}
	if err := s.Intents.Open(ctx, intent); err != nil {
		if !errors.Is(err, wallet.ErrInsufficientBalance) {
			logger.Error("Failed to debit wallet for purchase", logger.Merge(fields, logger.WithError(err)))
		}
		return nil, err
	}
	fields[logger.IntentIDKey] = intent.ID.String()
	logger.Info("Wallet debited for purchase", fields)

	// the wallet is debited: a disconnect must not turn a delivered order into a
	// refund, so the vendor call and settlement run to completion. The vendor
	// client's own timeout bounds the call.
	settleCtx := context.WithoutCancel(ctx)

	receipt, err := s.Vendor.Purchase(settleCtx, req.Order())
	if err != nil {
		return nil, s.settleFailure(settleCtx, intent, err, fields)
	}
	return s.settleSuccess(settleCtx, intent, receipt, fields), nil
}

func (s *Service) settleSuccess(ctx context.Context, intent *Intent, receipt *vendor.Receipt, fields logger.Fields) *Result {
	intent.VendorReference = receipt.Reference
	intent.VendorResponse = datatypes.JSON(receipt.Raw)

	result := &Result{
		IntentID:        intent.ID,
		Reference:       intent.Reference(),
		VendorReference: receipt.Reference,
		Message:         receipt.Message,
		Token:           receipt.Token,
	}

	err := s.record(ctx, intent, wallet.TransactionCompleted, s.Intents.Complete)
	if err != nil {
		// the product was delivered, so the caller still gets success
		logger.Error("Failed to record completed purchase", logger.Merge(fields, logger.WithError(err)))
		intent.State = StateVendorSucceeded
		if err := s.Intents.Transition(ctx, intent, awaitingVendor...); err != nil {
			logger.Error("Failed to mark purchase vendor_succeeded", logger.Merge(fields, logger.WithError(err)))
		}
	} else {
		result.TransactionID = intent.TransactionID
		logger.Info("Purchase completed", fields)
	}

	s.Notifier.Notify(ctx, intent.UserID, string(intent.Category), "Purchase successful",
		fmt.Sprintf("Your %s purchase of %s was successful.", intent.Service, intent.Amount.StringFixed(2)))
	return result
}

func (s *Service) settleFailure(ctx context.Context, intent *Intent, cause error, fields logger.Fields) error {
	var verr *vendor.Error
	if !errors.As(cause, &verr) {
		verr = &vendor.Error{Message: cause.Error()}
	}
	intent.Error = verr.Message
	intent.VendorResponse = datatypes.JSON(verr.Raw)
	logger.Warn("Vendor rejected purchase", logger.Merge(fields, logger.Fields{logger.ErrorKey: verr.Message}))

	var pending *wallet.Transaction
	err := s.record(ctx, intent, wallet.TransactionFailed, s.Intents.Fail)
	if err != nil {
		logger.Error("Failed to record failed purchase", logger.Merge(fields, logger.WithError(err)))
		intent.State = StateVendorFailed
		if err := s.Intents.Transition(ctx, intent, awaitingVendor...); err != nil {
			logger.Error("Failed to mark purchase vendor_failed", logger.Merge(fields, logger.WithError(err)))
			return verr
		}
		// the refund carries the ledger row instead
		pending, err = intent.ledgerEntry(wallet.TransactionFailed)
		if err != nil {
			logger.Error("Failed to build failed purchase entry", logger.Merge(fields, logger.WithError(err)))
		}
	}

	if err := s.Intents.Refund(ctx, intent, pending); err != nil {
		logger.Error("Failed to refund purchase", logger.Merge(fields, logger.WithError(err)))
	} else {
		logger.Info("Purchase refunded", fields)
	}

	s.Notifier.Notify(ctx, intent.UserID, string(intent.Category), "Purchase failed",
		fmt.Sprintf("Your %s purchase of %s failed: %s", intent.Service, intent.Amount.StringFixed(2), verr.Message))
	return verr
}

func (s *Service) record(ctx context.Context, intent *Intent, status wallet.TransactionStatus,
	write func(context.Context, *Intent, *wallet.Transaction) error) error {
	entry, err := intent.ledgerEntry(status)
	if err != nil {
		return err
	}
	return write(ctx, intent, entry)
}

func (s *Service) ValidateSmartCard(ctx context.Context, planID, smartCardNumber string) (*vendor.Customer, error) {
	if planID == "" || smartCardNumber == "" {
		return nil, &ParamError{Fields: missing(map[string]string{"plan_id": planID, "smart_card_number": smartCardNumber})}
	}
	return s.Vendor.ValidateSmartCard(ctx, planID, smartCardNumber)
}

func (s *Service) ValidateMeter(ctx context.Context, discoID, meterType, meterNumber string) (*vendor.Customer, error) {
	if discoID == "" || meterType == "" || meterNumber == "" {
		return nil, &ParamError{Fields: missing(map[string]string{"disco_id": discoID, "meter_type": meterType, "meter_number": meterNumber})}
	}
	return s.Vendor.ValidateMeter(ctx, discoID, meterType, meterNumber)
}

func missing(values map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range values {
		if v == "" {
			out[k] = "This field is required"
		}
	}
	return out
}
