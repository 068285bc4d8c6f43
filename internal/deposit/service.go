package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/zjoart/go-topup-wallet/internal/notification"
	"github.com/zjoart/go-topup-wallet/internal/provider"
	"github.com/zjoart/go-topup-wallet/internal/user"
	"github.com/zjoart/go-topup-wallet/internal/wallet"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

var (
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrInvalidPayload     = errors.New("invalid deposit notification")
	ErrUnknownAccount     = errors.New("no user owns the receiving account")
	ErrWalletUpdateFailed = errors.New("failed to credit wallet")
)

type Outcome string

const (
	OutcomeCredited         Outcome = "credited"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeIgnored          Outcome = "ignored"
)

type Result struct {
	Outcome   Outcome         `json:"outcome"`
	Reference string          `json:"reference,omitempty"`
	UserID    uuid.UUID       `json:"user_id,omitempty"`
	Amount    decimal.Decimal `json:"amount,omitempty"`
}

type Service struct {
	Users            user.Repository
	Wallets          wallet.Repository
	Events           Repository
	Notifier         notification.Notifier
	Secret           string
	RequireSignature bool
}

func NewService(users user.Repository, wallets wallet.Repository, events Repository, notifier notification.Notifier, secret string, requireSignature bool) *Service {
	if notifier == nil {
		notifier = notification.Discard{}
	}
	return &Service{
		Users:            users,
		Wallets:          wallets,
		Events:           events,
		Notifier:         notifier,
		Secret:           secret,
		RequireSignature: requireSignature,
	}
}

// Authenticate checks the body signature. An absent signature passes only when
// signatures are not required; it reports whether the body was verified.
func (s *Service) Authenticate(raw []byte, signature string) (bool, error) {
	if signature == "" {
		if s.RequireSignature {
			return false, ErrInvalidSignature
		}
		return false, nil
	}
	if !provider.VerifySignature(raw, signature, s.Secret) {
		return false, ErrInvalidSignature
	}
	return true, nil
}

func Decode(raw []byte) (provider.DepositNotification, error) {
	var n provider.DepositNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return n, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return n, nil
}

// HandleNotification authenticates, decodes and applies a provider webhook body.
func (s *Service) HandleNotification(ctx context.Context, raw []byte, signature string) (*Result, error) {
	verified, err := s.Authenticate(raw, signature)
	if err != nil {
		logger.Warn("Rejected deposit webhook", logger.WithError(err))
		return nil, err
	}

	n, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, n, raw, verified)
}

// Process credits the receiving user's main wallet by the settlement amount exactly
// once per provider transaction id.
func (s *Service) Process(ctx context.Context, n provider.DepositNotification, raw []byte, verified bool) (*Result, error) {
	fields := logger.Fields{
		logger.ReferenceKey: n.TransactionID,
		"account_number":    n.Receiver.AccountNumber,
	}

	if !n.Successful() {
		logger.Info("Ignoring unsuccessful deposit notification", logger.Merge(fields, logger.Fields{
			"notification_status": n.NotificationStatus,
			"transaction_status":  n.TransactionStatus,
		}))
		return &Result{Outcome: OutcomeIgnored, Reference: n.TransactionID}, nil
	}
	if n.TransactionID == "" || !n.SettlementAmount.IsPositive() {
		return nil, fmt.Errorf("%w: missing transaction id or settlement amount", ErrInvalidPayload)
	}

	u, err := s.Users.FindByAccountNumber(ctx, n.Receiver.AccountNumber)
	if errors.Is(err, user.ErrNotFound) {
		logger.Warn("Deposit for unknown account", fields)
		return nil, ErrUnknownAccount
	}
	if err != nil {
		return nil, err
	}
	fields[logger.UserIdKey] = u.ID.String()
	fields[logger.AmountKey] = n.SettlementAmount.String()

	result := &Result{Outcome: OutcomeAlreadyProcessed, Reference: n.TransactionID, UserID: u.ID, Amount: n.SettlementAmount}

	if _, err := s.Wallets.GetTransactionByReference(ctx, n.TransactionID); err == nil {
		logger.Info("Deposit already recorded", fields)
		return result, nil
	} else if !errors.Is(err, wallet.ErrTransactionNotFound) {
		return nil, err
	}

	claimed, err := s.Events.ClaimAndCredit(ctx, &Event{
		Reference:         n.TransactionID,
		UserID:            u.ID,
		Amount:            n.SettlementAmount,
		Payload:           datatypes.JSON(raw),
		SignatureVerified: verified,
		ProcessedAt:       time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to credit deposit", logger.Merge(fields, logger.WithError(err)))
		return nil, fmt.Errorf("%w: %v", ErrWalletUpdateFailed, err)
	}
	if !claimed {
		logger.Info("Deposit already claimed", fields)
		return result, nil
	}
	result.Outcome = OutcomeCredited
	logger.Info("Wallet credited from deposit", fields)

	// the credit has committed; what follows is record keeping
	ctx = context.WithoutCancel(ctx)
	s.record(ctx, u.ID, n, fields)
	s.Notifier.Notify(ctx, u.ID, string(wallet.CategoryDeposit), "Wallet funded",
		fmt.Sprintf("Your wallet has been credited with %s from %s.", n.SettlementAmount.StringFixed(2), senderName(n)))
	return result, nil
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, n provider.DepositNotification, fields logger.Fields) {
	ref := n.TransactionID
	paid, fee := n.AmountPaid, n.SettlementFee

	tx := &wallet.Transaction{
		UserID:      userID,
		Type:        wallet.TransactionCredit,
		Category:    wallet.CategoryDeposit,
		Amount:      n.SettlementAmount,
		Description: "Bank transfer from " + senderName(n),
		Status:      wallet.TransactionCompleted,
		Reference:   &ref,
	}
	err := tx.SetMetadata(wallet.DepositMetadata{
		Source:              wallet.SourceBankTransfer,
		SenderName:          n.Sender.Name,
		SenderAccountNumber: n.Sender.AccountNumber,
		SenderBank:          n.Sender.Bank,
		AmountPaid:          &paid,
		SettlementFee:       &fee,
		ProviderTimestamp:   n.Timestamp,
	})
	if err == nil {
		err = s.Wallets.CreateTransaction(ctx, tx)
	}
	if err != nil {
		logger.Error("Failed to record deposit transaction", logger.Merge(fields, logger.WithError(err)))
	}
}

func senderName(n provider.DepositNotification) string {
	if n.Sender.Name != "" {
		return n.Sender.Name
	}
	return "an external account"
}
