package cashback

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zjoart/go-topup-wallet/internal/notification"
	"github.com/zjoart/go-topup-wallet/internal/wallet"
	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

var (
	ErrNotFound       = errors.New("wallet not found")
	ErrBelowMinimum   = errors.New("cashback balance is below the withdrawal minimum")
	ErrTransferFailed = errors.New("cashback transfer failed")
)

type Result struct {
	Amount          decimal.Decimal `json:"amount"`
	MainBalance     decimal.Decimal `json:"main_balance"`
	CashbackBalance decimal.Decimal `json:"cashback_balance"`
}

type Service struct {
	Wallets  wallet.Repository
	Notifier notification.Notifier
	Minimum  decimal.Decimal
}

func NewService(wallets wallet.Repository, notifier notification.Notifier, minimum decimal.Decimal) *Service {
	if notifier == nil {
		notifier = notification.Discard{}
	}
	return &Service{Wallets: wallets, Notifier: notifier, Minimum: minimum}
}

// Withdraw moves the whole cashback balance into the main wallet. The drain only
// succeeds if the balance is unchanged since it was read, and is restored if the
// main wallet credit fails.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID) (*Result, error) {
	fields := logger.Fields{logger.UserIdKey: userID.String()}

	cb, err := s.Wallets.GetWallet(ctx, userID, wallet.KindCashback)
	if err != nil {
		return nil, s.lookupError(err)
	}
	mainWallet, err := s.Wallets.GetWallet(ctx, userID, wallet.KindMain)
	if err != nil {
		return nil, s.lookupError(err)
	}

	amount := cb.Balance
	if amount.LessThan(s.Minimum) || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimum, s.Minimum.StringFixed(2))
	}
	fields[logger.AmountKey] = amount.String()

	if err := s.Wallets.DrainCashback(ctx, userID, amount); err != nil {
		logger.Warn("Cashback drain failed", logger.Merge(fields, logger.WithError(err)))
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	// from here the cashback is out of its wallet and must land somewhere
	ctx = context.WithoutCancel(ctx)
	if err := s.Wallets.Credit(ctx, userID, wallet.KindMain, amount); err != nil {
		logger.Error("Cashback credit failed, restoring", logger.Merge(fields, logger.WithError(err)))
		if rerr := s.Wallets.RestoreCashback(ctx, userID, amount); rerr != nil {
			logger.Error("Failed to restore cashback", logger.Merge(fields, logger.WithError(rerr)))
		}
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	logger.Info("Cashback transferred to main wallet", fields)

	s.record(ctx, userID, amount, fields)
	s.Notifier.Notify(ctx, userID, string(wallet.CategoryDeposit), "Cashback withdrawn",
		fmt.Sprintf("%s cashback has been moved to your main wallet.", amount.StringFixed(2)))

	return &Result{
		Amount:          amount,
		MainBalance:     s.mainBalance(ctx, userID, mainWallet.Balance.Add(amount)),
		CashbackBalance: decimal.Zero,
	}, nil
}

// mainBalance re-reads the main wallet so purchases and deposits that ran during
// the transfer are reflected. fallback is used if the read fails.
func (s *Service) mainBalance(ctx context.Context, userID uuid.UUID, fallback decimal.Decimal) decimal.Decimal {
	w, err := s.Wallets.GetWallet(ctx, userID, wallet.KindMain)
	if err != nil {
		logger.Warn("Failed to re-read main wallet after cashback transfer", logger.Merge(logger.Fields{logger.UserIdKey: userID.String()}, logger.WithError(err)))
		return fallback
	}
	return w.Balance
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, fields logger.Fields) {
	cbTx := &wallet.CashbackTransaction{
		UserID:      userID,
		Type:        wallet.CashbackWithdrawn,
		Amount:      amount,
		Category:    wallet.CategoryTransfer,
		Description: "Cashback withdrawal to main wallet",
	}
	if err := s.Wallets.CreateCashbackTransaction(ctx, cbTx); err != nil {
		logger.Error("Failed to record cashback withdrawal", logger.Merge(fields, logger.WithError(err)))
		cbTx = nil
	}

	meta := wallet.DepositMetadata{Source: wallet.SourceCashback}
	if cbTx != nil {
		meta.CashbackTransactionID = &cbTx.ID
	}
	tx := &wallet.Transaction{
		UserID:      userID,
		Type:        wallet.TransactionCredit,
		Category:    wallet.CategoryDeposit,
		Amount:      amount,
		Description: "Cashback withdrawal",
		Status:      wallet.TransactionCompleted,
	}
	err := tx.SetMetadata(meta)
	if err == nil {
		err = s.Wallets.CreateTransaction(ctx, tx)
	}
	if err != nil {
		logger.Error("Failed to record cashback deposit", logger.Merge(fields, logger.WithError(err)))
	}
}

func (s *Service) lookupError(err error) error {
	if errors.Is(err, wallet.ErrWalletNotFound) {
		return ErrNotFound
	}
	return err
}
