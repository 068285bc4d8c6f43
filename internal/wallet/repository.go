package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExists        = errors.New("user already has a wallet")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceChanged      = errors.New("balance changed concurrently")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type Repository interface {
	CreateWallets(ctx context.Context, userID uuid.UUID, pinHash string) (*Wallet, error)
	GetWallet(ctx context.Context, userID uuid.UUID, kind Kind) (*Wallet, error)
	Debit(ctx context.Context, userID uuid.UUID, kind Kind, amount decimal.Decimal) error
	Credit(ctx context.Context, userID uuid.UUID, kind Kind, amount decimal.Decimal) error
	DrainCashback(ctx context.Context, userID uuid.UUID, expected decimal.Decimal) error
	RestoreCashback(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByReference(ctx context.Context, ref string) (*Transaction, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
	CountTransactions(ctx context.Context, userID uuid.UUID) (int64, error)

	CreateCashbackTransaction(ctx context.Context, tx *CashbackTransaction) error
	GetCashbackTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]CashbackTransaction, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// DebitTx subtracts amount from the wallet in a single conditional UPDATE so the
// balance can never go negative, whatever the caller read beforehand.
func DebitTx(tx *gorm.DB, userID uuid.UUID, kind Kind, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	res := tx.Model(&Wallet{}).
		Where("user_id = ? AND kind = ? AND balance >= ?", userID, kind, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// CreditTx adds amount with an in-place increment, preserving concurrent writes.
func CreditTx(tx *gorm.DB, userID uuid.UUID, kind Kind, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	res := tx.Model(&Wallet{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *repository) CreateWallets(ctx context.Context, userID uuid.UUID, pinHash string) (*Wallet, error) {
	mainWallet := &Wallet{UserID: userID, Kind: KindMain, PinHash: pinHash}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(mainWallet).Error; err != nil {
			return err
		}
		return tx.Create(&Wallet{UserID: userID, Kind: KindCashback}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrWalletExists
	}
	if err != nil {
		return nil, err
	}
	return mainWallet, nil
}

func (r *repository) GetWallet(ctx context.Context, userID uuid.UUID, kind Kind) (*Wallet, error) {
	var wallet Wallet
	err := r.db.WithContext(ctx).Where("user_id = ? AND kind = ?", userID, kind).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) Debit(ctx context.Context, userID uuid.UUID, kind Kind, amount decimal.Decimal) error {
	return DebitTx(r.db.WithContext(ctx), userID, kind, amount)
}

func (r *repository) Credit(ctx context.Context, userID uuid.UUID, kind Kind, amount decimal.Decimal) error {
	return CreditTx(r.db.WithContext(ctx), userID, kind, amount)
}

// DrainCashback zeroes the cashback balance only if it still equals expected.
func (r *repository) DrainCashback(ctx context.Context, userID uuid.UUID, expected decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&Wallet{}).
		Where("user_id = ? AND kind = ? AND balance = ?", userID, KindCashback, expected).
		Updates(map[string]interface{}{
			"balance":         decimal.Zero,
			"total_withdrawn": gorm.Expr("total_withdrawn + ?", expected),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBalanceChanged
	}
	return nil
}

// RestoreCashback reverses DrainCashback.
func (r *repository) RestoreCashback(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&Wallet{}).
		Where("user_id = ? AND kind = ?", userID, KindCashback).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", amount),
			"total_withdrawn": gorm.Expr("total_withdrawn - ?", amount),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *repository) GetTransactionByReference(ctx context.Context, ref string) (*Transaction, error) {
	var tx Transaction
	err := r.db.WithContext(ctx).Where("reference = ?", ref).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *repository) GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	return txs, err
}

func (r *repository) CountTransactions(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Transaction{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *repository) CreateCashbackTransaction(ctx context.Context, tx *CashbackTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *repository) GetCashbackTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]CashbackTransaction, int64, error) {
	var (
		txs   []CashbackTransaction
		count int64
	)
	if err := r.db.WithContext(ctx).Model(&CashbackTransaction{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	return txs, count, err
}
