package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zjoart/go-topup-wallet/internal/wallet"
)

var (
	ErrIntentNotFound = errors.New("purchase intent not found")
	ErrStateConflict  = errors.New("purchase intent is no longer in the expected state")
)

type Repository interface {
	// Open debits the main wallet and records the intent in one transaction.
	Open(ctx context.Context, intent *Intent) error
	// Complete writes the completed ledger row and closes the intent.
	Complete(ctx context.Context, intent *Intent, entry *wallet.Transaction) error
	// Fail writes the failed ledger row and moves the intent to vendor_failed.
	Fail(ctx context.Context, intent *Intent, entry *wallet.Transaction) error
	// Refund returns the amount to the main wallet at most once. A non-nil entry
	// is written in the same transaction for intents that have no ledger row yet.
	Refund(ctx context.Context, intent *Intent, entry *wallet.Transaction) error
	// Transition persists the intent's state and vendor outcome if it is still in
	// one of from.
	Transition(ctx context.Context, intent *Intent, from ...State) error
	Get(ctx context.Context, id uuid.UUID) (*Intent, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]Intent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Open(ctx context.Context, intent *Intent) error {
	intent.State = StateDebited
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := wallet.DebitTx(tx, intent.UserID, wallet.KindMain, intent.Amount); err != nil {
			return err
		}
		return tx.Create(intent).Error
	})
}

func (r *repository) Complete(ctx context.Context, intent *Intent, entry *wallet.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return moveTx(tx, intent, []State{StateDebited, StateReview, StateVendorSucceeded}, StateCompleted, &entry.ID)
	})
}

func (r *repository) Fail(ctx context.Context, intent *Intent, entry *wallet.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return moveTx(tx, intent, awaitingVendor, StateVendorFailed, &entry.ID)
	})
}

func (r *repository) Refund(ctx context.Context, intent *Intent, entry *wallet.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txID *uuid.UUID
		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
			txID = &entry.ID
		}
		if err := wallet.CreditTx(tx, intent.UserID, wallet.KindMain, intent.Amount); err != nil {
			return err
		}
		return moveTx(tx, intent, []State{StateVendorFailed}, StateRefunded, txID)
	})
}

func (r *repository) Transition(ctx context.Context, intent *Intent, from ...State) error {
	return moveTx(r.db.WithContext(ctx), intent, from, intent.State, nil)
}

// moveTx is the only writer of intent state. It fails with ErrStateConflict when
// another writer already moved the intent, which rolls back the caller's transaction.
func moveTx(tx *gorm.DB, intent *Intent, from []State, to State, txID *uuid.UUID) error {
	updates := map[string]interface{}{
		"state":            to,
		"vendor_reference": intent.VendorReference,
		"vendor_response":  intent.VendorResponse,
		"error":            intent.Error,
		"updated_at":       time.Now().UTC(),
	}
	if txID != nil {
		updates["transaction_id"] = *txID
	}

	res := tx.Model(&Intent{}).Where("id = ? AND state IN ?", intent.ID, from).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateConflict
	}

	intent.State = to
	if txID != nil {
		intent.TransactionID = txID
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Intent, error) {
	var intent Intent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) ListStale(ctx context.Context, before time.Time, limit int) ([]Intent, error) {
	var intents []Intent
	err := r.db.WithContext(ctx).
		Where("state IN ? AND updated_at < ?", []State{StateDebited, StateVendorSucceeded, StateVendorFailed}, before).
		Order("updated_at").
		Limit(limit).
		Find(&intents).Error
	return intents, err
}
