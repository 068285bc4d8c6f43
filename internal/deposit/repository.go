package deposit

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zjoart/go-topup-wallet/internal/wallet"
)

var ErrEventNotFound = errors.New("deposit event not found")

type Repository interface {
	// ClaimAndCredit inserts the claim and credits the main wallet atomically.
	// It reports false without crediting when the reference was already claimed.
	ClaimAndCredit(ctx context.Context, evt *Event) (bool, error)
	Get(ctx context.Context, reference string) (*Event, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ClaimAndCredit(ctx context.Context, evt *Event) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(evt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		// a failed credit rolls the claim back with it
		if err := wallet.CreditTx(tx, evt.UserID, wallet.KindMain, evt.Amount); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (r *repository) Get(ctx context.Context, reference string) (*Event, error) {
	var evt Event
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&evt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &evt, nil
}
