package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")

type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByAccountNumber(ctx context.Context, accountNumber string) (*User, error)
	SetVirtualAccount(ctx context.Context, id uuid.UUID, accountNumber, accountName, bankName string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateUser(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByAccountNumber(ctx context.Context, accountNumber string) (*User, error) {
	return r.first(ctx, "account_number = ?", accountNumber)
}

func (r *repository) SetVirtualAccount(ctx context.Context, id uuid.UUID, accountNumber, accountName, bankName string) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"account_number": accountNumber,
		"account_name":   accountName,
		"bank_name":      bankName,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) first(ctx context.Context, query string, arg interface{}) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
