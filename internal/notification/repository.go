package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zjoart/go-topup-wallet/internal/outbox"
)

var ErrNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create stores the notification together with its outbox event.
func (r *repository) Create(ctx context.Context, n *Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		return outbox.Enqueue(tx, "notification", n.UserID.String(), EventCreated, CreatedEvent{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Title:          n.Title,
			Body:           n.Body,
			Category:       n.Category,
			CreatedAt:      n.CreatedAt,
		})
	})
}

func (r *repository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int64, error) {
	var (
		list  []Notification
		count int64
	)
	if err := r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, count, err
}

func (r *repository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
