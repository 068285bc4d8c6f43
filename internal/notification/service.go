package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

// Notifier is what the settlement services depend on. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, category, title, body string)
}

type Service struct {
	Repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{Repo: repo}
}

func (s *Service) Notify(ctx context.Context, userID uuid.UUID, category, title, body string) {
	n := &Notification{UserID: userID, Category: category, Title: title, Body: body}
	if err := s.Repo.Create(ctx, n); err != nil {
		logger.Warn("Failed to record notification", logger.Merge(logger.WithError(err), logger.Fields{
			logger.UserIdKey: userID.String(),
			"category":       category,
		}))
	}
}

// Discard drops every notification. Used where no store is wired.
type Discard struct{}

func (Discard) Notify(context.Context, uuid.UUID, string, string, string) {}
