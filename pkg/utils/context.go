package utils

import (
	"context"

	"github.com/google/uuid"
)

type ContextKey string

const (
	UserKey        ContextKey = "user"
	UserIDCtxKey   ContextKey = "user_id"
	PermissionsKey ContextKey = "permissions"
	RequestIDKey   ContextKey = "request_id"
	UserIDKey      string     = "user_id"
	ExpKey         string     = "exp"
)

// UserIDFromContext returns the authenticated caller, if any.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDCtxKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
