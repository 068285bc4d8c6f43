package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zjoart/go-topup-wallet/internal/key"
	"github.com/zjoart/go-topup-wallet/internal/user"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

// APIKeyHeader carries a server-to-server API key in place of a bearer token.
const APIKeyHeader = "x-api-key"

func JWTMiddleware(secret string, userRepo user.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			usr, msg := authenticateJWT(r, secret, userRepo)
			if usr == nil {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, msg, nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), usr, []string{"*"})))
		})
	}
}

// UnifiedAuthMiddleware accepts either an API key or a bearer token, preferring
// the API key when both are sent.
func UnifiedAuthMiddleware(secret string, userRepo user.Repository, keyRepo key.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				usr   *user.User
				perms []string
				msg   string
			)
			if r.Header.Get(APIKeyHeader) != "" {
				usr, perms, msg = authenticateKey(r, keyRepo, userRepo)
			} else {
				usr, msg = authenticateJWT(r, secret, userRepo)
				perms = []string{"*"}
			}
			if usr == nil {
				utils.BuildErrorResponse(w, http.StatusUnauthorized, msg, nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), usr, perms)))
		})
	}
}

func RequirePermission(perm key.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perms, ok := r.Context().Value(utils.PermissionsKey).([]string)
			if !ok {
				utils.BuildErrorResponse(w, http.StatusForbidden, "Permissions not found", nil)
				return
			}

			hasPerm := false
			for _, p := range perms {
				if p == "*" || p == string(perm) {
					hasPerm = true
					break
				}
			}

			if !hasPerm {
				utils.BuildErrorResponse(w, http.StatusForbidden, "Insufficient permissions", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IssueToken signs a bearer token for userID.
func IssueToken(secret string, userID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		utils.UserIDKey: userID.String(),
		utils.ExpKey:    expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	return signed, expiresAt, err
}

func authenticateJWT(r *http.Request, secret string, userRepo user.Repository) (*user.User, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "Authorization required"
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, "Invalid token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "Invalid token claims"
	}

	userIDStr, _ := claims[utils.UserIDKey].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, "Invalid user ID in token"
	}

	usr, err := userRepo.FindByID(r.Context(), userID)
	if err != nil {
		return nil, "User not found"
	}
	return usr, ""
}

func authenticateKey(r *http.Request, keyRepo key.Repository, userRepo user.Repository) (*user.User, []string, string) {
	apiKeyHeader := r.Header.Get(APIKeyHeader)
	if apiKeyHeader == "" {
		return nil, nil, "API Key required"
	}

	apiKey, err := keyRepo.FindByKey(r.Context(), apiKeyHeader)
	if err != nil {
		return nil, nil, "Invalid API Key"
	}
	if apiKey.IsRevoked {
		return nil, nil, "API Key revoked"
	}
	if !apiKey.Active(time.Now()) {
		return nil, nil, "API key has expired"
	}

	usr, err := userRepo.FindByID(r.Context(), apiKey.UserID)
	if err != nil {
		return nil, nil, "Associated user not found"
	}
	return usr, apiKey.Permissions, ""
}

func withCaller(ctx context.Context, usr *user.User, perms []string) context.Context {
	ctx = context.WithValue(ctx, utils.UserKey, *usr)
	ctx = context.WithValue(ctx, utils.UserIDCtxKey, usr.ID)
	return context.WithValue(ctx, utils.PermissionsKey, perms)
}
