package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-topup-wallet/internal/key"
	"github.com/zjoart/go-topup-wallet/internal/user"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

const secret = "test-secret"

type fakeUsers struct {
	user.Repository
	users map[uuid.UUID]*user.User
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

type fakeKeys struct {
	key.Repository
	byHash map[string]*key.APIKey
}

func (f *fakeKeys) FindByKey(_ context.Context, value string) (*key.APIKey, error) {
	sum := sha256.Sum256([]byte(value))
	if k, ok := f.byHash[hex.EncodeToString(sum[:])]; ok {
		return k, nil
	}
	return nil, key.ErrKeyNotFound
}

func hashed(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name           string
		userPerms      []string
		requiredPerm   key.Permission
		expectedStatus int
	}{
		{
			name:           "JWT User (Wildcard) - Access Granted",
			userPerms:      []string{"*"},
			requiredPerm:   key.PermissionPurchase,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "API Key (Exact Match) - Access Granted",
			userPerms:      []string{"PURCHASE"},
			requiredPerm:   key.PermissionPurchase,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "API Key (Superset) - Access Granted",
			userPerms:      []string{"PURCHASE", "WITHDRAW"},
			requiredPerm:   key.PermissionWithdraw,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "API Key (Missing Perm) - Access Denied",
			userPerms:      []string{"READ"},
			requiredPerm:   key.PermissionPurchase,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "No Perms - Access Denied",
			userPerms:      []string{},
			requiredPerm:   key.PermissionRead,
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			middleware := RequirePermission(tt.requiredPerm)(nextHandler)

			req := httptest.NewRequest("GET", "/", nil)
			ctx := context.WithValue(req.Context(), utils.PermissionsKey, tt.userPerms)
			req = req.WithContext(ctx)

			rr := httptest.NewRecorder()
			middleware.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestUnifiedAuthMiddleware(t *testing.T) {
	ada := &user.User{ID: uuid.New(), Name: "Ada"}
	users := &fakeUsers{users: map[uuid.UUID]*user.User{ada.ID: ada}}
	keys := &fakeKeys{byHash: map[string]*key.APIKey{
		hashed("sk_live_good"):    {UserID: ada.ID, Permissions: pq.StringArray{"READ"}, ExpiresAt: time.Now().Add(time.Hour)},
		hashed("sk_live_revoked"): {UserID: ada.ID, IsRevoked: true, ExpiresAt: time.Now().Add(time.Hour)},
		hashed("sk_live_old"):     {UserID: ada.ID, ExpiresAt: time.Now().Add(-time.Hour)},
	}}

	var (
		gotID    uuid.UUID
		gotPerms []string
	)
	handler := UnifiedAuthMiddleware(secret, users, keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = utils.UserIDFromContext(r.Context())
		gotPerms, _ = r.Context().Value(utils.PermissionsKey).([]string)
		w.WriteHeader(http.StatusOK)
	}))

	call := func(header, value string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
		if header != "" {
			req.Header.Set(header, value)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	token, _, err := IssueToken(secret, ada.ID, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call("Authorization", "Bearer "+token))
	assert.Equal(t, ada.ID, gotID)
	assert.Equal(t, []string{"*"}, gotPerms)

	assert.Equal(t, http.StatusOK, call(APIKeyHeader, "sk_live_good"))
	assert.Equal(t, []string{"READ"}, gotPerms)

	assert.Equal(t, http.StatusUnauthorized, call("", ""))
	assert.Equal(t, http.StatusUnauthorized, call(APIKeyHeader, "sk_live_revoked"))
	assert.Equal(t, http.StatusUnauthorized, call(APIKeyHeader, "sk_live_old"))
	assert.Equal(t, http.StatusUnauthorized, call(APIKeyHeader, "sk_live_unknown"))

	forged, _, err := IssueToken("other-secret", ada.ID, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call("Authorization", "Bearer "+forged))

	expired, _, err := IssueToken(secret, ada.ID, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call("Authorization", "Bearer "+expired))

	stranger, _, err := IssueToken(secret, uuid.New(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call("Authorization", "Bearer "+stranger))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{utils.UserIDKey: ada.ID.String()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call("Authorization", "Bearer "+unsigned))
}

func TestJWTMiddlewareRejectsAPIKeys(t *testing.T) {
	ada := &user.User{ID: uuid.New()}
	users := &fakeUsers{users: map[uuid.UUID]*user.User{ada.ID: ada}}

	handler := JWTMiddleware(secret, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/keys/create", nil)
	req.Header.Set(APIKeyHeader, "sk_live_good")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
