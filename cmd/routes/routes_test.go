package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-topup-wallet/internal/deposit"
	"github.com/zjoart/go-topup-wallet/internal/middleware"
	"github.com/zjoart/go-topup-wallet/internal/provider"
	"github.com/zjoart/go-topup-wallet/pkg/config"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.Config{
		Env:            "production",
		JWTSecret:      "secret",
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
	return RegisterRoutes(ctx, mux.NewRouter(), cfg, Dependencies{
		Deposits: deposit.NewService(nil, nil, nil, nil, "whsec", true),
	})
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestProtectedRoutesRequireCredentials(t *testing.T) {
	router := newRouter(t)

	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/wallet"},
		{http.MethodPost, "/api/purchase/airtime"},
		{http.MethodPost, "/api/cashback/withdraw"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodPost, "/api/keys/create"},
		{http.MethodPost, "/api/account/virtual-account"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/deposit", strings.NewReader(`{"transaction_id":"TXN1"}`))
	req.Header.Set(provider.SignatureHeader, "deadbeef")
	rr := httptest.NewRecorder()

	newRouter(t).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid signature")
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()

	newRouter(t).ServeHTTP(rr, req)

	assert.Equal(t, "req-42", rr.Header().Get(middleware.RequestIDHeader))
}
