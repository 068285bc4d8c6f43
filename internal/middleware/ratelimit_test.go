package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, rate.Limit(2), 2)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	makeRequest := func(ip string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	ip := "192.168.1.1"
	assert.Equal(t, http.StatusOK, makeRequest(ip))
	assert.Equal(t, http.StatusOK, makeRequest(ip))

	// request will be ratelimited here
	assert.Equal(t, http.StatusTooManyRequests, makeRequest(ip))

	// different IP should pass
	assert.Equal(t, http.StatusOK, makeRequest("192.168.1.2"))
}

func TestRateLimiterKeysOnAuthenticatedUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, rate.Limit(1), 1)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	userID := uuid.New()
	makeRequest := func(ip string) int {
		req := httptest.NewRequest("POST", "/api/purchase/airtime", nil)
		req.RemoteAddr = ip + ":1234"
		req = req.WithContext(context.WithValue(req.Context(), utils.UserIDCtxKey, userID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, makeRequest("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, makeRequest("10.0.0.2"))
}

func TestRequestIDAndLogging(t *testing.T) {
	var seen string
	handler := RequestID(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = utils.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "req-123", seen)
}
