package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"event-ticket-ledger/internal/cache"
	"event-ticket-ledger/internal/clock"
	"event-ticket-ledger/internal/handler"
	"event-ticket-ledger/internal/middleware"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingLimiter struct {
	mu      sync.Mutex
	allowed bool
	keys    []string
}

func (l *recordingLimiter) Allow(ctx context.Context, key string) (cache.Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return cache.Decision{Allowed: l.allowed, Remaining: 1}, nil
}

func TestNewRouter_RateLimitKeyedByPrincipal(t *testing.T) {
	t.Run("authenticated caller", func(t *testing.T) {
		svc := mocks.NewMockLedgerService(t)
		limiter := &recordingLimiter{allowed: true}
		router := handler.NewRouter(svc, clock.NewManual(testNow),
			middleware.Authenticate(testSecret), middleware.RateLimit(limiter, 5))
		svc.On("Deposit", mock.Anything, model.Principal("alice"), model.Amount(5)).Return(model.Amount(5), nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest(t, http.MethodPost, "/api/v1/accounts/deposit", map[string]uint64{"amount": 5}, "alice"))

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, limiter.keys, 1)
		assert.Equal(t, "alice:POST:/api/v1/accounts/deposit", limiter.keys[0])
	})

	t.Run("blocked before the service", func(t *testing.T) {
		svc := mocks.NewMockLedgerService(t)
		limiter := &recordingLimiter{allowed: false}
		router := handler.NewRouter(svc, clock.NewManual(testNow),
			middleware.Authenticate(testSecret), middleware.RateLimit(limiter, 5))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest(t, http.MethodPost, "/api/v1/accounts/deposit", map[string]uint64{"amount": 5}, "alice"))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("unauthenticated request never reaches the limiter", func(t *testing.T) {
		svc := mocks.NewMockLedgerService(t)
		limiter := &recordingLimiter{allowed: true}
		router := handler.NewRouter(svc, clock.NewManual(testNow),
			middleware.Authenticate(testSecret), middleware.RateLimit(limiter, 5))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest(t, http.MethodPost, "/api/v1/accounts/deposit", map[string]uint64{"amount": 5}, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, limiter.keys)
	})

	t.Run("public reads are not limited", func(t *testing.T) {
		svc := mocks.NewMockLedgerService(t)
		limiter := &recordingLimiter{allowed: false}
		router := handler.NewRouter(svc, clock.NewManual(testNow),
			middleware.Authenticate(testSecret), middleware.RateLimit(limiter, 5))
		svc.On("Balance", mock.Anything, model.Principal("bob")).Return(model.Amount(0), nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest(t, http.MethodGet, "/api/v1/accounts/bob/balance", nil, ""))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, limiter.keys)
	})
}

func TestNewRouter_Ping(t *testing.T) {
	_, router := setupMockRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}
