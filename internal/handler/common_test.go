package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"event-ticket-ledger/internal/clock"
	"event-ticket-ledger/internal/handler"
	"event-ticket-ledger/internal/middleware"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/service"
	"event-ticket-ledger/internal/service/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var (
	InvalidJSON = `{"invalid": json}`
	testNow     = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
)

func setupRouter(svc service.LedgerService, clk clock.Clock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return handler.NewRouter(svc, clk, middleware.Authenticate(testSecret))
}

func setupMockRouter(t *testing.T) (*mocks.MockLedgerService, *gin.Engine) {
	t.Helper()
	svc := mocks.NewMockLedgerService(t)
	return svc, setupRouter(svc, clock.NewManual(testNow))
}

// create HTTP request with JSON body, signed as who when who is non-empty
func newRequest(t *testing.T, method, url string, data interface{}, who model.Principal) *http.Request {
	t.Helper()
	var body *bytes.Buffer
	switch v := data.(type) {
	case nil:
		body = bytes.NewBuffer(nil)
	case string:
		body = bytes.NewBufferString(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		token, err := middleware.IssueToken(testSecret, who, time.Hour, time.Now())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode(t *testing.T, body *bytes.Buffer, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body.Bytes(), out))
}
