package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedisHealth struct {
	err error
}

func (f *fakeRedisHealth) HealthCheck(ctx context.Context) error {
	return f.err
}

func checkHealth(t *testing.T, handler *HealthHandler) map[string]string {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.Check(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthHandler(t *testing.T) {
	t.Run("without redis", func(t *testing.T) {
		body := checkHealth(t, NewHealthHandler("login-approval-service", nil))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "login-approval-service", body["service"])
		assert.NotContains(t, body, "redis")
	})

	t.Run("redis healthy", func(t *testing.T) {
		body := checkHealth(t, NewHealthHandler("login-approval-service", &fakeRedisHealth{}))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "healthy", body["redis"])
	})

	t.Run("redis unavailable", func(t *testing.T) {
		checker := &fakeRedisHealth{err: errors.New("connection refused")}
		body := checkHealth(t, NewHealthHandler("login-approval-service", checker))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "unavailable", body["redis"])
	})

	t.Run("wrong method", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/health", nil)
		w := httptest.NewRecorder()
		NewHealthHandler("login-approval-service", nil).Check(w, r)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
