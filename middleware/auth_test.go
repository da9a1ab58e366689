package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidAdminKey(t *testing.T) {
	newRequest := func(key string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/social-login/pending", nil)
		if key != "" {
			r.Header.Set(AdminKeyHeader, key)
		}
		return r
	}

	assert.True(t, ValidAdminKey(newRequest("s3cret"), "s3cret"))
	assert.False(t, ValidAdminKey(newRequest("wrong"), "s3cret"))
	assert.False(t, ValidAdminKey(newRequest(""), "s3cret"))

	// An unset server-side key must never authenticate anyone
	assert.False(t, ValidAdminKey(newRequest(""), ""))
	assert.False(t, ValidAdminKey(newRequest("anything"), ""))
}

func TestAdminKeyMiddleware(t *testing.T) {
	handler := AdminKeyMiddleware("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid key passes through", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(AdminKeyHeader, "s3cret")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing key rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid admin key")
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(AdminKeyHeader, "guess")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
