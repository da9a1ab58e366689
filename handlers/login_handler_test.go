package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vote-portal/login-approval-service/config"
	"github.com/vote-portal/login-approval-service/middleware"
	"github.com/vote-portal/login-approval-service/models"
	"github.com/vote-portal/login-approval-service/realtime"
	"github.com/vote-portal/login-approval-service/services"
)

const testAdminKey = "test-admin-key"

type testEnv struct {
	server *httptest.Server
	hub    *realtime.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	db := services.SetupSQLiteTestDB(t)
	hub := realtime.NewHub()
	bridge := realtime.NewBridge(hub, nil, "test")

	audit := services.NewAuditService(db, bridge)
	login := services.NewLoginService(db, config.GetDefaultPlatforms(), audit, bridge, 15*time.Minute)

	router := NewRouter(
		NewLoginHandler(login, audit),
		NewAuditHandler(audit),
		NewEventsHandler(hub, testAdminKey),
		NewHealthHandler("login-approval-service", nil),
		testAdminKey,
	)
	mux := http.NewServeMux()
	router.RegisterRoutes(mux)

	server := httptest.NewServer(router.ApplyCORS(mux))
	t.Cleanup(server.Close)

	return &testEnv{server: server, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, adminKey string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if adminKey != "" {
		req.Header.Set(middleware.AdminKeyHeader, adminKey)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func (e *testEnv) submit(t *testing.T, platform, account string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/social-login", models.SubmitLoginRequest{
		Platform: platform,
		Account:  account,
		Password: "hunter2",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body models.SubmitLoginResponse
	decodeBody(t, resp, &body)
	require.True(t, body.Success)
	require.True(t, body.RequiresApproval)
	require.NotEmpty(t, body.LoginID)
	return body.LoginID
}

func TestSubmitEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("valid submission", func(t *testing.T) {
		loginID := env.submit(t, "facebook", "someone@example.com")
		assert.Contains(t, loginID, "login_")
	})

	t.Run("missing password", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/social-login", map[string]string{
			"platform": "facebook",
			"account":  "someone@example.com",
		}, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]interface{}
		decodeBody(t, resp, &body)
		assert.Equal(t, false, body["success"])
	})

	t.Run("wrong method", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/social-login", nil, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	loginID := env.submit(t, "gmail", "someone@example.com")

	t.Run("returns redacted view", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/social-login/status?id="+loginID, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Contains(t, string(raw), loginID)
		assert.Contains(t, string(raw), `"pending"`)
		assert.NotContains(t, string(raw), "hunter2")
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/social-login/status?id=login_nope", nil, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing id", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/social-login/status", nil, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPendingEndpoint(t *testing.T) {
	env := newTestEnv(t)
	loginID := env.submit(t, "zalo", "0912345678")

	t.Run("requires admin key", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/social-login/pending", nil, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("admin sees full records", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/social-login/pending?status=pending", nil, testAdminKey)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Contains(t, string(raw), loginID)
		// The admin view keeps the password for manual login replay
		assert.Contains(t, string(raw), "hunter2")
	})

	t.Run("unknown status filter", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/social-login/pending?status=done", nil, testAdminKey)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestApproveEndpoint(t *testing.T) {
	env := newTestEnv(t)
	loginID := env.submit(t, "gmail", "someone@example.com")

	t.Run("requires admin key", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/social-login/approve", models.AdminActionRequest{ID: loginID}, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("approves pending request", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/social-login/approve", models.AdminActionRequest{ID: loginID}, testAdminKey)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body models.ActionResponse
		decodeBody(t, resp, &body)
		assert.True(t, body.Success)
		assert.Equal(t, models.StatusApproved, body.Status)
	})

	t.Run("repeat approval conflicts", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/social-login/approve", models.AdminActionRequest{ID: loginID}, testAdminKey)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/social-login/approve", models.AdminActionRequest{ID: "login_nope"}, testAdminKey)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing id", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/social-login/approve", models.AdminActionRequest{}, testAdminKey)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRejectEndpoint(t *testing.T) {
	env := newTestEnv(t)
	loginID := env.submit(t, "gmail", "someone@example.com")

	resp := env.do(t, http.MethodPost, "/api/social-login/reject",
		models.AdminActionRequest{ID: loginID, Reason: "bad credentials"}, testAdminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.ActionResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, models.StatusRejected, body.Status)
}

func TestOTPEndpoints(t *testing.T) {
	env := newTestEnv(t)
	loginID := env.submit(t, "facebook", "someone@example.com")

	resp := env.do(t, http.MethodPost, "/api/social-login/request-otp", models.AdminActionRequest{ID: loginID}, testAdminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.ActionResponse
	decodeBody(t, resp, &body)
	require.Equal(t, models.StatusPendingOTP, body.Status)

	t.Run("approve without otp fails", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/social-login/approve", models.AdminActionRequest{ID: loginID}, testAdminKey)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("supplying otp approves", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/social-login/otp",
			models.SupplyOTPRequest{ID: loginID, OTPCode: "123456"}, testAdminKey)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body models.ActionResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, models.StatusApproved, body.Status)
	})
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}
