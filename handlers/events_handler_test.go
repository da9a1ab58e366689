package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vote-portal/login-approval-service/middleware"
	"github.com/vote-portal/login-approval-service/realtime"
)

// openSSE connects to the events endpoint and returns a line scanner over the stream
func openSSE(t *testing.T, env *testEnv, topic, adminKey string) (*bufio.Scanner, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		env.server.URL+"/api/events?topic="+topic, nil)
	require.NoError(t, err)
	if adminKey != "" {
		req.Header.Set(middleware.AdminKeyHeader, adminKey)
	}

	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	closeStream := func() {
		cancel()
		resp.Body.Close()
	}
	return scanner, closeStream
}

// readEvent scans until the next event/data pair
func readEvent(t *testing.T, scanner *bufio.Scanner) (name, data string) {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			name = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			return name, data
		}
	}
	t.Fatal("stream ended before an event arrived")
	return "", ""
}

func TestEventsEndpoint_LoginTopic(t *testing.T) {
	env := newTestEnv(t)
	loginID := env.submit(t, "gmail", "someone@example.com")
	topic := realtime.LoginTopic(loginID)

	scanner, closeStream := openSSE(t, env, topic, "")
	defer closeStream()

	// Wait until the hub sees the subscriber before triggering the transition
	require.Eventually(t, func() bool {
		return env.hub.SubscriberCount(topic) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp := env.do(t, http.MethodPost, "/api/social-login/approve",
		map[string]string{"id": loginID}, testAdminKey)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	name, data := readEvent(t, scanner)
	assert.Equal(t, realtime.EventLoginUpdate, name)

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, loginID, payload.ID)
	assert.Equal(t, "approved", payload.Status)
	assert.NotContains(t, data, "hunter2")
}

func TestEventsEndpoint_AdminTopic(t *testing.T) {
	env := newTestEnv(t)

	t.Run("requires admin key", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/events?topic=admin", nil, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("receives submissions and audit entries", func(t *testing.T) {
		scanner, closeStream := openSSE(t, env, realtime.TopicAdmin, testAdminKey)
		defer closeStream()

		require.Eventually(t, func() bool {
			return env.hub.SubscriberCount(realtime.TopicAdmin) == 1
		}, 2*time.Second, 10*time.Millisecond)

		env.submit(t, "facebook", "watched@example.com")

		seen := map[string]bool{}
		for i := 0; i < 2; i++ {
			name, _ := readEvent(t, scanner)
			seen[name] = true
		}
		assert.True(t, seen[realtime.EventLoginUpdate] || seen[realtime.EventAuditLog])
	})
}

func TestEventsEndpoint_BadTopic(t *testing.T) {
	env := newTestEnv(t)

	for _, topic := range []string{"", "login:", "something-else"} {
		resp := env.do(t, http.MethodGet, "/api/events?topic="+topic, nil, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "topic %q", topic)
	}
}
