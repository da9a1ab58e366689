package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogEntry_Validate(t *testing.T) {
	t.Run("valid entry", func(t *testing.T) {
		entry := &AuditLogEntry{Action: ActionSubmitLogin, Actor: ActorVisitor}
		require.NoError(t, entry.Validate())
	})

	t.Run("unknown action", func(t *testing.T) {
		entry := &AuditLogEntry{Action: "delete_everything", Actor: ActorAdmin}
		assert.Error(t, entry.Validate())
	})

	t.Run("unknown actor", func(t *testing.T) {
		entry := &AuditLogEntry{Action: ActionApproveLogin, Actor: "robot"}
		assert.Error(t, entry.Validate())
	})
}

func TestSummarizeLogin_ExcludesPassword(t *testing.T) {
	lr := &LoginRequest{
		ID:       NewLoginID(),
		Platform: "zalo",
		Account:  "0912345678",
		Password: "topsecret",
		Status:   StatusPending,
	}

	summary := SummarizeLogin(lr, "")
	assert.NotContains(t, string(summary), "topsecret")
	assert.Contains(t, string(summary), "zalo")
	assert.Contains(t, string(summary), "0912345678")
	assert.NotContains(t, string(summary), "reason")
}

func TestSummarizeLogin_CarriesReason(t *testing.T) {
	lr := &LoginRequest{
		ID:       NewLoginID(),
		Platform: "gmail",
		Account:  "someone@example.com",
		Password: "topsecret",
		Status:   StatusRejected,
	}

	summary := SummarizeLogin(lr, "suspicious submission")
	assert.Contains(t, string(summary), "suspicious submission")
	assert.NotContains(t, string(summary), "topsecret")
}

func TestSubmitLoginRequest_AccountName(t *testing.T) {
	t.Run("account wins over username", func(t *testing.T) {
		req := &SubmitLoginRequest{Account: "a@example.com", Username: "b@example.com"}
		assert.Equal(t, "a@example.com", req.AccountName())
	})

	t.Run("username alias accepted", func(t *testing.T) {
		req := &SubmitLoginRequest{Username: "b@example.com"}
		assert.Equal(t, "b@example.com", req.AccountName())
	})
}
