package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vote-portal/login-approval-service/models"
	"github.com/vote-portal/login-approval-service/realtime"

	"gorm.io/gorm"
)

// Notifier is the event fan-out surface the services publish to.
// realtime.Bridge implements it; tests substitute the bare hub or a fake.
type Notifier interface {
	Publish(topic string, event realtime.Event)
}

const (
	auditRetries = 3
	auditBackoff = time.Second
)

// AuditService handles the append-only audit trail. Appends happen on the
// request goroutine so the entry is durable before the HTTP response
// completes; a failed append never fails the triggering operation and is
// retried in the background instead.
type AuditService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewAuditService creates a new audit service instance
func NewAuditService(db *gorm.DB, notifier Notifier) *AuditService {
	return &AuditService{db: db, notifier: notifier}
}

// Record validates and appends an audit entry, then broadcasts it to the
// admin channel. On a store failure the entry is handed to a background
// retry loop and the caller proceeds; a crash between the state change and
// the audit write is the one accepted failure window.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLogEntry) {
	if err := entry.Validate(); err != nil {
		slog.Error("Dropping invalid audit entry", "action", entry.Action, "error", err)
		return
	}

	if err := s.append(ctx, entry); err != nil {
		slog.Error("Failed to append audit entry, retrying in background",
			"action", entry.Action, "error", err)
		go s.retryAppend(entry)
		return
	}

	s.broadcast(entry)
}

// append durably writes one entry
func (s *AuditService) append(ctx context.Context, entry *models.AuditLogEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

// retryAppend retries a failed append with backoff, off the request path
func (s *AuditService) retryAppend(entry *models.AuditLogEntry) {
	for attempt := 1; attempt <= auditRetries; attempt++ {
		time.Sleep(auditBackoff * time.Duration(attempt))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.append(ctx, entry)
		cancel()
		if err == nil {
			s.broadcast(entry)
			return
		}
		slog.Warn("Audit append retry failed", "action", entry.Action, "attempt", attempt, "error", err)
	}
	slog.Error("Giving up on audit entry after retries", "action", entry.Action, "login_id", entry.LoginID)
}

// broadcast publishes the appended entry as an audit_log event on the admin channel
func (s *AuditService) broadcast(entry *models.AuditLogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Error("Failed to marshal audit entry for broadcast", "error", err)
		return
	}
	s.notifier.Publish(realtime.TopicAdmin, realtime.Event{
		Name:   realtime.EventAuditLog,
		Action: entry.Action,
		Data:   data,
	})
}

// List retrieves audit entries, newest first, optionally filtered by action
func (s *AuditService) List(ctx context.Context, limit int, action string) ([]models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := s.db.WithContext(ctx).Model(&models.AuditLogEntry{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var entries []models.AuditLogEntry
	if err := query.Order("timestamp DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve audit log entries: %w", err)
	}

	if entries == nil {
		entries = []models.AuditLogEntry{}
	}
	return entries, nil
}
