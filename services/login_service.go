package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vote-portal/login-approval-service/config"
	"github.com/vote-portal/login-approval-service/models"
	"github.com/vote-portal/login-approval-service/realtime"

	"gorm.io/gorm"
)

// LoginService owns the login request lifecycle: submission, admin
// disposition (approve/reject/OTP branch) and expiry. The store is the
// single source of truth; audit and realtime events are side channels that
// never fail a transition.
//
// Per-id serialization happens at the store via conditional updates
// (WHERE id = ? AND status = ?), so racing admin actions resolve to exactly
// one winner without any process-wide lock. A per-id lock additionally keeps
// each commit and its side effects together, so audit entries and events for
// one id are always observed in the order the transitions were applied.
type LoginService struct {
	db            *gorm.DB
	platforms     *config.PlatformEnums
	audit         *AuditService
	notifier      Notifier
	locks         *lockRegistry
	pendingExpiry time.Duration
}

// NewLoginService creates a new login service instance
func NewLoginService(db *gorm.DB, platforms *config.PlatformEnums, audit *AuditService, notifier Notifier, pendingExpiry time.Duration) *LoginService {
	return &LoginService{
		db:            db,
		platforms:     platforms,
		audit:         audit,
		notifier:      notifier,
		locks:         newLockRegistry(),
		pendingExpiry: pendingExpiry,
	}
}

// Submit creates a new pending login request from a visitor submission
func (s *LoginService) Submit(ctx context.Context, req *models.SubmitLoginRequest) (*models.LoginRequest, error) {
	if strings.TrimSpace(req.Platform) == "" {
		return nil, fmt.Errorf("%w: platform is required", ErrValidation)
	}
	account := strings.TrimSpace(req.AccountName())
	if account == "" {
		return nil, fmt.Errorf("%w: account is required", ErrValidation)
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	now := time.Now().UTC()
	record := &models.LoginRequest{
		ID:            models.NewLoginID(),
		Platform:      s.platforms.Normalize(strings.ToLower(strings.TrimSpace(req.Platform))),
		Account:       account,
		Password:      req.Password,
		Status:        models.StatusPending,
		Note:          req.Note,
		ChromeProfile: req.ChromeProfile,
		LinkName:      req.LinkName,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.pendingExpiry),
	}

	// Hold the id lock through create + side effects so an admin acting on
	// the new record cannot publish ahead of the submission's own events.
	s.locks.lock(record.ID)
	defer s.locks.unlock(record.ID)

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}

	slog.Info("Login request submitted",
		"login_id", record.ID, "platform", record.Platform, "account", record.Account)

	s.recordAndNotify(ctx, models.ActionSubmitLogin, models.ActorVisitor, record.Account, record, "")
	return record, nil
}

// Get retrieves a login request by its id
func (s *LoginService) Get(ctx context.Context, id string) (*models.LoginRequest, error) {
	var record models.LoginRequest
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to retrieve login request: %w", err)
	}
	return &record, nil
}

// List retrieves login requests newest first, optionally filtered by status
func (s *LoginService) List(ctx context.Context, status string) ([]models.LoginRequest, error) {
	query := s.db.WithContext(ctx).Model(&models.LoginRequest{})
	if status != "" {
		if !models.IsValidStatus(models.LoginStatus(status)) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		query = query.Where("status = ?", status)
	}

	var records []models.LoginRequest
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list login requests: %w", err)
	}
	if records == nil {
		records = []models.LoginRequest{}
	}
	return records, nil
}

// Approve moves a request to approved. From pending_otp the stored OTP must
// be present (the supply-otp command sets it); from pending it approves directly.
func (s *LoginService) Approve(ctx context.Context, id, actorID string) (*models.LoginRequest, error) {
	guard := func(current *models.LoginRequest) error {
		if current.Status == models.StatusPendingOTP && (current.OTPCode == nil || *current.OTPCode == "") {
			return fmt.Errorf("%w: otpCode is required before approving a request awaiting OTP", ErrValidation)
		}
		return nil
	}
	return s.transition(ctx, id, models.StatusApproved, models.ActionApproveLogin,
		models.ActorAdmin, actorID, nil, guard, "")
}

// Reject moves a request to rejected
func (s *LoginService) Reject(ctx context.Context, id, actorID, reason string) (*models.LoginRequest, error) {
	return s.transition(ctx, id, models.StatusRejected, models.ActionRejectLogin,
		models.ActorAdmin, actorID, nil, nil, reason)
}

// RequestOTP moves a pending request to pending_otp, signalling the visitor
// UI that the platform wants a second factor.
func (s *LoginService) RequestOTP(ctx context.Context, id, actorID string) (*models.LoginRequest, error) {
	return s.transition(ctx, id, models.StatusPendingOTP, models.ActionRequestOTP,
		models.ActorAdmin, actorID, nil, nil, "")
}

// SupplyOTP stores the admin-supplied second factor and approves the request
// in the same command (the pending_otp -> approved edge).
func (s *LoginService) SupplyOTP(ctx context.Context, id, otpCode, actorID string) (*models.LoginRequest, error) {
	if strings.TrimSpace(otpCode) == "" {
		return nil, fmt.Errorf("%w: otpCode is required", ErrValidation)
	}
	patch := map[string]interface{}{"otp_code": otpCode}
	record, err := s.transition(ctx, id, models.StatusApproved, models.ActionSupplyOTP,
		models.ActorAdmin, actorID, patch, nil, "")
	if err != nil {
		return nil, err
	}
	record.OTPCode = &otpCode
	return record, nil
}

// ExpireStale transitions every pending/pending_otp request past its expiry
// window to expired. Run by the background sweeper; the conditional update
// guarantees each record is expired (and notified) exactly once even when
// several instances sweep concurrently.
func (s *LoginService) ExpireStale(ctx context.Context) ([]models.LoginRequest, error) {
	now := time.Now().UTC()

	var stale []models.LoginRequest
	err := s.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?",
			[]models.LoginStatus{models.StatusPending, models.StatusPendingOTP}, now).
		Find(&stale).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stale login requests: %w", err)
	}

	var expired []models.LoginRequest
	for i := range stale {
		record, err := s.transition(ctx, stale[i].ID, models.StatusExpired,
			models.ActionExpireLogin, models.ActorSystem, "expiry-sweep", nil, nil, "")
		if err != nil {
			// A racing admin action or another sweeper won; nothing to do.
			if IsInvalidTransitionError(err) || IsNotFoundError(err) {
				continue
			}
			slog.Error("Failed to expire login request", "login_id", stale[i].ID, "error", err)
			continue
		}
		expired = append(expired, *record)
	}

	if len(expired) > 0 {
		slog.Info("Expired stale login requests", "count", len(expired))
	}
	return expired, nil
}

// transition applies one state-machine edge with per-id atomicity.
// The conditional UPDATE keyed on the observed status is the serialization
// point: of two racing commands exactly one sees RowsAffected == 1. The id
// lock is held across the update and the side-effect emission so that audit
// entries and events always appear in transition order.
func (s *LoginService) transition(ctx context.Context, id string, to models.LoginStatus,
	action, actor, actorID string, patch map[string]interface{},
	guard func(*models.LoginRequest) error, reason string) (*models.LoginRequest, error) {

	s.locks.lock(id)
	defer s.locks.unlock(id)

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.IsValidStatusTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s cannot move from %s to %s",
			ErrInvalidTransition, id, current.Status, to)
	}
	if guard != nil {
		if err := guard(current); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	for k, v := range patch {
		updates[k] = v
	}

	res := s.db.WithContext(ctx).Model(&models.LoginRequest{}).
		Where("id = ? AND status = ?", id, current.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update login request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race: someone else transitioned the record first.
		// Re-read so the error names the status that beat us.
		latest, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s already %s", ErrInvalidTransition, id, latest.Status)
	}

	updated := *current
	updated.Status = to
	updated.UpdatedAt = now

	slog.Info("Login request transitioned",
		"login_id", id, "from", current.Status, "to", to, "action", action)

	s.recordAndNotify(ctx, action, actor, actorID, &updated, reason)
	return &updated, nil
}

// recordAndNotify appends the audit entry and publishes login_update events
// to the request's room and the admin channel. Both are side channels; errors
// there are handled downstream and never surface to the caller.
func (s *LoginService) recordAndNotify(ctx context.Context, action, actor, actorID string, record *models.LoginRequest, reason string) {
	payload := models.SummarizeLogin(record, reason)

	loginID := record.ID
	s.audit.Record(ctx, &models.AuditLogEntry{
		Action:         action,
		Actor:          actor,
		ActorID:        actorID,
		LoginID:        &loginID,
		PayloadSummary: payload,
	})

	view, err := json.Marshal(record.ToView())
	if err != nil {
		slog.Error("Failed to marshal login view for broadcast", "login_id", record.ID, "error", err)
		return
	}
	event := realtime.Event{
		Name:   realtime.EventLoginUpdate,
		Action: action,
		Data:   view,
	}
	s.notifier.Publish(realtime.LoginTopic(record.ID), event)
	s.notifier.Publish(realtime.TopicAdmin, event)
}
