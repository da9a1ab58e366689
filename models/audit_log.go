package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions recorded by the service
const (
	ActionSubmitLogin  = "submit_login"
	ActionApproveLogin = "approve_login"
	ActionRejectLogin  = "reject_login"
	ActionRequestOTP   = "request_otp"
	ActionSupplyOTP    = "supply_otp"
	ActionExpireLogin  = "expire_login"
	ActionViewPending  = "view_pending"
	ActionViewAudit    = "view_audit"
)

// Actor types for audit entries
const (
	ActorVisitor = "visitor"
	ActorAdmin   = "admin"
	ActorSystem  = "system"
)

var validActions = map[string]struct{}{
	ActionSubmitLogin:  {},
	ActionApproveLogin: {},
	ActionRejectLogin:  {},
	ActionRequestOTP:   {},
	ActionSupplyOTP:    {},
	ActionExpireLogin:  {},
	ActionViewPending:  {},
	ActionViewAudit:    {},
}

var validActors = map[string]struct{}{
	ActorVisitor: {},
	ActorAdmin:   {},
	ActorSystem:  {},
}

// AuditLogEntry is one immutable record of an action taken against the system.
// Entries are append-only; nothing in the public contract mutates or deletes them.
type AuditLogEntry struct {
	// Primary key, timestamp-ordered reads go through the Timestamp index
	ID uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`

	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_audit_logs_timestamp" json:"timestamp"`

	// Action is the event tag, e.g. submit_login, approve_login
	Action string `gorm:"column:action;type:varchar(50);not null;index:idx_audit_logs_action" json:"action"`

	// Actor is "visitor", "admin" or "system"; ActorID is a pseudo-identity
	// for visitors and a fixed label for admins (no session identity exists).
	Actor   string `gorm:"column:actor;type:varchar(20);not null" json:"actor"`
	ActorID string `gorm:"column:actor_id;type:varchar(255)" json:"actorId,omitempty"`

	// LoginID links the entry to a login request when the action targets one
	LoginID *string `gorm:"column:login_id;type:varchar(64);index:idx_audit_logs_login_id" json:"loginId,omitempty"`

	// PayloadSummary is a redacted partial view of what happened.
	// Raw passwords must never be written here.
	PayloadSummary json.RawMessage `gorm:"column:payload_summary;type:text" json:"payloadSummary,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
}

// TableName sets the table name for the AuditLogEntry model
func (*AuditLogEntry) TableName() string {
	return "audit_logs"
}

// BeforeCreate hook to set default values
func (e *AuditLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}

// Validate performs validation checks matching the database constraints
func (e *AuditLogEntry) Validate() error {
	if _, ok := validActions[e.Action]; !ok {
		return fmt.Errorf("invalid action: %s", e.Action)
	}
	if _, ok := validActors[e.Actor]; !ok {
		return fmt.Errorf("invalid actor: %s (must be %s, %s or %s)", e.Actor, ActorVisitor, ActorAdmin, ActorSystem)
	}
	return nil
}

// SummarizeLogin builds a redacted payload summary for a login request,
// carrying the admin-supplied reason when one was given. Only non-sensitive
// fields are included.
func SummarizeLogin(lr *LoginRequest, reason string) json.RawMessage {
	summary := map[string]interface{}{
		"platform": lr.Platform,
		"account":  lr.Account,
		"status":   lr.Status,
	}
	if reason != "" {
		summary["reason"] = reason
	}
	data, err := json.Marshal(summary)
	if err != nil {
		// Marshal of plain strings cannot fail in practice
		return json.RawMessage(`{}`)
	}
	return data
}
