package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vote-portal/login-approval-service/models"
	"github.com/vote-portal/login-approval-service/services"
	"github.com/vote-portal/login-approval-service/utils"
)

// adminActor is the audit identity for admin commands. Admin auth is a
// shared key, so there is no richer identity to record.
const adminActor = "admin"

// LoginHandler serves the social-login submission and approval endpoints
type LoginHandler struct {
	login *services.LoginService
	audit *services.AuditService
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(login *services.LoginService, audit *services.AuditService) *LoginHandler {
	return &LoginHandler{login: login, audit: audit}
}

// statusCodeFor maps domain errors to HTTP statuses
func statusCodeFor(err error) int {
	switch {
	case services.IsValidationError(err):
		return http.StatusBadRequest
	case services.IsNotFoundError(err):
		return http.StatusNotFound
	case services.IsInvalidTransitionError(err):
		return http.StatusConflict
	case services.IsUnauthorizedError(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Submit handles POST /api/social-login
func (h *LoginHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req models.SubmitLoginRequest
	utils.JSONHandler(w, r, &req, func() (interface{}, int, error) {
		record, err := h.login.Submit(r.Context(), &req)
		if err != nil {
			return nil, statusCodeFor(err), err
		}
		return models.SubmitLoginResponse{
			Success:          true,
			RequiresApproval: true,
			LoginID:          record.ID,
		}, http.StatusCreated, nil
	})
}

// Status handles GET /api/social-login/status?id=
// The response is the redacted visitor view; passwords never leave this path.
func (h *LoginHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	utils.GenericHandler(w, r, func() (interface{}, int, error) {
		id := r.URL.Query().Get("id")
		if id == "" {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: id is required", services.ErrValidation)
		}
		record, err := h.login.Get(r.Context(), id)
		if err != nil {
			return nil, statusCodeFor(err), err
		}
		return utils.DataResponse{Success: true, Data: record.ToView()}, http.StatusOK, nil
	})
}

// Pending handles GET /api/social-login/pending?status=
// Admin-only (enforced by middleware); returns full records including the
// submitted password so the admin can replay the login manually.
func (h *LoginHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	utils.GenericHandler(w, r, func() (interface{}, int, error) {
		status := r.URL.Query().Get("status")
		records, err := h.login.List(r.Context(), status)
		if err != nil {
			return nil, statusCodeFor(err), err
		}

		summary, _ := json.Marshal(map[string]interface{}{"status": status, "count": len(records)})
		h.audit.Record(r.Context(), &models.AuditLogEntry{
			Action:         models.ActionViewPending,
			Actor:          models.ActorAdmin,
			ActorID:        adminActor,
			PayloadSummary: summary,
		})

		return utils.DataResponse{Success: true, Data: records}, http.StatusOK, nil
	})
}

// Approve handles POST /api/social-login/approve
func (h *LoginHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req models.AdminActionRequest
	utils.JSONHandler(w, r, &req, func() (interface{}, int, error) {
		if req.ID == "" {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: id is required", services.ErrValidation)
		}
		record, err := h.login.Approve(r.Context(), req.ID, adminActor)
		if err != nil {
			return nil, statusCodeFor(err), err
		}
		return models.ActionResponse{Success: true, Status: record.Status}, http.StatusOK, nil
	})
}

// Reject handles POST /api/social-login/reject
func (h *LoginHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req models.AdminActionRequest
	utils.JSONHandler(w, r, &req, func() (interface{}, int, error) {
		if req.ID == "" {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: id is required", services.ErrValidation)
		}
		record, err := h.login.Reject(r.Context(), req.ID, adminActor, req.Reason)
		if err != nil {
			return nil, statusCodeFor(err), err
		}
		return models.ActionResponse{Success: true, Status: record.Status}, http.StatusOK, nil
	})
}

// RequestOTP handles POST /api/social-login/request-otp
func (h *LoginHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req models.AdminActionRequest
	utils.JSONHandler(w, r, &req, func() (interface{}, int, error) {
		if req.ID == "" {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: id is required", services.ErrValidation)
		}
		record, err := h.login.RequestOTP(r.Context(), req.ID, adminActor)
		if err != nil {
			return nil, statusCodeFor(err), err
		}
		return models.ActionResponse{Success: true, Status: record.Status}, http.StatusOK, nil
	})
}

// SupplyOTP handles POST /api/social-login/otp
func (h *LoginHandler) SupplyOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req models.SupplyOTPRequest
	utils.JSONHandler(w, r, &req, func() (interface{}, int, error) {
		if req.ID == "" {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: id is required", services.ErrValidation)
		}
		record, err := h.login.SupplyOTP(r.Context(), req.ID, req.OTPCode, adminActor)
		if err != nil {
			return nil, statusCodeFor(err), err
		}
		return models.ActionResponse{Success: true, Status: record.Status}, http.StatusOK, nil
	})
}
