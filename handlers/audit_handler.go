package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vote-portal/login-approval-service/models"
	"github.com/vote-portal/login-approval-service/services"
	"github.com/vote-portal/login-approval-service/utils"
)

// AuditHandler serves the admin audit-trail read endpoint
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List handles GET /api/admin/audit-list?limit=&action=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	utils.GenericHandler(w, r, func() (interface{}, int, error) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				return nil, http.StatusBadRequest, services.ErrValidation
			}
			limit = parsed
		}
		action := r.URL.Query().Get("action")

		entries, err := h.audit.List(r.Context(), limit, action)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}

		summary, _ := json.Marshal(map[string]interface{}{"limit": limit, "count": len(entries)})
		h.audit.Record(r.Context(), &models.AuditLogEntry{
			Action:         models.ActionViewAudit,
			Actor:          models.ActorAdmin,
			ActorID:        adminActor,
			PayloadSummary: summary,
		})

		return utils.DataResponse{Success: true, Data: entries}, http.StatusOK, nil
	})
}
