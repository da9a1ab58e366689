package handlers

import (
	"net/http"

	"github.com/vote-portal/login-approval-service/middleware"
	"github.com/vote-portal/login-approval-service/utils"
)

// Router handles all API route registration
type Router struct {
	loginHandler  *LoginHandler
	auditHandler  *AuditHandler
	eventsHandler *EventsHandler
	healthHandler *HealthHandler
	adminAuth     func(http.Handler) http.Handler
	cors          func(http.Handler) http.Handler
}

// NewRouter creates a new router with all dependencies
func NewRouter(loginHandler *LoginHandler, auditHandler *AuditHandler, eventsHandler *EventsHandler, healthHandler *HealthHandler, adminKey string) *Router {
	return &Router{
		loginHandler:  loginHandler,
		auditHandler:  auditHandler,
		eventsHandler: eventsHandler,
		healthHandler: healthHandler,
		adminAuth:     middleware.AdminKeyMiddleware(adminKey),
		cors:          middleware.CORSMiddleware(),
	}
}

// RegisterRoutes registers all API routes to the provided mux
func (r *Router) RegisterRoutes(mux *http.ServeMux) {
	r.registerPublicRoutes(mux)
	r.registerAdminRoutes(mux)
}

// registerPublicRoutes registers the visitor-facing routes (no authentication)
func (r *Router) registerPublicRoutes(mux *http.ServeMux) {
	mux.Handle("/api/social-login",
		utils.PanicRecoveryMiddleware(http.HandlerFunc(r.loginHandler.Submit)))
	mux.Handle("/api/social-login/status",
		utils.PanicRecoveryMiddleware(http.HandlerFunc(r.loginHandler.Status)))

	// SSE: the admin topic is gated inside the handler, per-login topics are public
	mux.Handle("/api/events",
		utils.PanicRecoveryMiddleware(http.HandlerFunc(r.eventsHandler.Subscribe)))

	mux.Handle("/health",
		utils.PanicRecoveryMiddleware(http.HandlerFunc(r.healthHandler.Check)))
}

// registerAdminRoutes registers admin routes behind the admin key check
func (r *Router) registerAdminRoutes(mux *http.ServeMux) {
	mux.Handle("/api/social-login/pending",
		utils.PanicRecoveryMiddleware(r.adminAuth(http.HandlerFunc(r.loginHandler.Pending))))
	mux.Handle("/api/social-login/approve",
		utils.PanicRecoveryMiddleware(r.adminAuth(http.HandlerFunc(r.loginHandler.Approve))))
	mux.Handle("/api/social-login/reject",
		utils.PanicRecoveryMiddleware(r.adminAuth(http.HandlerFunc(r.loginHandler.Reject))))
	mux.Handle("/api/social-login/request-otp",
		utils.PanicRecoveryMiddleware(r.adminAuth(http.HandlerFunc(r.loginHandler.RequestOTP))))
	mux.Handle("/api/social-login/otp",
		utils.PanicRecoveryMiddleware(r.adminAuth(http.HandlerFunc(r.loginHandler.SupplyOTP))))
	mux.Handle("/api/admin/audit-list",
		utils.PanicRecoveryMiddleware(r.adminAuth(http.HandlerFunc(r.auditHandler.List))))
}

// ApplyCORS wraps a handler with CORS middleware
func (r *Router) ApplyCORS(handler http.Handler) http.Handler {
	return r.cors(handler)
}
