package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/vote-portal/login-approval-service/utils"
)

// AdminKeyHeader carries the shared admin secret.
// This is a deliberately simple capability check at the edge, not a session
// system: admin-only transitions require the key, nothing else.
const AdminKeyHeader = "x-admin-key"

// ValidAdminKey reports whether the request carries the configured admin key
func ValidAdminKey(r *http.Request, adminKey string) bool {
	supplied := r.Header.Get(AdminKeyHeader)
	if supplied == "" || adminKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(adminKey)) == 1
}

// AdminKeyMiddleware rejects requests without a valid x-admin-key header
func AdminKeyMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ValidAdminKey(r, adminKey) {
				slog.Warn("Rejected admin request with missing or invalid key",
					"path", r.URL.Path, "method", r.Method)
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
