// Package utils provides common utility functions for the project
package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicRecoveryMiddleware is an HTTP middleware that recovers from panics
// It logs the error and stack trace, then returns a 500 Internal Server Error
func PanicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("handler panic recovered", "error", err, "stack", string(debug.Stack()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// HandlerFunc represents a function that returns a result, status code, and error
type HandlerFunc func() (interface{}, int, error)

// GenericHandler handles common HTTP patterns with error handling
func GenericHandler(w http.ResponseWriter, r *http.Request, handler HandlerFunc) {
	result, statusCode, err := handler()
	if err != nil {
		slog.Error("Request failed", "error", err, "path", r.URL.Path, "method", r.Method)
		RespondWithError(w, statusCode, err.Error())
		return
	}
	RespondWithJSON(w, statusCode, result)
}

// JSONHandler handles requests requiring JSON body parsing
func JSONHandler(w http.ResponseWriter, r *http.Request, target interface{}, handler HandlerFunc) {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		slog.Warn("Invalid JSON body", "error", err, "path", r.URL.Path)
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	GenericHandler(w, r, handler)
}
