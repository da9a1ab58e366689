package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vote-portal/login-approval-service/middleware"
	"github.com/vote-portal/login-approval-service/realtime"
	"github.com/vote-portal/login-approval-service/utils"
)

// heartbeatInterval keeps idle SSE connections alive through proxies
const heartbeatInterval = 30 * time.Second

// EventsHandler streams realtime events over Server-Sent Events.
// Visitors subscribe to their own login:<id> topic; the admin dashboard
// subscribes to the admin topic, which requires the admin key.
type EventsHandler struct {
	hub      *realtime.Hub
	adminKey string
}

// NewEventsHandler creates a new SSE events handler
func NewEventsHandler(hub *realtime.Hub, adminKey string) *EventsHandler {
	return &EventsHandler{hub: hub, adminKey: adminKey}
}

// Subscribe handles GET /api/events?topic=
func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	topic := r.URL.Query().Get("topic")
	switch {
	case topic == realtime.TopicAdmin:
		if !middleware.ValidAdminKey(r, h.adminKey) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid admin key")
			return
		}
	case strings.HasPrefix(topic, realtime.TopicLoginPrefix) && len(topic) > len(realtime.TopicLoginPrefix):
		// per-login topics are public: the id itself is the capability
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown topic")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondWithError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	events, cancel := h.hub.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Info("SSE subscriber connected", "topic", topic)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SSE subscriber disconnected", "topic", topic)
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, event.Data)
			flusher.Flush()
		}
	}
}
