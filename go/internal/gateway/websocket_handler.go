package gateway

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for game sessions.
type WebSocketHandler struct {
	service *Service
}

func NewWebSocketHandler(service *Service) *WebSocketHandler {
	return &WebSocketHandler{service: service}
}

// HandleSessionConnection attaches a player to a session's socket. Identity
// comes from query parameters; in production this would come from the
// authenticated session.
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	sessionID, err := requiredUUID(r, "session_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := requiredUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Connect(w, r, userID, sessionID); err != nil {
		log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Str("user_id", userID.String()).
			Msg("failed to attach session connection")
		http.Error(w, "failed to attach connection", http.StatusInternalServerError)
	}
}

// HandleConnectionStats reports active connection counts.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, sessions := h.service.ConnectionManager().ConnectionStats()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"total_connections":%d,"active_sessions":%d}`, total, sessions)
}

// RegisterRoutes registers the WebSocket routes on the mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSessionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

func requiredUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format", name)
	}
	return id, nil
}
