package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/playroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Handler exposes the session lifecycle over HTTP. Gameplay itself runs over
// the WebSocket; this surface covers creation and reads.
type Handler struct {
	app *App
}

func NewHandler(app *App) *Handler {
	return &Handler{app: app}
}

// RegisterRoutes registers the session routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /rooms/{roomID}/sessions", h.handleCreate)
	mux.HandleFunc("GET /sessions/{id}", h.handleGet)
	mux.HandleFunc("GET /sessions/{id}/results", h.handleResults)
	mux.HandleFunc("POST /sessions/{id}/cancel", h.handleCancel)
}

type createSessionBody struct {
	GameKind models.GameKind `json:"game_kind"`
}

type cancelSessionBody struct {
	CallerID uuid.UUID `json:"caller_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("roomID"))
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	var body createSessionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.app.CreateSession(r.Context(), roomID, body.GameKind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	sess, err := h.app.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	results, err := h.app.ListResults(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	var body cancelSessionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.app.CancelSession(r.Context(), id, body.CallerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps app errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, ErrActiveSessionExists), errors.Is(err, ErrWrongStatus):
		status = http.StatusConflict
	case errors.Is(err, ErrCapacity), errors.Is(err, ErrUnknownGameKind):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
