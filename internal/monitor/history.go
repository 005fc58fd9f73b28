package monitor

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

type historyHandler struct {
	store *store.Store
}

type eventResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Old       int       `json:"old"`
	New       int       `json:"new"`
	Command   string    `json:"command"`
	Before    float64   `json:"before"`
	After     float64   `json:"after"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	ID        string     `json:"id"`
	Backend   string     `json:"backend"`
	Device    string     `json:"device"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Commands  int        `json:"commands"`
}

func toEventResponse(e *store.Event) eventResponse {
	return eventResponse{
		ID:        e.ID,
		SessionID: e.SessionID,
		Old:       e.OldCode,
		New:       e.NewCode,
		Command:   e.Command,
		Before:    e.Before,
		After:     e.After,
		Error:     e.Error,
		CreatedAt: e.CreatedAt,
	}
}

func toSessionResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Backend:   s.Backend,
		Device:    s.Device,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Commands:  s.Commands,
	}
}

// parseLimit reads ?limit=N, defaulting and capping it.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxHistoryLimit), nil
}

// listEvents handles GET /api/history?limit=N&session=ID.
func (h *historyHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.store.Events().List(store.EventFilter{
		SessionID: r.URL.Query().Get("session"),
		Limit:     limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// listSessions handles GET /api/sessions?limit=N.
func (h *historyHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getSession handles GET /api/sessions/{id}.
func (h *historyHandler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Sessions().GetByID(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}
