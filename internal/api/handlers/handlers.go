// Package handlers implements the HTTP handlers of the AI engine API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/binarjoin/agent-engine/internal/agent"
	"github.com/binarjoin/agent-engine/internal/api/middleware"
	"github.com/binarjoin/agent-engine/internal/router"
	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ProviderControl is the router surface the API exposes.
type ProviderControl interface {
	Status() []models.ProviderStatus
	Models() []models.ModelOption
	SetSelected(key string)
	Selected() string
	ResetDailyUsage()
	HasAvailable() bool
	SwitchHuggingFaceModel(key string) bool
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Engine    *agent.Engine
	Providers ProviderControl
	Store     store.Store
}

// New creates a new Handlers instance.
func New(eng *agent.Engine, providers ProviderControl, s store.Store) *Handlers {
	return &Handlers{Engine: eng, Providers: providers, Store: s}
}

// ══════════════════════════════════════════════════════════════
// ── Health ───────────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"service":      "binarjoin-ai-engine",
		"ai_available": h.Providers.HasAvailable(),
	})
}

// ══════════════════════════════════════════════════════════════
// ── Provider Handlers ────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	selected := h.Providers.Selected()
	if selected == "" {
		selected = "auto"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"available": h.Providers.HasAvailable(),
		"selected":  selected,
		"providers": h.Providers.Status(),
	})
}

func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Providers.Models())
}

type selectRequest struct {
	Model string `json:"model"`
}

func (h *Handlers) SelectModel(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.Providers.SetSelected(strings.TrimSpace(req.Model))
	selected := h.Providers.Selected()
	if selected == "" {
		selected = "auto"
	}
	log.Info().Str("selected", selected).Msg("Model selection changed")
	respondJSON(w, http.StatusOK, map[string]string{"selected": selected})
}

func (h *Handlers) ResetUsage(w http.ResponseWriter, r *http.Request) {
	h.Providers.ResetDailyUsage()
	log.Info().Msg("Daily usage reset")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reset":     true,
		"providers": h.Providers.Status(),
	})
}

func (h *Handlers) ListHuggingFaceModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, router.HuggingFaceModels())
}

func (h *Handlers) SwitchHuggingFaceModel(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.Providers.SwitchHuggingFaceModel(req.Model) {
		respondError(w, http.StatusBadRequest, "Unknown HuggingFace model or provider not configured: "+req.Model)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"model": req.Model})
}

// ══════════════════════════════════════════════════════════════
// ── Session Handlers ─────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Engine.ListSessions(r.Context(), middleware.GetOwner(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

type createSessionRequest struct {
	Title string `json:"title"`
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	id, err := h.Engine.CreateSession(r.Context(), middleware.GetOwner(r.Context()), req.Title)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *Handlers) SessionMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Engine.SessionMessages(r.Context(), chi.URLParam(r, "sessionId"), middleware.GetOwner(r.Context()))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	respondJSON(w, http.StatusOK, msgs)
}

func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteSession(r.Context(), chi.URLParam(r, "sessionId"), middleware.GetOwner(r.Context())); err != nil {
		respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════
// ── Chat & Guarded Operations ────────────────────────────────
// ══════════════════════════════════════════════════════════════

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.Engine.ProcessTurn(r.Context(), req.SessionID, req.Message, middleware.GetOwner(r.Context()))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ownedSession checks the session belongs to the caller and writes the
// error response when it does not.
func (h *Handlers) ownedSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionId")
	if _, err := h.Engine.Session(r.Context(), id, middleware.GetOwner(r.Context())); err != nil {
		respondEngineError(w, err)
		return "", false
	}
	return id, true
}

func (h *Handlers) ListPendingOperations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.Engine.ListPendingOperations(id))
}

func (h *Handlers) ConfirmOperation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	res := h.Engine.ConfirmOperation(r.Context(), chi.URLParam(r, "operationId"), id)
	status := http.StatusOK
	switch {
	case res.Action != agent.ActConfirm:
	case res.ErrorKind == models.ErrorNotFound:
		status = http.StatusNotFound
	case res.ErrorKind == models.ErrorUnauthorized:
		status = http.StatusForbidden
	}
	respondJSON(w, status, res)
}

func (h *Handlers) CancelOperation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if !h.Engine.CancelOperation(chi.URLParam(r, "operationId"), id) {
		respondError(w, http.StatusNotFound, "operation not found or not owned by this session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// ══════════════════════════════════════════════════════════════
// ── Helpers ──────────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// RequireOwner rejects requests that carry no owner id.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.GetOwner(r.Context()) == "" {
			respondError(w, http.StatusUnauthorized, "X-User-Id header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case store.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, agent.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, agent.ErrEmptyMessage), errors.Is(err, agent.ErrOwnerRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
