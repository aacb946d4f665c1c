package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/repcoach/repcoach/internal/identity"
	"github.com/repcoach/repcoach/internal/transcript"
	"github.com/repcoach/repcoach/internal/transport"
)

// SessionHandler handles session, persona, progress, and evaluation
// endpoints.
type SessionHandler struct {
	*Handler
	connectTimeout time.Duration
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(base *Handler, connectTimeout time.Duration) *SessionHandler {
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	return &SessionHandler{Handler: base, connectTimeout: connectTimeout}
}

// RegisterRoutes registers all session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/personas", h.GetPersonas)
		r.Post("/session/persona", h.SwitchPersona)
		r.Post("/session/connect", h.Connect)
		r.Post("/session/disconnect", h.Disconnect)
		r.Post("/session/interrupt", h.Interrupt)
		r.Post("/session/audio", h.SetAudio)
		r.Get("/progress", h.GetProgress)
		r.Post("/progress/reset", h.ResetProgress)
		r.Post("/evaluation", h.Evaluate)
		r.Get("/transcript/export", h.ExportTranscript)
	})
}

type personaView struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Voice       string   `json:"voice"`
	Handoffs    []string `json:"handoffs"`
}

// GetPersonas returns the catalog with handoff targets.
func (h *SessionHandler) GetPersonas(w http.ResponseWriter, r *http.Request) {
	personas := h.registry.List()
	out := make([]personaView, 0, len(personas))
	for _, p := range personas {
		out = append(out, personaView{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Voice:       p.Voice,
			Handoffs:    p.Handoffs,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"personas": out})
}

// GetMe returns the trainee's identity and current session state.
func (h *SessionHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())
	if traineeID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orch, err := h.sessions.Get(r.Context(), traineeID)
	if err != nil {
		slog.Error("Failed to get session", "error", err, "trainee_id", traineeID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	state := orch.State()
	JSON(w, http.StatusOK, map[string]interface{}{
		"trainee_id": traineeID,
		"username":   identity.UsernameFromContext(r.Context()),
		"session":    state,
	})
}

// SwitchPersona selects a new customer type. An unknown persona key falls
// back to the default persona instead of failing, so a stale frontend
// build never strands the trainee.
func (h *SessionHandler) SwitchPersona(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	var req struct {
		PersonaID string `json:"persona_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	personaID := req.PersonaID
	if _, err := h.registry.Get(personaID); err != nil {
		slog.Warn("Unknown persona requested, falling back to default",
			"persona_id", personaID, "trainee_id", traineeID)
		personaID = h.registry.Default().ID
	}

	orch, err := h.sessions.Get(r.Context(), traineeID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if err := orch.SwitchPersona(personaID); err != nil {
		Error(w, http.StatusInternalServerError, "failed to switch persona")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"session": orch.State()})
}

// Connect establishes the realtime session for the active persona.
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	orch, err := h.sessions.Get(r.Context(), traineeID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	ctx, cancel := contextWithTimeout(r, h.connectTimeout)
	defer cancel()

	if err := orch.Connect(ctx); err != nil {
		slog.Error("Session connect failed", "error", err, "trainee_id", traineeID)
		status := http.StatusBadGateway
		if errors.Is(err, transport.ErrNoCredential) {
			status = http.StatusServiceUnavailable
		}
		Error(w, status, "failed to connect session")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"session": orch.State()})
}

// Disconnect ends the realtime session. Always succeeds.
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	orch, err := h.sessions.Get(r.Context(), traineeID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	orch.Disconnect()
	JSON(w, http.StatusOK, map[string]interface{}{"session": orch.State()})
}

// Interrupt cancels the persona's in-flight speech.
func (h *SessionHandler) Interrupt(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	orch, err := h.sessions.Get(r.Context(), traineeID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if err := orch.Interrupt(r.Context()); err != nil {
		slog.Warn("Interrupt failed", "error", err, "trainee_id", traineeID)
		Error(w, http.StatusBadGateway, "failed to interrupt")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": "interrupted"})
}

// SetAudio toggles persona audio playback.
func (h *SessionHandler) SetAudio(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orch, err := h.sessions.Get(r.Context(), traineeID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if err := orch.SetAudioPlayback(r.Context(), req.Enabled); err != nil {
		slog.Error("Failed to set audio playback", "error", err, "trainee_id", traineeID)
		Error(w, http.StatusInternalServerError, "failed to persist preference")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"session": orch.State()})
}

// GetProgress returns per-persona progress plus the all-passed flag.
func (h *SessionHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	state, err := h.tracker.Snapshot(r.Context(), traineeID)
	if err != nil {
		slog.Error("Failed to load progress", "error", err, "trainee_id", traineeID)
		Error(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	allPassed, err := h.tracker.AllPassed(r.Context(), traineeID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"progress":   state,
		"all_passed": allPassed,
	})
}

// ResetProgress zeroes every persona's progress.
func (h *SessionHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	if err := h.tracker.Reset(r.Context(), traineeID); err != nil {
		slog.Error("Failed to reset progress", "error", err, "trainee_id", traineeID)
		Error(w, http.StatusInternalServerError, "failed to reset progress")
		return
	}

	slog.Info("Progress reset", "trainee_id", traineeID)
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Evaluate scores the current transcript and records the outcome.
func (h *SessionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	orch, err := h.sessions.Get(r.Context(), traineeID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	result, prog, err := orch.CompleteEvaluation(r.Context())
	if err != nil {
		slog.Error("Evaluation failed", "error", err, "trainee_id", traineeID)
		Error(w, http.StatusInternalServerError, "failed to complete evaluation")
		return
	}

	response := map[string]interface{}{
		"result":   result,
		"progress": prog,
	}
	if next, err := orch.NextPersona(); err == nil {
		response["next_persona_id"] = next.ID
	}
	JSON(w, http.StatusOK, response)
}

// ExportTranscript downloads the current transcript as plain text.
func (h *SessionHandler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())

	orch, err := h.sessions.Get(r.Context(), traineeID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	personaID := orch.State().PersonaID
	filename := fmt.Sprintf("transcript-%s-%s.txt", personaID, time.Now().UTC().Format("2006-01-02"))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	if _, err := w.Write([]byte(transcript.ExportText(orch.Transcript().Sorted()))); err != nil {
		slog.Debug("Failed to write transcript export", "error", err, "trainee_id", traineeID)
	}
}

// contextWithTimeout bounds a request-scoped operation without outliving
// the request itself.
func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
