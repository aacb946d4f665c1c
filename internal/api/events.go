package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/repcoach/repcoach/internal/domain"
	"github.com/repcoach/repcoach/internal/identity"
	"github.com/repcoach/repcoach/internal/session"
)

const eventWriteTimeout = 10 * time.Second

// EventsHandler streams session events to the browser over a websocket.
type EventsHandler struct {
	sessions *SessionManager
	isDev    bool
}

// NewEventsHandler creates the UI event feed handler.
func NewEventsHandler(sessions *SessionManager, isDev bool) *EventsHandler {
	return &EventsHandler{sessions: sessions, isDev: isDev}
}

// ServeHTTP upgrades to a websocket and streams the trainee's session
// events: a state snapshot plus the existing transcript first, then live
// status, transcript, and handoff events until the client goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())
	if traineeID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orch, events, cancel, err := h.sessions.Subscribe(r.Context(), traineeID)
	if err != nil {
		slog.Error("Failed to subscribe to session events", "error", err, "trainee_id", traineeID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	defer cancel()

	acceptOpts := &websocket.AcceptOptions{}
	if h.isDev {
		acceptOpts.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(w, r, acceptOpts)
	if err != nil {
		slog.Warn("Event feed upgrade failed", "error", err, "trainee_id", traineeID)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "feed closed")
	}()

	ctx := r.Context()

	// Replay current state so a reconnecting tab catches up.
	state := orch.State()
	if err := h.write(ctx, conn, session.Event{Type: session.EventStatus, Status: state.Status, PersonaID: state.PersonaID}); err != nil {
		return
	}
	for _, item := range orch.Transcript().Sorted() {
		if item.Hidden || item.Type != domain.ItemTypeMessage {
			continue
		}
		replay := item
		if err := h.write(ctx, conn, session.Event{Type: session.EventTranscript, Item: &replay}); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			if err := h.write(ctx, conn, event); err != nil {
				slog.Debug("Event feed write failed", "error", err, "trainee_id", traineeID)
				return
			}
		}
	}
}

func (h *EventsHandler) write(ctx context.Context, conn *websocket.Conn, event session.Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, event)
}
