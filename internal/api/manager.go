package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/repcoach/repcoach/internal/persona"
	"github.com/repcoach/repcoach/internal/progress"
	"github.com/repcoach/repcoach/internal/session"
	"github.com/repcoach/repcoach/internal/store"
	"github.com/repcoach/repcoach/internal/transcript"
	"github.com/repcoach/repcoach/internal/transport"
)

// SessionManagerConfig carries the dependencies shared by every
// per-trainee orchestrator.
type SessionManagerConfig struct {
	Registry     *persona.Registry
	Tracker      *progress.Tracker
	Repo         store.Repository
	Credentials  transport.CredentialProvider
	NewTransport func(transport.Handler) transport.Transport
	Transcripts  *transcript.Logger
	CompanyName  string
	Logger       *slog.Logger
}

// SessionManager keeps at most one live orchestrator per trainee. A trainee
// reconnecting from a new tab reuses the same orchestrator, so the previous
// tab's connection is superseded rather than duplicated.
type SessionManager struct {
	cfg SessionManagerConfig

	mu      sync.Mutex
	entries map[string]*managedSession
}

type managedSession struct {
	orch *session.Orchestrator
	hub  *eventHub
	// sessionID names the trainee's NDJSON transcript log file.
	sessionID string
}

// NewSessionManager creates an empty manager.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SessionManager{
		cfg:     cfg,
		entries: make(map[string]*managedSession),
	}
}

// Get returns the trainee's orchestrator, creating it on first use.
func (m *SessionManager) Get(ctx context.Context, traineeID string) (*session.Orchestrator, error) {
	entry, err := m.entry(ctx, traineeID)
	if err != nil {
		return nil, err
	}
	return entry.orch, nil
}

func (m *SessionManager) entry(ctx context.Context, traineeID string) (*managedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[traineeID]; ok {
		return entry, nil
	}

	entry := &managedSession{
		hub:       newEventHub(),
		sessionID: uuid.NewString(),
	}

	orch, err := session.New(ctx, session.Options{
		TraineeID:    traineeID,
		CompanyName:  m.cfg.CompanyName,
		Registry:     m.cfg.Registry,
		Credentials:  m.cfg.Credentials,
		NewTransport: m.cfg.NewTransport,
		Tracker:      m.cfg.Tracker,
		Repo:         m.cfg.Repo,
		Logger:       m.cfg.Logger,
		Notify: func(event session.Event) {
			entry.hub.broadcast(event)
			m.record(traineeID, entry, event)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create session for trainee: %w", err)
	}
	entry.orch = orch
	m.entries[traineeID] = entry
	return entry, nil
}

// record mirrors an orchestrator event into the NDJSON transcript log.
func (m *SessionManager) record(traineeID string, entry *managedSession, event session.Event) {
	if m.cfg.Transcripts == nil {
		return
	}
	logEvent := transcript.LogEvent{
		Timestamp: time.Now(),
		TraineeID: traineeID,
		SessionID: entry.sessionID,
		PersonaID: entry.orch.State().PersonaID,
		EventType: event.Type,
	}
	switch event.Type {
	case session.EventStatus:
		logEvent.Content = string(event.Status)
	case session.EventHandoff:
		logEvent.Content = event.PersonaID
	case session.EventTranscript:
		if event.Item != nil {
			logEvent.Role = event.Item.Role
			logEvent.Content = event.Item.Title
		}
	}
	m.cfg.Transcripts.Log(logEvent)
}

// Subscribe attaches a UI event listener for the trainee. The returned
// cancel func must be called when the listener goes away.
func (m *SessionManager) Subscribe(ctx context.Context, traineeID string) (*session.Orchestrator, <-chan session.Event, func(), error) {
	entry, err := m.entry(ctx, traineeID)
	if err != nil {
		return nil, nil, nil, err
	}
	ch, cancel := entry.hub.subscribe()
	return entry.orch, ch, cancel, nil
}

// Shutdown disconnects every live session.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	entries := make([]*managedSession, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	m.mu.Unlock()

	for _, entry := range entries {
		entry.orch.Disconnect()
	}
}

// eventHub fans orchestrator events out to websocket subscribers. Sends
// never block; a slow subscriber loses events instead of stalling the
// session's read loop.
type eventHub struct {
	mu   sync.Mutex
	subs map[chan session.Event]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan session.Event]struct{})}
}

func (h *eventHub) subscribe() (chan session.Event, func()) {
	ch := make(chan session.Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *eventHub) broadcast(event session.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
