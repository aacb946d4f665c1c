// Package session orchestrates one trainee's live training session: the
// connection state machine against the realtime runtime, persona selection
// and handoffs, transcript accumulation, and evaluation completion.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/repcoach/repcoach/internal/domain"
	"github.com/repcoach/repcoach/internal/guardrail"
	"github.com/repcoach/repcoach/internal/persona"
	"github.com/repcoach/repcoach/internal/progress"
	"github.com/repcoach/repcoach/internal/scoring"
	"github.com/repcoach/repcoach/internal/store"
	"github.com/repcoach/repcoach/internal/transcript"
	"github.com/repcoach/repcoach/internal/transport"
)

// simulatedGreeting is sent as a hidden trainee message right after connect
// so the persona opens the call with its scripted complaint.
const simulatedGreeting = "hi"

// Event types forwarded to UI subscribers.
const (
	EventStatus     = "status"
	EventTranscript = "transcript"
	EventHandoff    = "handoff"
)

// Event is a UI-facing notification emitted by the orchestrator.
type Event struct {
	Type      string                 `json:"type"`
	Status    domain.SessionStatus   `json:"status,omitempty"`
	PersonaID string                 `json:"persona_id,omitempty"`
	Item      *domain.TranscriptItem `json:"item,omitempty"`
}

// Options configures a new Orchestrator. TraineeID, Registry, Credentials,
// NewTransport, Tracker, and Repo are required.
type Options struct {
	TraineeID   string
	CompanyName string
	Registry    *persona.Registry
	Credentials transport.CredentialProvider
	// NewTransport builds the runtime transport around the orchestrator's
	// callback handler. One transport per orchestrator.
	NewTransport func(transport.Handler) transport.Transport
	Tracker      *progress.Tracker
	Repo         store.Repository
	// Notify receives UI events. Optional; called outside internal locks.
	Notify func(Event)
	Logger *slog.Logger
}

// Orchestrator drives the session state machine for one trainee. All state
// transitions happen under mu; slow work (credential fetch, dialing) runs
// unlocked and is fenced by the generation counter so a superseded attempt
// cannot clobber newer state.
type Orchestrator struct {
	traineeID   string
	companyName string
	registry    *persona.Registry
	creds       transport.CredentialProvider
	transport   transport.Transport
	tracker     *progress.Tracker
	repo        store.Repository
	log         *transcript.Log
	notify      func(Event)
	logger      *slog.Logger

	mu    sync.Mutex
	state domain.SessionState
}

// New creates a disconnected orchestrator rooted at the default persona,
// with the trainee's persisted playback preference loaded.
func New(ctx context.Context, opts Options) (*Orchestrator, error) {
	switch {
	case opts.TraineeID == "":
		return nil, errors.New("session: trainee ID is required")
	case opts.Registry == nil:
		return nil, errors.New("session: persona registry is required")
	case opts.Credentials == nil:
		return nil, errors.New("session: credential provider is required")
	case opts.NewTransport == nil:
		return nil, errors.New("session: transport factory is required")
	case opts.Tracker == nil:
		return nil, errors.New("session: progress tracker is required")
	case opts.Repo == nil:
		return nil, errors.New("session: repository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	audioEnabled, err := opts.Repo.GetAudioPlayback(ctx, opts.TraineeID)
	if err != nil {
		logger.Warn("failed to load playback preference, defaulting to enabled",
			"trainee_id", opts.TraineeID, "error", err)
		audioEnabled = true
	}

	o := &Orchestrator{
		traineeID:   opts.TraineeID,
		companyName: opts.CompanyName,
		registry:    opts.Registry,
		creds:       opts.Credentials,
		tracker:     opts.Tracker,
		repo:        opts.Repo,
		log:         transcript.NewLog(),
		notify:      opts.Notify,
		logger:      logger.With("trainee_id", opts.TraineeID),
		state: domain.SessionState{
			Status:               domain.StatusDisconnected,
			PersonaID:            opts.Registry.Default().ID,
			AudioPlaybackEnabled: audioEnabled,
		},
	}
	o.transport = opts.NewTransport(transport.Handler{
		OnStatus:     o.onTransportStatus,
		OnHandoff:    o.HandleHandoff,
		OnTranscript: o.onTranscript,
		OnGuardrail:  o.onGuardrail,
	})
	return o, nil
}

// State returns a snapshot of the session state.
func (o *Orchestrator) State() domain.SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Transcript returns the session's transcript log.
func (o *Orchestrator) Transcript() *transcript.Log {
	return o.log
}

// Connect moves DISCONNECTED -> CONNECTING -> CONNECTED: mint a credential,
// reorder the catalog so the active persona leads, attach the moderation
// guardrail, dial the runtime, then push the turn-detection config and the
// simulated greeting. Any failure lands back in DISCONNECTED. A no-op when
// already connecting or connected.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	if o.state.Status != domain.StatusDisconnected {
		status := o.state.Status
		o.mu.Unlock()
		o.logger.Debug("connect ignored", "status", status)
		return nil
	}
	o.state.Generation++
	gen := o.state.Generation
	o.state.Status = domain.StatusConnecting
	personaID := o.state.PersonaID
	audioEnabled := o.state.AudioPlaybackEnabled
	o.mu.Unlock()
	o.emitStatus(domain.StatusConnecting)

	credential, err := o.creds.EphemeralKey(ctx)
	if err != nil {
		o.abortConnect(gen)
		return fmt.Errorf("mint session credential: %w", err)
	}

	ordered, err := o.registry.Reorder(personaID)
	if err != nil {
		o.abortConnect(gen)
		return fmt.Errorf("order personas: %w", err)
	}

	err = o.transport.Connect(ctx, transport.ConnectOptions{
		Credential:       credential,
		Personas:         ordered,
		OutputGuardrails: []guardrail.Guardrail{guardrail.Moderation(o.companyName)},
		ExtraContext:     map[string]any{"company_name": o.companyName},
	})
	if err != nil {
		o.abortConnect(gen)
		return fmt.Errorf("connect runtime: %w", err)
	}

	o.mu.Lock()
	if o.state.Generation != gen {
		// A disconnect or reconnect superseded this attempt while we were
		// dialing. Drop the connection we just opened.
		o.mu.Unlock()
		o.transport.Disconnect()
		o.logger.Debug("discarding superseded connect result", "generation", gen)
		return nil
	}
	o.state.Status = domain.StatusConnected
	o.mu.Unlock()
	o.emitStatus(domain.StatusConnected)
	o.logger.Info("session connected", "persona_id", personaID)

	o.configureTurnDetection(ctx)
	o.sendSimulatedGreeting(ctx)
	o.syncMute(audioEnabled)
	return nil
}

// abortConnect rolls a failed attempt back to DISCONNECTED unless a newer
// attempt already took over.
func (o *Orchestrator) abortConnect(gen uint64) {
	o.mu.Lock()
	superseded := o.state.Generation != gen
	if !superseded {
		o.state.Status = domain.StatusDisconnected
	}
	o.mu.Unlock()
	if !superseded {
		o.emitStatus(domain.StatusDisconnected)
	}
}

// configureTurnDetection pushes the server-side voice activity detection
// settings. Threshold and padding values follow the persona scripts' pacing.
func (o *Orchestrator) configureTurnDetection(ctx context.Context) {
	event := map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"turn_detection": map[string]any{
				"type":                "server_vad",
				"threshold":           0.9,
				"prefix_padding_ms":   300,
				"silence_duration_ms": 500,
				"create_response":     true,
			},
		},
	}
	if err := o.transport.SendEvent(ctx, event); err != nil {
		o.logger.Warn("failed to configure turn detection", "error", err)
	}
}

// sendSimulatedGreeting records a hidden trainee "hi" and sends it so the
// persona speaks first.
func (o *Orchestrator) sendSimulatedGreeting(ctx context.Context) {
	o.log.AddMessage(domain.RoleTrainee, simulatedGreeting, true)
	if err := o.transport.SendUserText(ctx, simulatedGreeting); err != nil {
		o.logger.Warn("failed to send simulated greeting", "error", err)
	}
}

// Disconnect tears the session down. It always lands in DISCONNECTED and
// never fails; the transcript is kept for evaluation and export.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	o.state.Generation++
	wasDisconnected := o.state.Status == domain.StatusDisconnected
	o.state.Status = domain.StatusDisconnected
	o.mu.Unlock()

	o.transport.Disconnect()
	if !wasDisconnected {
		o.emitStatus(domain.StatusDisconnected)
		o.logger.Info("session disconnected")
	}
}

// SwitchPersona selects a new active persona. The current session, if any,
// is torn down and the transcript cleared; the handoff flag resets because
// this change came from the trainee.
func (o *Orchestrator) SwitchPersona(id string) error {
	p, err := o.registry.Get(id)
	if err != nil {
		return err
	}

	o.Disconnect()

	o.mu.Lock()
	o.state.PersonaID = p.ID
	o.state.HandoffTriggered = false
	o.mu.Unlock()

	o.log.Clear()
	o.logger.Info("persona switched", "persona_id", p.ID)
	return nil
}

// HandleHandoff is the transport callback for a runtime-initiated transfer.
// The connection stays up and the transcript continues; only the active
// persona and the handoff flag change.
func (o *Orchestrator) HandleHandoff(personaID string) {
	if _, err := o.registry.Get(personaID); err != nil {
		o.logger.Warn("ignoring handoff to unknown persona", "persona_id", personaID)
		return
	}

	o.mu.Lock()
	from := o.state.PersonaID
	o.state.PersonaID = personaID
	o.state.HandoffTriggered = true
	o.mu.Unlock()

	o.log.AddBreadcrumb("handoff", map[string]any{"from": from, "to": personaID})
	o.emit(Event{Type: EventHandoff, PersonaID: personaID})
	o.logger.Info("persona handoff", "from", from, "to", personaID)
}

// SetAudioPlayback persists the playback toggle and resyncs the transport
// mute flag. The preference always sticks; a mute failure is logged only.
func (o *Orchestrator) SetAudioPlayback(ctx context.Context, enabled bool) error {
	if err := o.repo.SetAudioPlayback(ctx, o.traineeID, enabled); err != nil {
		return fmt.Errorf("persist playback preference: %w", err)
	}

	o.mu.Lock()
	o.state.AudioPlaybackEnabled = enabled
	o.mu.Unlock()

	o.syncMute(enabled)
	return nil
}

// syncMute pushes the inverse of the playback toggle as the transport mute
// flag. Best effort; a disconnected transport is not an error.
func (o *Orchestrator) syncMute(audioEnabled bool) {
	if err := o.transport.Mute(!audioEnabled); err != nil && !errors.Is(err, transport.ErrNotConnected) {
		o.logger.Warn("failed to sync mute flag", "error", err)
	}
}

// Interrupt cancels the persona's in-flight speech, used when the trainee
// starts talking over it. A no-op while disconnected.
func (o *Orchestrator) Interrupt(ctx context.Context) error {
	if err := o.transport.Interrupt(ctx); err != nil && !errors.Is(err, transport.ErrNotConnected) {
		return fmt.Errorf("interrupt response: %w", err)
	}
	return nil
}

// NextPersona returns the catalog-cyclic successor of the active persona.
func (o *Orchestrator) NextPersona() (domain.Persona, error) {
	o.mu.Lock()
	id := o.state.PersonaID
	o.mu.Unlock()
	return o.registry.Next(id)
}

// CompleteEvaluation scores the current transcript against the active
// persona and records the outcome in the trainee's progress.
func (o *Orchestrator) CompleteEvaluation(ctx context.Context) (domain.EvaluationResult, domain.AgentProgress, error) {
	o.mu.Lock()
	personaID := o.state.PersonaID
	o.mu.Unlock()

	result := scoring.Evaluate(o.log.Items(), persona.DisplayName(o.registry, personaID))

	updated, err := o.tracker.Record(ctx, o.traineeID, personaID, result.OverallScore)
	if err != nil {
		return domain.EvaluationResult{}, domain.AgentProgress{}, fmt.Errorf("record evaluation: %w", err)
	}
	return result, updated, nil
}

// onTransportStatus reacts to connection-state changes reported by the
// transport's read loop. Only the drop matters here; the connected state is
// set by Connect once the runtime confirms.
func (o *Orchestrator) onTransportStatus(status domain.SessionStatus) {
	if status != domain.StatusDisconnected {
		return
	}

	o.mu.Lock()
	changed := o.state.Status != domain.StatusDisconnected
	o.state.Status = domain.StatusDisconnected
	o.mu.Unlock()

	if changed {
		o.emitStatus(domain.StatusDisconnected)
		o.logger.Info("runtime connection dropped")
	}
}

// onTranscript lands runtime transcript events in the log under the
// runtime's item IDs, so streamed updates replace their earlier partials.
func (o *Orchestrator) onTranscript(event transport.TranscriptEvent) {
	o.log.UpsertMessage(event.ItemID, event.Role, event.Text)
	item := domain.TranscriptItem{
		ItemID: event.ItemID,
		Type:   domain.ItemTypeMessage,
		Role:   event.Role,
		Title:  event.Text,
	}
	o.emit(Event{Type: EventTranscript, Item: &item})
}

// onGuardrail marks an item whose output guardrail tripped. The runtime
// replaces the spoken content itself; we only record the verdict.
func (o *Orchestrator) onGuardrail(itemID string) {
	if !o.log.SetGuardrail(itemID, domain.GuardrailFailed) {
		o.logger.Debug("guardrail verdict for unknown item", "item_id", itemID)
	}
}

func (o *Orchestrator) emitStatus(status domain.SessionStatus) {
	o.emit(Event{Type: EventStatus, Status: status})
}

func (o *Orchestrator) emit(event Event) {
	if o.notify != nil {
		o.notify(event)
	}
}
