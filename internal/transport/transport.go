// Package transport connects a training session to the external realtime
// agent runtime: the service that runs the persona scripts and the
// speech-to-text/text-to-speech pipeline.
package transport

import (
	"context"

	"github.com/repcoach/repcoach/internal/domain"
	"github.com/repcoach/repcoach/internal/guardrail"
)

// ConnectOptions carries everything the runtime needs to open a session.
type ConnectOptions struct {
	// Credential is the short-lived client secret minted for this session.
	Credential string
	// Personas is the ordered persona list; the first entry is the
	// conversation root.
	Personas []domain.Persona
	// OutputGuardrails are forwarded opaquely to the runtime.
	OutputGuardrails []guardrail.Guardrail
	// ExtraContext is arbitrary session context for the runtime.
	ExtraContext map[string]any
}

// TranscriptEvent is a transcript append or update emitted by the runtime.
type TranscriptEvent struct {
	ItemID string
	Role   string
	Text   string
	// Final marks a completed transcription; non-final events update a
	// previously appended item in place.
	Final bool
}

// Handler receives runtime notifications. Callbacks are invoked serially
// from the transport's read loop.
type Handler struct {
	// OnStatus is called on connection-state changes.
	OnStatus func(status domain.SessionStatus)
	// OnHandoff is called when the runtime transfers control to another
	// persona mid-session.
	OnHandoff func(personaID string)
	// OnTranscript is called for transcript appends and updates.
	OnTranscript func(event TranscriptEvent)
	// OnGuardrail is called when an output guardrail trips on an item.
	OnGuardrail func(itemID string)
}

// Transport is the client side of the realtime runtime boundary.
type Transport interface {
	// Connect opens a session. It returns once the runtime confirms, or
	// with an error that leaves the transport disconnected.
	Connect(ctx context.Context, opts ConnectOptions) error

	// Disconnect tears the session down. Safe to call in any state.
	Disconnect()

	// SendEvent forwards a structured client event to the runtime.
	SendEvent(ctx context.Context, event any) error

	// SendUserText injects a text utterance attributed to the trainee.
	SendUserText(ctx context.Context, text string) error

	// Interrupt cancels the persona's in-flight response.
	Interrupt(ctx context.Context) error

	// Mute toggles persona audio synthesis output.
	Mute(muted bool) error
}
