package domain

// SessionStatus is the connection state of a training session.
type SessionStatus string

const (
	StatusDisconnected SessionStatus = "DISCONNECTED"
	StatusConnecting   SessionStatus = "CONNECTING"
	StatusConnected    SessionStatus = "CONNECTED"
)

// SessionState is the full observable state of one trainee's session.
// Orchestrator operations take and return snapshots of this struct so that
// every transition is explicit.
type SessionState struct {
	Status    SessionStatus `json:"status"`
	PersonaID string        `json:"persona_id"`
	// HandoffTriggered marks whether the most recent persona change came
	// from a runtime-initiated handoff rather than trainee selection.
	HandoffTriggered bool `json:"handoff_triggered"`
	// AudioPlaybackEnabled mirrors the persisted playback toggle; the
	// transport mute flag is kept in sync with its inverse.
	AudioPlaybackEnabled bool `json:"audio_playback_enabled"`
	// Generation counts connect attempts. Results of a superseded attempt
	// are discarded when their generation no longer matches.
	Generation uint64 `json:"-"`
}
