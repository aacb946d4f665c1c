package domain

// AgentProgress tracks a trainee's history against one persona.
//
// Passed and BestScore are monotonic: once a persona is passed it stays
// passed, and BestScore never decreases.
type AgentProgress struct {
	Passed          bool   `json:"passed"`
	BestScore       int    `json:"bestScore"`
	Attempts        int    `json:"attempts"`
	LastAttemptDate string `json:"lastAttemptDate"`
}

// ProgressState is the full per-persona progress map persisted across
// sessions, keyed by persona ID.
type ProgressState map[string]AgentProgress
