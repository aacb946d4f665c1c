package domain

// Persona is a scripted simulated customer the trainee converses with.
// Personas are loaded once at startup and never mutated afterwards.
type Persona struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display_name"`
	Voice              string `json:"voice"`
	HandoffDescription string `json:"handoff_description,omitempty"`
	// Instructions is the behavioral prompt. It is opaque to the server and
	// forwarded verbatim to the realtime runtime.
	Instructions string `json:"instructions"`
	// Handoffs lists the persona IDs this persona may transfer control to.
	Handoffs []string `json:"handoffs"`
}
