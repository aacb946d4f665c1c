// Package guardrail builds moderation guardrail configurations for the
// realtime runtime. The server treats guardrails as opaque: it constructs
// them and forwards them on connect, but never evaluates them locally.
package guardrail

// Guardrail is an output-moderation check applied by the runtime to persona
// speech before it reaches the trainee.
type Guardrail struct {
	Name        string   `json:"name"`
	CompanyName string   `json:"company_name"`
	Categories  []string `json:"categories"`
}

// Moderation returns the standard output guardrail parameterized by the
// represented company's name.
func Moderation(companyName string) Guardrail {
	return Guardrail{
		Name:        "moderation_guardrail",
		CompanyName: companyName,
		Categories:  []string{"OFFENSIVE", "OFF_BRAND", "VIOLENCE", "NONE"},
	}
}
