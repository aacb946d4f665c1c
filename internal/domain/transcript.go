package domain

import (
	"time"
)

// TranscriptItemType distinguishes spoken messages from debug breadcrumbs.
type TranscriptItemType string

const (
	// ItemTypeMessage is a spoken or typed conversation turn.
	ItemTypeMessage TranscriptItemType = "MESSAGE"
	// ItemTypeBreadcrumb is a structured system/debug event.
	ItemTypeBreadcrumb TranscriptItemType = "BREADCRUMB"
)

// Speaker roles. The trainee is "user"; the simulated customer is "assistant".
const (
	RoleTrainee = "user"
	RolePersona = "assistant"
)

// GuardrailStatus is the moderation verdict attached to a persona message.
type GuardrailStatus string

const (
	GuardrailPending GuardrailStatus = "PENDING"
	GuardrailPassed  GuardrailStatus = "PASS"
	GuardrailFailed  GuardrailStatus = "FAIL"
)

// TranscriptItem is one entry in a conversation history. Items are
// append-only: storage order is insertion order, display sorts by timestamp.
type TranscriptItem struct {
	ItemID    string             `json:"item_id"`
	Type      TranscriptItemType `json:"type"`
	Role      string             `json:"role,omitempty"`
	Title     string             `json:"title"`
	Data      map[string]any     `json:"data,omitempty"`
	Hidden    bool               `json:"hidden"`
	Guardrail GuardrailStatus    `json:"guardrail,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}
