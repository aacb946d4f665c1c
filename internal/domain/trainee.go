// Package domain contains core domain types for the claims voice trainer.
package domain

import (
	"time"
)

// Trainee represents a claims representative practicing against the
// simulated customers.
type Trainee struct {
	TraineeID  string    `json:"trainee_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
