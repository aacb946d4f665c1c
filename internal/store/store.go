// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/repcoach/repcoach/internal/domain"
)

// Repository defines the interface for persisting trainee data.
type Repository interface {
	// GetTrainee retrieves a trainee by ID. Returns (nil, nil) when absent.
	GetTrainee(ctx context.Context, traineeID string) (*domain.Trainee, error)

	// UpsertTrainee creates or updates a trainee record.
	UpsertTrainee(ctx context.Context, trainee *domain.Trainee) error

	// UpdateLastSeen updates the last_seen_at timestamp for a trainee.
	UpdateLastSeen(ctx context.Context, traineeID string, lastSeen time.Time) error

	// LoadProgress returns the persisted progress blob for a trainee, or
	// (nil, nil) when nothing has been stored yet. The blob is opaque JSON;
	// callers own decoding and corruption fallback.
	LoadProgress(ctx context.Context, traineeID string) ([]byte, error)

	// SaveProgress replaces the persisted progress blob for a trainee.
	SaveProgress(ctx context.Context, traineeID string, blob []byte) error

	// GetAudioPlayback returns the persisted playback toggle. Defaults to
	// true when no preference has been stored.
	GetAudioPlayback(ctx context.Context, traineeID string) (bool, error)

	// SetAudioPlayback persists the playback toggle.
	SetAudioPlayback(ctx context.Context, traineeID string, enabled bool) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
