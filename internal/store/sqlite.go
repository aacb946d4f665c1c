package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/repcoach/repcoach/internal/domain"
	"github.com/repcoach/repcoach/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
	// progressMu serializes progress writes to prevent SQLITE_BUSY during
	// the read-modify-persist cycle of the progress tracker.
	progressMu sync.Mutex
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS trainees (
		trainee_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS progress (
		trainee_id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS preferences (
		trainee_id TEXT PRIMARY KEY,
		audio_playback_enabled INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetTrainee retrieves a trainee by ID.
func (s *SQLiteStore) GetTrainee(ctx context.Context, traineeID string) (*domain.Trainee, error) {
	query := `
		SELECT trainee_id, username, last_seen_at, created_at, updated_at
		FROM trainees WHERE trainee_id = ?`

	row := s.db.QueryRowContext(ctx, query, traineeID)

	var trainee domain.Trainee
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&trainee.TraineeID, &trainee.Username, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan trainee row: %w", err)
	}

	trainee.LastSeenAt = time.Unix(lastSeen, 0)
	trainee.CreatedAt = time.Unix(createdAt, 0)
	trainee.UpdatedAt = time.Unix(updatedAt, 0)

	return &trainee, nil
}

// UpsertTrainee creates or updates a trainee record.
func (s *SQLiteStore) UpsertTrainee(ctx context.Context, trainee *domain.Trainee) error {
	query := `
	INSERT INTO trainees (trainee_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(trainee_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		trainee.TraineeID, trainee.Username,
		trainee.LastSeenAt.Unix(), trainee.CreatedAt.Unix(), trainee.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert trainee: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a trainee.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, traineeID string, lastSeen time.Time) error {
	query := `UPDATE trainees SET last_seen_at = ?, updated_at = ? WHERE trainee_id = ?`
	if _, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), traineeID); err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

// LoadProgress returns the persisted progress blob for a trainee.
func (s *SQLiteStore) LoadProgress(ctx context.Context, traineeID string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM progress WHERE trainee_id = ?`, traineeID)

	var blob string
	err := row.Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}
	return []byte(blob), nil
}

// SaveProgress replaces the persisted progress blob for a trainee. Retries
// with exponential backoff on SQLITE_BUSY, which can occur when an NDJSON
// flush and an evaluation land in the same instant.
func (s *SQLiteStore) SaveProgress(ctx context.Context, traineeID string, blob []byte) error {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	query := `
	INSERT INTO progress (trainee_id, state_json, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(trainee_id) DO UPDATE SET
		state_json = excluded.state_json,
		updated_at = excluded.updated_at`

	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query, traineeID, string(blob), time.Now().Unix())
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || ctx.Err() != nil {
			break
		}
		time.Sleep(baseDelay * time.Duration(1<<i))
	}
	return fmt.Errorf("save progress: %w", err)
}

// GetAudioPlayback returns the persisted playback toggle, defaulting to true.
func (s *SQLiteStore) GetAudioPlayback(ctx context.Context, traineeID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT audio_playback_enabled FROM preferences WHERE trainee_id = ?`, traineeID)

	var enabled int
	err := row.Scan(&enabled)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("scan preference row: %w", err)
	}
	return enabled != 0, nil
}

// SetAudioPlayback persists the playback toggle.
func (s *SQLiteStore) SetAudioPlayback(ctx context.Context, traineeID string, enabled bool) error {
	query := `
	INSERT INTO preferences (trainee_id, audio_playback_enabled, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(trainee_id) DO UPDATE SET
		audio_playback_enabled = excluded.audio_playback_enabled,
		updated_at = excluded.updated_at`

	value := 0
	if enabled {
		value = 1
	}
	if _, err := s.db.ExecContext(ctx, query, traineeID, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("set audio playback: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
