// Package progress maintains per-persona attempt history for each trainee,
// persisted across sessions.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/repcoach/repcoach/internal/domain"
	"github.com/repcoach/repcoach/internal/store"
)

// Tracker records evaluation outcomes. Passed and best-score are monotonic:
// a later, worse attempt never erases an earlier pass.
type Tracker struct {
	repo store.Repository
	// personaIDs are the known personas; loaded state is merged over a
	// zeroed map of these so personas added after a trainee's first run
	// still show up with fresh progress.
	personaIDs []string

	// mu makes each read-modify-persist cycle atomic. The evaluation
	// completion path is the only writer, but nothing here depends on that.
	mu sync.Mutex

	now func() time.Time
}

// NewTracker creates a progress tracker over the given repository.
func NewTracker(repo store.Repository, personaIDs []string) *Tracker {
	ids := make([]string, len(personaIDs))
	copy(ids, personaIDs)
	return &Tracker{
		repo:       repo,
		personaIDs: ids,
		now:        time.Now,
	}
}

// initialState returns zeroed progress for every known persona.
func (t *Tracker) initialState() domain.ProgressState {
	state := make(domain.ProgressState, len(t.personaIDs))
	for _, id := range t.personaIDs {
		state[id] = domain.AgentProgress{}
	}
	return state
}

// load reads and decodes the persisted state, falling back to the initial
// state on a missing or corrupt blob. Load never fails the caller over bad
// stored data; only repository errors propagate.
func (t *Tracker) load(ctx context.Context, traineeID string) (domain.ProgressState, error) {
	state := t.initialState()

	blob, err := t.repo.LoadProgress(ctx, traineeID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if blob == nil {
		return state, nil
	}

	var stored domain.ProgressState
	if err := json.Unmarshal(blob, &stored); err != nil {
		slog.Warn("discarding corrupt progress blob", "trainee_id", traineeID, "error", err)
		return state, nil
	}

	// Merge stored entries over the defaults so new personas stay present.
	for id, p := range stored {
		state[id] = p
	}
	return state, nil
}

func (t *Tracker) save(ctx context.Context, traineeID string, state domain.ProgressState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := t.repo.SaveProgress(ctx, traineeID, blob); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	return nil
}

// Record applies one completed evaluation and persists the full map.
func (t *Tracker) Record(ctx context.Context, traineeID, personaID string, score int) (domain.AgentProgress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx, traineeID)
	if err != nil {
		return domain.AgentProgress{}, err
	}

	current := state[personaID]
	updated := domain.AgentProgress{
		Passed:          score >= domain.PassThreshold || current.Passed,
		BestScore:       maxScore(current.BestScore, score),
		Attempts:        current.Attempts + 1,
		LastAttemptDate: t.now().UTC().Format(time.RFC3339),
	}
	state[personaID] = updated

	if err := t.save(ctx, traineeID, state); err != nil {
		return domain.AgentProgress{}, err
	}

	slog.Info("progress recorded",
		"trainee_id", traineeID,
		"persona_id", personaID,
		"score", score,
		"best_score", updated.BestScore,
		"passed", updated.Passed,
		"attempts", updated.Attempts,
	)
	return updated, nil
}

// Reset restores every persona to zeroed progress and persists it.
func (t *Tracker) Reset(ctx context.Context, traineeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.save(ctx, traineeID, t.initialState())
}

// Snapshot returns the current progress map for a trainee.
func (t *Tracker) Snapshot(ctx context.Context, traineeID string) (domain.ProgressState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx, traineeID)
}

// AllPassed reports whether every known persona has been passed.
func (t *Tracker) AllPassed(ctx context.Context, traineeID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx, traineeID)
	if err != nil {
		return false, err
	}
	for _, id := range t.personaIDs {
		if !state[id].Passed {
			return false, nil
		}
	}
	return true, nil
}

func maxScore(a, b int) int {
	if a > b {
		return a
	}
	return b
}
