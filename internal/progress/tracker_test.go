package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/repcoach/repcoach/internal/domain"
)

// fakeRepo is an in-memory store.Repository carrying only the progress
// surface; the trainee and preference methods are unused here.
type fakeRepo struct {
	mu    sync.Mutex
	blobs map[string][]byte
	fail  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{blobs: make(map[string][]byte)}
}

func (f *fakeRepo) LoadProgress(_ context.Context, traineeID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return f.blobs[traineeID], nil
}

func (f *fakeRepo) SaveProgress(_ context.Context, traineeID string, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.blobs[traineeID] = append([]byte(nil), blob...)
	return nil
}

func (f *fakeRepo) GetTrainee(context.Context, string) (*domain.Trainee, error) { return nil, nil }
func (f *fakeRepo) UpsertTrainee(context.Context, *domain.Trainee) error        { return nil }
func (f *fakeRepo) UpdateLastSeen(context.Context, string, time.Time) error     { return nil }
func (f *fakeRepo) GetAudioPlayback(context.Context, string) (bool, error)      { return true, nil }
func (f *fakeRepo) SetAudioPlayback(context.Context, string, bool) error        { return nil }
func (f *fakeRepo) Ping(context.Context) error                                  { return nil }
func (f *fakeRepo) Close() error                                                { return nil }

var testPersonas = []string{"customerAutoAgent", "customerHouseFireAgent"}

func newTestTracker() (*Tracker, *fakeRepo) {
	repo := newFakeRepo()
	tracker := NewTracker(repo, testPersonas)
	tracker.now = func() time.Time { return time.Unix(1750000000, 0) }
	return tracker, repo
}

func TestRecordTracksBestScoreAndAttempts(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker()
	ctx := context.Background()

	first, err := tracker.Record(ctx, "anon-1", "customerAutoAgent", 85)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !first.Passed || first.BestScore != 85 || first.Attempts != 1 {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.LastAttemptDate == "" {
		t.Error("expected last attempt date to be set")
	}

	second, err := tracker.Record(ctx, "anon-1", "customerAutoAgent", 60)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if second.BestScore != 85 {
		t.Errorf("bestScore = %d, want max(85, 60) = 85", second.BestScore)
	}
	if second.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", second.Attempts)
	}
}

func TestPassedIsMonotonic(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker()
	ctx := context.Background()

	if _, err := tracker.Record(ctx, "anon-1", "customerAutoAgent", 95); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	after, err := tracker.Record(ctx, "anon-1", "customerAutoAgent", 10)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !after.Passed {
		t.Error("passed must not revert after a lower score")
	}
}

func TestPassedOrSemantics(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker()
	ctx := context.Background()

	if _, err := tracker.Record(ctx, "anon-1", "customerAutoAgent", 40); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	after, err := tracker.Record(ctx, "anon-1", "customerAutoAgent", 80)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !after.Passed {
		t.Error("expected pass once any attempt reaches 80")
	}
	if after.BestScore != 80 || after.Attempts != 2 {
		t.Errorf("unexpected progress: %+v", after)
	}
}

func TestResetZeroesEverything(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker()
	ctx := context.Background()

	if _, err := tracker.Record(ctx, "anon-1", "customerAutoAgent", 90); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := tracker.Reset(ctx, "anon-1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	state, err := tracker.Snapshot(ctx, "anon-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	for id, p := range state {
		if p.Passed || p.BestScore != 0 || p.Attempts != 0 {
			t.Errorf("persona %s not reset: %+v", id, p)
		}
	}
}

func TestAllPassed(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker()
	ctx := context.Background()

	done, err := tracker.AllPassed(ctx, "anon-1")
	if err != nil {
		t.Fatalf("AllPassed failed: %v", err)
	}
	if done {
		t.Error("fresh trainee cannot have passed everything")
	}

	for _, id := range testPersonas {
		if _, err := tracker.Record(ctx, "anon-1", id, 100); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	done, err = tracker.AllPassed(ctx, "anon-1")
	if err != nil {
		t.Fatalf("AllPassed failed: %v", err)
	}
	if !done {
		t.Error("expected AllPassed after passing every persona")
	}
}

func TestCorruptBlobFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	tracker, repo := newTestTracker()
	ctx := context.Background()
	repo.blobs["anon-1"] = []byte("{not json")

	state, err := tracker.Snapshot(ctx, "anon-1")
	if err != nil {
		t.Fatalf("Snapshot must not fail on corrupt blob: %v", err)
	}
	if len(state) != len(testPersonas) {
		t.Errorf("expected defaults for %d personas, got %d", len(testPersonas), len(state))
	}
	for _, p := range state {
		if p.Attempts != 0 || p.Passed {
			t.Errorf("expected zeroed progress, got %+v", p)
		}
	}
}

func TestLoadMergesNewPersonasOverStoredState(t *testing.T) {
	t.Parallel()

	tracker, repo := newTestTracker()
	ctx := context.Background()

	// Stored blob predates customerHouseFireAgent.
	repo.blobs["anon-1"] = []byte(`{"customerAutoAgent":{"passed":true,"bestScore":90,"attempts":3,"lastAttemptDate":"2026-01-01T00:00:00Z"}}`)

	state, err := tracker.Snapshot(ctx, "anon-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !state["customerAutoAgent"].Passed {
		t.Error("stored progress lost in merge")
	}
	fresh, ok := state["customerHouseFireAgent"]
	if !ok {
		t.Fatal("new persona missing from merged state")
	}
	if fresh.Attempts != 0 || fresh.Passed {
		t.Errorf("new persona should start zeroed, got %+v", fresh)
	}
}

func TestRepositoryErrorsPropagate(t *testing.T) {
	t.Parallel()

	tracker, repo := newTestTracker()
	repo.fail = errors.New("disk on fire")

	if _, err := tracker.Record(context.Background(), "anon-1", "customerAutoAgent", 90); err == nil {
		t.Error("expected repository error to propagate from Record")
	}
}
