// Package transcript accumulates conversation history for one session and
// renders it for review, scoring, and export.
package transcript

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/repcoach/repcoach/internal/domain"
)

// Log is the append-only transcript for one trainee session. Storage order
// is insertion order; Sorted() is for display only. The active session owns
// its Log exclusively, and it is cleared when the trainee picks a new
// persona or retries.
type Log struct {
	mu    sync.Mutex
	items []domain.TranscriptItem
	now   func() time.Time
}

// NewLog creates an empty transcript.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// AddMessage appends a spoken or typed message and returns its item ID.
// Hidden messages (like the synthetic greeting trigger) are stored but
// excluded from display and scoring.
func (l *Log) AddMessage(role, text string, hidden bool) string {
	id := uuid.NewString()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, domain.TranscriptItem{
		ItemID:    id,
		Type:      domain.ItemTypeMessage,
		Role:      role,
		Title:     text,
		Hidden:    hidden,
		CreatedAt: l.now(),
	})
	return id
}

// AddBreadcrumb appends a structured system/debug event.
func (l *Log) AddBreadcrumb(title string, data map[string]any) string {
	id := uuid.NewString()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, domain.TranscriptItem{
		ItemID:    id,
		Type:      domain.ItemTypeBreadcrumb,
		Title:     title,
		Data:      data,
		CreatedAt: l.now(),
	})
	return id
}

// UpdateMessage replaces the text of an existing message, used when the
// runtime streams a transcription update for an item it created earlier.
func (l *Log) UpdateMessage(itemID, text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ItemID == itemID {
			l.items[i].Title = text
			return true
		}
	}
	return false
}

// UpsertMessage updates the text of itemID when present, otherwise appends
// a new visible message under that ID. Runtime-created items keep the item
// IDs the runtime assigned, so transcription updates land on the right row.
func (l *Log) UpsertMessage(itemID, role, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ItemID == itemID {
			l.items[i].Title = text
			return
		}
	}
	l.items = append(l.items, domain.TranscriptItem{
		ItemID:    itemID,
		Type:      domain.ItemTypeMessage,
		Role:      role,
		Title:     text,
		CreatedAt: l.now(),
	})
}

// SetGuardrail attaches a moderation verdict to an existing item.
func (l *Log) SetGuardrail(itemID string, status domain.GuardrailStatus) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ItemID == itemID {
			l.items[i].Guardrail = status
			return true
		}
	}
	return false
}

// Items returns a snapshot copy in insertion order. Items appended after
// the snapshot is taken are not reflected in it, which is what gives the
// scoring engine a consistent view.
func (l *Log) Items() []domain.TranscriptItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TranscriptItem, len(l.items))
	copy(out, l.items)
	return out
}

// Sorted returns a snapshot ordered by creation time for display.
func (l *Log) Sorted() []domain.TranscriptItem {
	items := l.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

// Len reports the number of stored items.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Clear discards all items.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}
