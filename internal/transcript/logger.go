package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogEvent is one NDJSON record in the on-disk transcript log.
type LogEvent struct {
	Timestamp time.Time `json:"ts"`
	TraineeID string    `json:"trainee_id"`
	SessionID string    `json:"session_id"`
	PersonaID string    `json:"persona_id,omitempty"`
	EventType string    `json:"event_type"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content,omitempty"`
}

// LoggerConfig controls NDJSON transcript logging.
type LoggerConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Logger writes transcript events to per-trainee NDJSON files from a
// background goroutine. Logging is best-effort: when the queue is full the
// event is dropped with a warning rather than blocking the session.
type Logger struct {
	cfg    LoggerConfig
	logger *slog.Logger
	queue  chan LogEvent

	closeOnce sync.Once
	done      chan struct{}
}

// NewLogger creates a transcript logger. A disabled config returns a
// logger whose Log is a no-op.
func NewLogger(cfg LoggerConfig, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
	if !cfg.Enabled {
		close(l.done)
		return l, nil
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
		l.cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript log directory: %w", err)
	}

	l.queue = make(chan LogEvent, l.cfg.QueueSize)
	go l.run()
	return l, nil
}

// Log enqueues one event. Never blocks.
func (l *Logger) Log(event LogEvent) {
	if !l.cfg.Enabled {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("transcript log queue full, dropping event",
			"trainee_id", event.TraineeID, "event_type", event.EventType)
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("failed to write transcript log event",
				"trainee_id", event.TraineeID, "error", err)
		}
	}
}

func (l *Logger) write(event LogEvent) error {
	dir := filepath.Join(l.cfg.Dir, event.TraineeID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create trainee log directory: %w", err)
	}

	path := filepath.Join(dir, event.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open transcript log file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.logger.Debug("failed to close transcript log file", "path", path, "error", closeErr)
		}
	}()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode transcript log event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append transcript log event: %w", err)
	}
	return nil
}

// Close drains the queue and stops the writer.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		if l.cfg.Enabled {
			close(l.queue)
		}
	})
	<-l.done
	return nil
}
