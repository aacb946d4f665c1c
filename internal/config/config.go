// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	// RuntimeURL is the websocket endpoint of the realtime agent runtime.
	RuntimeURL string
	// CredentialURL mints short-lived session credentials.
	CredentialURL string
	// CompanyName is the insurer the personas claim to be customers of.
	CompanyName string

	// ConnectTimeout bounds credential fetch plus runtime dial per attempt.
	ConnectTimeout time.Duration

	TranscriptLog TranscriptLogConfig
}

// TranscriptLogConfig controls NDJSON transcript event logging.
type TranscriptLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/repcoach.db"),
		RuntimeURL:     getEnv("RUNTIME_URL", "ws://localhost:9090/realtime"),
		CredentialURL:  getEnv("CREDENTIAL_URL", "http://localhost:9090/session"),
		CompanyName:    getEnv("COMPANY_NAME", "State Farm"),
		ConnectTimeout: time.Duration(getEnvInt("CONNECT_TIMEOUT_SECONDS", 30)) * time.Second,
		TranscriptLog: TranscriptLogConfig{
			Enabled:   getEnvBool("TRANSCRIPT_LOG_ENABLED", true),
			Dir:       getEnv("TRANSCRIPT_LOG_DIR", "./data/logs/transcripts"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.RuntimeURL == "" {
		return fmt.Errorf("RUNTIME_URL cannot be empty")
	}
	if c.CredentialURL == "" {
		return fmt.Errorf("CREDENTIAL_URL cannot be empty")
	}
	if c.CompanyName == "" {
		return fmt.Errorf("COMPANY_NAME cannot be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("CONNECT_TIMEOUT_SECONDS must be > 0")
	}
	if c.TranscriptLog.Enabled && c.TranscriptLog.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
