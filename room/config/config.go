package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every tunable the relay core consumes. The core treats the
// values as opaque; validation happens once at startup.
type Config struct {
	// Admission ceilings.
	MaxGlobalConnections       int
	MaxConnectionsPerIP        int
	MaxConnectionAttemptsPerIP int
	AttemptWindow              time.Duration

	// Heartbeat tuning. ClientTimeout must exceed HeartbeatInterval so a
	// well-behaved client always gets a chance to answer a ping.
	HeartbeatInterval time.Duration
	ClientTimeout     time.Duration

	// Chat messages at or above this byte length are dropped.
	MaxChatMessageLength int

	// Fraction of movement events forwarded to preview subscribers.
	PreviewMoveSampleRate float64
}

// Default returns the configuration used when no environment overrides are
// present. The numbers match the production deployment defaults.
func Default() Config {
	return Config{
		MaxGlobalConnections:       500,
		MaxConnectionsPerIP:        5,
		MaxConnectionAttemptsPerIP: 30,
		AttemptWindow:              60 * time.Second,
		HeartbeatInterval:          25 * time.Second,
		ClientTimeout:              55 * time.Second,
		MaxChatMessageLength:       512,
		PreviewMoveSampleRate:      0.1,
	}
}

// FromEnv builds a Config from environment variables, falling back to the
// defaults for anything unset or unparsable.
func FromEnv() Config {
	cfg := Default()

	cfg.MaxGlobalConnections = envInt("MAX_GLOBAL_CONNECTIONS", cfg.MaxGlobalConnections)
	cfg.MaxConnectionsPerIP = envInt("MAX_CONNECTIONS_PER_IP", cfg.MaxConnectionsPerIP)
	cfg.MaxConnectionAttemptsPerIP = envInt("MAX_CONNECTION_ATTEMPTS_PER_IP", cfg.MaxConnectionAttemptsPerIP)
	cfg.AttemptWindow = envMillis("CONNECTION_ATTEMPT_WINDOW_MS", cfg.AttemptWindow)
	cfg.HeartbeatInterval = envMillis("HEARTBEAT_INTERVAL_MS", cfg.HeartbeatInterval)
	cfg.ClientTimeout = envMillis("CLIENT_TIMEOUT_MS", cfg.ClientTimeout)
	cfg.MaxChatMessageLength = envInt("MAX_CHAT_MESSAGE_LENGTH", cfg.MaxChatMessageLength)
	cfg.PreviewMoveSampleRate = envFloat("PREVIEW_MOVE_SAMPLE_RATE", cfg.PreviewMoveSampleRate)

	return cfg
}

// Validate checks the invariants the relay core relies on.
func (c Config) Validate() error {
	if c.MaxGlobalConnections <= 0 {
		return fmt.Errorf("%w: MaxGlobalConnections must be positive, got %d", ErrInvalidConfig, c.MaxGlobalConnections)
	}
	if c.MaxConnectionsPerIP <= 0 {
		return fmt.Errorf("%w: MaxConnectionsPerIP must be positive, got %d", ErrInvalidConfig, c.MaxConnectionsPerIP)
	}
	if c.MaxConnectionAttemptsPerIP <= 0 {
		return fmt.Errorf("%w: MaxConnectionAttemptsPerIP must be positive, got %d", ErrInvalidConfig, c.MaxConnectionAttemptsPerIP)
	}
	if c.AttemptWindow <= 0 {
		return fmt.Errorf("%w: AttemptWindow must be positive, got %s", ErrInvalidConfig, c.AttemptWindow)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: HeartbeatInterval must be positive, got %s", ErrInvalidConfig, c.HeartbeatInterval)
	}
	if c.ClientTimeout <= c.HeartbeatInterval {
		return fmt.Errorf("%w: ClientTimeout (%s) must exceed HeartbeatInterval (%s)",
			ErrInvalidConfig, c.ClientTimeout, c.HeartbeatInterval)
	}
	if c.MaxChatMessageLength <= 0 {
		return fmt.Errorf("%w: MaxChatMessageLength must be positive, got %d", ErrInvalidConfig, c.MaxChatMessageLength)
	}
	if c.PreviewMoveSampleRate < 0 || c.PreviewMoveSampleRate > 1 {
		return fmt.Errorf("%w: PreviewMoveSampleRate must be in [0,1], got %g", ErrInvalidConfig, c.PreviewMoveSampleRate)
	}
	return nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envMillis(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
