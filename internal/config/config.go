package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/riftsim/internal/rift"
)

// Config holds all riftsim settings. Logging is configured separately
// through the logger package, which reads the logging section of the same file.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Model      rift.Model       `yaml:"model"`
	Server     ServerConfig     `yaml:"server"`
}

// SimulationConfig holds batch defaults.
type SimulationConfig struct {
	// Trials is the number of runs per batch when a request doesn't specify one.
	Trials int `yaml:"trials" env:"RIFTSIM_TRIALS"`

	// ChunkSize is the number of runs between progress reports.
	ChunkSize int `yaml:"chunk_size" env:"RIFTSIM_CHUNK_SIZE"`

	// Seed pins every batch to a fixed seed. 0 draws a fresh seed per batch.
	Seed int64 `yaml:"seed" env:"RIFTSIM_SEED"`
}

// ServerConfig holds settings for the websocket simulation service.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":4443".
	Addr string `yaml:"addr" env:"RIFTSIM_ADDR"`

	// MaxTrials caps the trial count a client may request. 0 means uncapped.
	MaxTrials int `yaml:"max_trials" env:"RIFTSIM_MAX_TRIALS"`

	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// RateLimitConfig holds per-IP simulation request limits.
type RateLimitConfig struct {
	// MaxRequests is the number of simulations allowed per window before lockout.
	MaxRequests int `yaml:"max_requests"`

	// WindowSeconds is the length of the counting window.
	WindowSeconds int `yaml:"window_seconds"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds is the maximum lockout duration (for exponential backoff).
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip" env:"RIFTSIM_MAX_PER_IP"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total" env:"RIFTSIM_MAX_TOTAL"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns a Config with the placeholder model and safe server limits.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Trials:    rift.DefaultTrials,
			ChunkSize: rift.DefaultChunkSize,
		},
		Model: rift.DefaultModel(),
		Server: ServerConfig{
			Addr:      ":4443",
			MaxTrials: 100000,
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 1024,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
			RateLimit: RateLimitConfig{
				MaxRequests:       30,
				WindowSeconds:     60,
				LockoutSeconds:    30,
				MaxLockoutSeconds: 300,
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist, defaults are used. If it can't be
// parsed, the defaults are returned together with the error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Validate checks settings that the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Simulation.Trials < 1 {
		return fmt.Errorf("simulation.trials must be at least 1, got %d", c.Simulation.Trials)
	}
	if c.Simulation.ChunkSize < 1 {
		return fmt.Errorf("simulation.chunk_size must be at least 1, got %d", c.Simulation.ChunkSize)
	}
	if c.Server.MaxTrials < 0 {
		return fmt.Errorf("server.max_trials must not be negative, got %d", c.Server.MaxTrials)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

// SeedPtr returns the configured fixed seed, or nil when batches draw their own.
func (c SimulationConfig) SeedPtr() *int64 {
	if c.Seed == 0 {
		return nil
	}
	seed := c.Seed
	return &seed
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// "http://localhost:3000" -> "localhost:3000"
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
