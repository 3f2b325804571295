// Package config provides configuration loading for governd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/governd/internal/logging"
)

// envPrefix is stripped from environment variables before mapping.
// GOVERND_SERVER_PORT -> server.port
const envPrefix = "GOVERND_"

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    logging.Config   `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Store      StoreConfig      `koanf:"store"`
	Meeting    MeetingConfig    `koanf:"meeting"`
	Principals PrincipalsConfig `koanf:"principals"`
}

// PrincipalsConfig declares the known users and agents. Meetings resolve
// their initiators and validators against this registry.
type PrincipalsConfig struct {
	Users  []UserEntry  `koanf:"users"`
	Agents []AgentEntry `koanf:"agents"`
}

// UserEntry is a registered human user.
type UserEntry struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// AgentEntry is a registered agent and the meeting kinds it joins.
type AgentEntry struct {
	ID       string   `koanf:"id"`
	Name     string   `koanf:"name"`
	Role     string   `koanf:"role"`
	Meetings []string `koanf:"meetings"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// TelemetryConfig holds trace export settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// StoreConfig holds the embedded memory store settings.
type StoreConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// MeetingConfig holds defaults applied to meetings started from the
// interaction channel, where the user supplies only kind and objective.
type MeetingConfig struct {
	DefaultMaxDuration     time.Duration `koanf:"default_max_duration"`
	DefaultClosureCriteria string        `koanf:"default_closure_criteria"`
}

// Load reads configuration from the YAML file at configPath (if it
// exists), then overrides with GOVERND_-prefixed environment variables.
// An empty configPath uses ~/.config/governd/config.yaml.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "governd", "config.yaml")
	}

	if content, err := os.ReadFile(configPath); err == nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// GOVERND_SERVER_PORT -> server.port, GOVERND_STORE_PATH -> store.path.
	// Split on the first underscore only so field names keep theirs.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9180
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "governd"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.config/governd/memorystore"
	}

	if cfg.Meeting.DefaultMaxDuration == 0 {
		cfg.Meeting.DefaultMaxDuration = time.Hour
	}
	if cfg.Meeting.DefaultClosureCriteria == "" {
		cfg.Meeting.DefaultClosureCriteria = "required outputs produced and validated"
	}

	if len(cfg.Principals.Users) == 0 {
		cfg.Principals.Users = []UserEntry{{ID: "local_user", Name: "Local User"}}
	}
	if len(cfg.Principals.Agents) == 0 {
		cfg.Principals.Agents = []AgentEntry{{
			ID:       "agent_facilitator",
			Name:     "Facilitator",
			Role:     "facilitator",
			Meetings: []string{"reflection", "team_alignment", "decision", "review_audit"},
		}}
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be > 0")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint required when telemetry enabled")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path cannot be empty")
	}
	if c.Meeting.DefaultMaxDuration <= 0 {
		return fmt.Errorf("meeting default max duration must be > 0")
	}
	for _, u := range c.Principals.Users {
		if u.ID == "" {
			return fmt.Errorf("principal user ID cannot be empty")
		}
	}
	for _, a := range c.Principals.Agents {
		if a.ID == "" {
			return fmt.Errorf("principal agent ID cannot be empty")
		}
	}
	return nil
}
