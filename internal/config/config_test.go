package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9180, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "governd", cfg.Telemetry.ServiceName)
	assert.Equal(t, "~/.config/governd/memorystore", cfg.Store.Path)
	assert.Equal(t, time.Hour, cfg.Meeting.DefaultMaxDuration)
	assert.NotEmpty(t, cfg.Meeting.DefaultClosureCriteria)

	// A usable principal set exists out of the box.
	require.Len(t, cfg.Principals.Users, 1)
	assert.Equal(t, "local_user", cfg.Principals.Users[0].ID)
	require.Len(t, cfg.Principals.Agents, 1)
	assert.Len(t, cfg.Principals.Agents[0].Meetings, 4)
}

func TestLoadPrincipals(t *testing.T) {
	content := `
principals:
  users:
    - id: user_alice
      name: Alice
  agents:
    - id: agent_scribe
      name: Scribe
      role: scribe
      meetings: [decision, review_audit]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Principals.Users, 1)
	assert.Equal(t, "Alice", cfg.Principals.Users[0].Name)
	require.Len(t, cfg.Principals.Agents, 1)
	assert.Equal(t, []string{"decision", "review_audit"}, cfg.Principals.Agents[0].Meetings)
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 8080
logging:
  level: debug
  format: console
store:
  path: /tmp/governd-test-store
  compress: true
meeting:
  default_max_duration: 30m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "/tmp/governd-test-store", cfg.Store.Path)
	assert.True(t, cfg.Store.Compress)
	assert.Equal(t, 30*time.Minute, cfg.Meeting.DefaultMaxDuration)
	// Untouched sections still get defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	content := `
server:
  port: 8080
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("GOVERND_SERVER_PORT", "9999")
	t.Setenv("GOVERND_LOGGING_LEVEL", "warn")
	t.Setenv("GOVERND_TELEMETRY_SERVICE_NAME", "governd-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "governd-test", cfg.Telemetry.ServiceName)
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad port", content: "server:\n  port: 70000\n"},
		{name: "bad log level", content: "logging:\n  level: loud\n"},
		{name: "bad log format", content: "logging:\n  format: xml\n"},
		{name: "malformed yaml", content: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
