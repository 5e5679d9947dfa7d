package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
jwt:
  secret: file-secret
queue:
  workers: 2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, "2m", cfg.Queue.JobTimeout)
	assert.Equal(t, 10, cfg.Pagination.DefaultSize)
	assert.Equal(t, 100, cfg.Pagination.MaxSize)
	assert.Equal(t, "placeintern", cfg.Database.DBName)
	assert.Equal(t, []string{"POST", "PUT", "PATCH", "DELETE"}, cfg.Audit.Methods)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: file-secret\n")

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("QUEUE_MAX_ATTEMPTS", "5")
	t.Setenv("AUDIT_ENABLED", "false")
	t.Setenv("AUDIT_EXCLUDE_PATHS", "/a, /b,,")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Audit.ExcludePaths)
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing secret", "server:\n  port: \"8080\"\n"},
		{"bad duration", "jwt:\n  secret: s\n  access_token_expiration: soon\n"},
		{"unknown mail provider", "jwt:\n  secret: s\nmail:\n  provider: pigeon\n"},
		{"sendgrid without key", "jwt:\n  secret: s\nmail:\n  provider: sendgrid\n"},
		{"b2 without bucket", "jwt:\n  secret: s\nstorage:\n  driver: b2\n"},
		{"zero workers", "jwt:\n  secret: s\nqueue:\n  workers: 0\n"},
		{"lease shorter than job timeout", "jwt:\n  secret: s\nqueue:\n  lease_ttl: 1m\n  job_timeout: 5m\n"},
		{"page max below default", "jwt:\n  secret: s\npagination:\n  default_size: 50\n  max_size: 20\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestSetFieldFromEnv_InvalidInt(t *testing.T) {
	t.Setenv("QUEUE_WORKERS", "many")
	_, err := LoadConfig(writeConfig(t, "jwt:\n  secret: s\n"))
	assert.Error(t, err)
}
