package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCRATCH_DIR", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"MAX_WORKERS", "TIMEOUT_SECONDS", "LOG_FORMAT", "LOG_LEVEL",
	} {
		// t.Setenv registers cleanup; setting to "" is not enough for
		// envconfig, the variable must be absent.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/framemill", cfg.Storage.ScratchDir)
	assert.Equal(t, 4, cfg.Processing.MaxWorkers)
	assert.Equal(t, 600, cfg.Processing.TimeoutSeconds)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_SettingsFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
scratch_dir = "/data/scratch"

[storage.s3]
bucket = "artifacts"
region = "eu-west-1"

[processing]
max_workers = 8
timeout_seconds = 120

[logging]
level = "debug"
format = "json"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/scratch", cfg.Storage.ScratchDir)
	assert.Equal(t, "artifacts", cfg.Storage.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)
	assert.Equal(t, 8, cfg.Processing.MaxWorkers)
	assert.Equal(t, 120, cfg.Processing.TimeoutSeconds)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
scratch_dir = "/from/file"

[logging]
level = "info"
`), 0o600))

	t.Setenv("SCRATCH_DIR", "/from/env")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.Storage.ScratchDir)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "AKIA-test", cfg.Storage.S3.AccessKeyID)
}

func TestLoad_InvalidSettingsFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[storage`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
	}{
		{"text logger", "text", "info"},
		{"json logger", "json", "debug"},
		{"unknown level falls back to info", "text", "nonsense"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Logging.Format = tt.format
			cfg.Logging.Level = tt.level

			logger := cfg.NewLogger()
			require.NotNil(t, logger)
		})
	}
}

func TestConfig_StringMasksCredentials(t *testing.T) {
	cfg := Default()
	cfg.Storage.S3.AccessKeyID = "AKIA-secret"
	cfg.Storage.S3.SecretAccessKey = "very-secret"

	s := cfg.String()
	assert.NotContains(t, s, "AKIA-secret")
	assert.NotContains(t, s, "very-secret")
}
