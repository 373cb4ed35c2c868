package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "guardian.db"), cfg.Storage.SQLitePath)
	assert.Equal(t, "@daily", cfg.Batch.Schedule)
	assert.Equal(t, "UTC", cfg.Batch.Timezone)
	assert.True(t, cfg.Batch.Enabled)
	assert.NotEmpty(t, cfg.Security.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GUARDIAN_SERVER_PORT", "9090")
	t.Setenv("GUARDIAN_MAIL_ENDPOINT", "https://relay.example.com/send")
	t.Setenv("GUARDIAN_MAIL_API_KEY", "key-123")
	t.Setenv("GUARDIAN_BATCH_TIMEZONE", "America/New_York")

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://relay.example.com/send", cfg.Mail.Endpoint)
	assert.Equal(t, "key-123", cfg.Mail.APIKey)
	assert.Equal(t, "America/New_York", cfg.Batch.Timezone)
	assert.Equal(t, "America/New_York", cfg.Location().String())
}

func TestLoad_MailKeyWithoutEndpointFails(t *testing.T) {
	t.Setenv("GUARDIAN_MAIL_API_KEY", "key-123")

	_, err := Load("", t.TempDir())
	assert.Error(t, err)
}

func TestLoad_InvalidTimezoneFails(t *testing.T) {
	t.Setenv("GUARDIAN_BATCH_TIMEZONE", "Not/AZone")

	_, err := Load("", t.TempDir())
	assert.Error(t, err)
}
