package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredDB(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "backoffice")
	t.Setenv("DB_NAME", "backoffice")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredDB(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.Storage.Disk)
	assert.Equal(t, 10, cfg.Upload.MaxFiles)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxFileSize)
	assert.Contains(t, cfg.Upload.AllowedMIMEs, "image/webp")
	assert.Equal(t, 60*time.Second, cfg.Redis.PublicCacheTTL)
	assert.Equal(t, "IDR", cfg.Currency)
	assert.Equal(t, 5, cfg.Auth.FailureLimit)
	assert.Equal(t, time.Minute, cfg.Auth.FailureWindow)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_AuthFailureLimits(t *testing.T) {
	setRequiredDB(t)
	t.Setenv("AUTH_FAILURE_LIMIT", "10")
	t.Setenv("AUTH_FAILURE_WINDOW", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Auth.FailureLimit)
	assert.Equal(t, 5*time.Minute, cfg.Auth.FailureWindow)

	t.Setenv("AUTH_FAILURE_WINDOW", "later")
	_, err = Load()
	assert.ErrorContains(t, err, "AUTH_FAILURE_WINDOW")

	t.Setenv("AUTH_FAILURE_WINDOW", "1m")
	t.Setenv("AUTH_FAILURE_LIMIT", "0")
	_, err = Load()
	assert.ErrorContains(t, err, "AUTH_FAILURE_LIMIT")
}

func TestLoad_MissingDatabase(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_S3RequiresBucket(t *testing.T) {
	setRequiredDB(t)
	t.Setenv("STORAGE_DISK", "s3")
	t.Setenv("S3_BUCKET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "S3_BUCKET")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequiredDB(t)
	t.Setenv("ORPHAN_SWEEP_INTERVAL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "ORPHAN_SWEEP_INTERVAL")
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_HOSTS", " a.example.com, ,b.example.com ")
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, getEnvList("CORS_ALLOWED_HOSTS", ""))
}
