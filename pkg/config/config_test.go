package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "mkarchive/1.0", cfg.Misskey.UserAgent)
	assert.Equal(t, 60, cfg.Archive.PageLimit)
	assert.Equal(t, 10000, cfg.RateLimit.RequestDelayMS)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MKARCHIVE_HOST", "misskey.example")
	t.Setenv("MKARCHIVE_TOKEN", "env-token")
	t.Setenv("MKARCHIVE_CHANNEL_ID", "9chan1")
	t.Setenv("MKARCHIVE_REQUEST_DELAY_MS", "500")
	t.Setenv("MKARCHIVE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "misskey.example", cfg.Misskey.Host)
	assert.Equal(t, "env-token", cfg.Misskey.Token)
	assert.Equal(t, "9chan1", cfg.Archive.ChannelID)
	assert.Equal(t, 500, cfg.RateLimit.RequestDelayMS)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresInvalidDelay(t *testing.T) {
	t.Setenv("MKARCHIVE_REQUEST_DELAY_MS", "not-a-number")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 10000, cfg.RateLimit.RequestDelayMS)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
misskey:
  host: misskey.example
  token: file-token
archive:
  channel_id: 9chan1
  page_limit: 30
rate_limit:
  request_delay_ms: 2000
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "misskey.example", cfg.Misskey.Host)
	assert.Equal(t, "file-token", cfg.Misskey.Token)
	assert.Equal(t, 30, cfg.Archive.PageLimit)
	assert.Equal(t, 2000, cfg.RateLimit.RequestDelayMS)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Misskey.Host = "misskey.example"
		return cfg
	}

	t.Run("valid configuration", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := valid()
		cfg.Misskey.Host = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("host with scheme", func(t *testing.T) {
		cfg := valid()
		cfg.Misskey.Host = "https://misskey.example"
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive page limit", func(t *testing.T) {
		cfg := valid()
		cfg.Archive.PageLimit = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("oversized page limit", func(t *testing.T) {
		cfg := valid()
		cfg.Archive.PageLimit = 101
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative request delay", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.RequestDelayMS = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "chatty"
		assert.Error(t, cfg.Validate())
	})
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Misskey.Host = "misskey.example"

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"host":             "other.example",
		"token":            "flag-token",
		"channel":          "9chan2",
		"after":            "9note1",
		"page-limit":       25,
		"request-delay-ms": 100,
		"log-level":        "debug",
	})

	assert.Equal(t, "other.example", cfg.Misskey.Host)
	assert.Equal(t, "flag-token", cfg.Misskey.Token)
	assert.Equal(t, "9chan2", cfg.Archive.ChannelID)
	assert.Equal(t, "9note1", cfg.Archive.After)
	assert.Equal(t, 25, cfg.Archive.PageLimit)
	assert.Equal(t, 100, cfg.RateLimit.RequestDelayMS)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
misskey:
  host: file.example
  token: file-token
rate_limit:
  request_delay_ms: 2000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("MKARCHIVE_HOST", "env.example")

	// Flags beat env, env beats file, file beats defaults.
	cfg, err := Load(path, map[string]interface{}{"host": "flag.example"})
	require.NoError(t, err)

	assert.Equal(t, "flag.example", cfg.Misskey.Host)
	assert.Equal(t, "file-token", cfg.Misskey.Token)
	assert.Equal(t, 2000, cfg.RateLimit.RequestDelayMS)
	assert.Equal(t, 60, cfg.Archive.PageLimit)
}

func TestLoadRejectsInvalid(t *testing.T) {
	// No host anywhere.
	t.Setenv("MKARCHIVE_HOST", "")
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"), nil)
	assert.Error(t, err)
}
