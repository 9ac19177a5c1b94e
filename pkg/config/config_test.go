package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/compliscan/pkg/core"
)

var envKeys = []string{
	"COMPLISCAN_API_URL", "COMPLISCAN_API_KEY", "COMPLISCAN_TOKEN", "COMPLISCAN_TOKEN_FILE",
	"COMPLISCAN_POLL_INTERVAL", "COMPLISCAN_PAGE_SIZE", "COMPLISCAN_RECENT_LIMIT",
	"COMPLISCAN_HTTP_TIMEOUT", "COMPLISCAN_REFRESH", "COMPLISCAN_ARCHIVE_DSN",
	"COMPLISCAN_LOG_LEVEL", "COMPLISCAN_LOG_FORMAT", "COMPLISCAN_MOCK_ADDR",
	"COMPLISCAN_MOCK_JWT_SECRET", "COMPLISCAN_MOCK_PHASE", "CORS_ALLOWED_ORIGINS",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.True(t, cfg.UseMock())
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 20, cfg.RecentLimit)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout)
	assert.Equal(t, "30s", cfg.Refresh)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.MockAddr)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("COMPLISCAN_API_URL", "https://api.example.com/prod/")
	t.Setenv("COMPLISCAN_POLL_INTERVAL", "500ms")
	t.Setenv("COMPLISCAN_PAGE_SIZE", "5000")
	t.Setenv("COMPLISCAN_LOG_LEVEL", "debug")
	t.Setenv("COMPLISCAN_LOG_FORMAT", "JSON")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.False(t, cfg.UseMock())
	assert.Equal(t, "https://api.example.com/prod", cfg.APIBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 1000, cfg.PageSize, "clamped to the maximum")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("COMPLISCAN_API_KEY=from-file\nCOMPLISCAN_API_URL=http://file.test\n"), 0o600))
	t.Setenv("COMPLISCAN_API_URL", "http://env.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "http://env.test", cfg.APIBaseURL, "environment wins over .env")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"COMPLISCAN_POLL_INTERVAL": "soon",
		"COMPLISCAN_PAGE_SIZE":     "-1",
		"COMPLISCAN_LOG_LEVEL":     "loud",
		"COMPLISCAN_LOG_FORMAT":    "xml",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.ErrorIs(t, err, core.ErrInvalidArgument)
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: slog.LevelWarn, LogFormat: "json"}

	l := cfg.Logger(&buf)
	l.Info("hidden")
	l.Warn("shown", "job_id", "job-1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"job_id":"job-1"`)
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	tok, err := LoadToken(path)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, SaveToken(path, "  abc.def.ghi \n"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err = LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	cfg := Config{TokenFile: path}
	tok, err = cfg.ResolveToken()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	cfg.Token = "explicit"
	tok, _ = cfg.ResolveToken()
	assert.Equal(t, "explicit", tok)

	require.NoError(t, ClearToken(path))
	require.NoError(t, ClearToken(path))
	tok, _ = LoadToken(path)
	assert.Empty(t, tok)
}
