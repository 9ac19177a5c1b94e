package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/security"
)

// Config holds everything the CLI needs to compose a backend.
type Config struct {
	// APIBaseURL selects the HTTP backend. Empty selects the in-process mock.
	APIBaseURL string
	APIKey     string
	Token      string
	TokenFile  string

	PollInterval   time.Duration
	PageSize       int
	RecentLimit    int
	RequestTimeout time.Duration
	Refresh        string

	ArchiveDSN string

	LogLevel  slog.Level
	LogFormat string

	MockAddr           string
	MockJWTSecret      string
	MockPhase          time.Duration
	CORSAllowedOrigins []string
}

// UseMock reports whether no API base is configured.
func (c Config) UseMock() bool {
	return c.APIBaseURL == ""
}

// Load reads the environment after applying the given .env files, or ./.env
// when none are given. Missing files are ignored; variables already set in
// the environment win.
func Load(envFiles ...string) (Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBaseURL: strings.TrimRight(getenv("COMPLISCAN_API_URL", ""), "/"),
		APIKey:     getenv("COMPLISCAN_API_KEY", ""),
		Token:      getenv("COMPLISCAN_TOKEN", ""),
		TokenFile:  getenv("COMPLISCAN_TOKEN_FILE", defaultTokenFile()),
		Refresh:    getenv("COMPLISCAN_REFRESH", "30s"),
		ArchiveDSN: getenv("COMPLISCAN_ARCHIVE_DSN", ""),
		LogFormat:  strings.ToLower(getenv("COMPLISCAN_LOG_FORMAT", "text")),

		MockAddr:      getenv("COMPLISCAN_MOCK_ADDR", ":8080"),
		MockJWTSecret: getenv("COMPLISCAN_MOCK_JWT_SECRET", "dev-secret"),
	}

	var err error
	if cfg.PollInterval, err = durationEnv("COMPLISCAN_POLL_INTERVAL", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationEnv("COMPLISCAN_HTTP_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	if cfg.MockPhase, err = durationEnv("COMPLISCAN_MOCK_PHASE", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PageSize, err = intEnv("COMPLISCAN_PAGE_SIZE", security.DefaultPageSize); err != nil {
		return Config{}, err
	}
	if cfg.RecentLimit, err = intEnv("COMPLISCAN_RECENT_LIMIT", security.DefaultRecentLimit); err != nil {
		return Config{}, err
	}
	cfg.PageSize = security.ClampPageSize(cfg.PageSize)

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("COMPLISCAN_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("%w: COMPLISCAN_LOG_LEVEL: %v", core.ErrInvalidArgument, err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("%w: COMPLISCAN_LOG_FORMAT must be text or json", core.ErrInvalidArgument)
	}

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

// Logger builds the slog logger described by the configuration.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("compliscan: load %s: %w", f, err)
		}
	}
	return nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative duration, got %q", core.ErrInvalidArgument, key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", core.ErrInvalidArgument, key, v)
	}
	return n, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "compliscan", "token")
}
