// Package compliscan is a client for the CompliScan screening API.
//
// It watches a submitted screening job until it settles, pages through the
// job's risk results, and filters and sorts them for display. This is the
// main package users should import. It re-exports the public types from the
// pkg/ packages and composes a backend from configuration.
//
// Basic usage:
//
//	cfg, _ := compliscan.LoadConfig()
//	svc, _ := compliscan.NewService(cfg, slog.Default())
//
//	p, _ := compliscan.NewPoller(svc, jobID, compliscan.WithInterval(cfg.PollInterval))
//	p.Start(ctx)
//	defer p.Stop()
//	p.Wait(ctx)
//
//	view := compliscan.DefaultView()
//	for _, item := range view.Apply(p.Results().Items()) {
//	    fmt.Println(item.Name, item.Score())
//	}
package compliscan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jdziat/compliscan/pkg/client"
	"github.com/jdziat/compliscan/pkg/config"
	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/export"
	"github.com/jdziat/compliscan/pkg/mock"
	"github.com/jdziat/compliscan/pkg/poller"
	"github.com/jdziat/compliscan/pkg/recent"
	"github.com/jdziat/compliscan/pkg/results"
	"github.com/jdziat/compliscan/pkg/schedule"
	"github.com/jdziat/compliscan/pkg/security"
	"github.com/jdziat/compliscan/pkg/storage"
)

type (
	// Job is a server-tracked screening job.
	Job = core.Job

	// JobStatus is the server-reported state of a job.
	JobStatus = core.JobStatus

	// Summary holds aggregate risk counts for a DONE job.
	Summary = core.Summary

	// ResultItem is one screened record.
	ResultItem = core.ResultItem

	// ResultPage is one page of results with its continuation cursor.
	ResultPage = core.ResultPage

	// JobPage is one page of the recent jobs listing.
	JobPage = core.JobPage

	// SearchQuery, SearchResponse and MatchResult describe a watchlist search.
	SearchQuery    = core.SearchQuery
	SearchResponse = core.SearchResponse
	MatchResult    = core.MatchResult

	// Backend is what the poller and accumulator read from.
	Backend = core.Backend

	// RecentJobsLister lists recently submitted jobs.
	RecentJobsLister = core.RecentJobsLister

	// Event is emitted by a Poller.
	Event         = core.Event
	JobUpdated    = core.JobUpdated
	ResultsLoaded = core.ResultsLoaded
	JobSettled    = core.JobSettled

	// Error types returned by backends and the poller.
	HTTPError      = core.HTTPError
	TransportError = core.TransportError
	DecodeError    = core.DecodeError
	JobFailedError = core.JobFailedError

	// Client talks to the CompliScan HTTP API.
	Client             = client.Client
	ClientOption       = client.Option
	CredentialProvider = client.CredentialProvider
	StaticToken        = client.StaticToken
	TokenInfo          = client.TokenInfo

	// Poller watches one job until it settles.
	Poller       = poller.Poller
	PollerOption = poller.Option
	PollerState  = poller.State

	// Accumulator collects result pages for one job.
	Accumulator = results.Accumulator

	// View filters and sorts accumulated results.
	View       = results.View
	Band       = results.Band
	SortKey    = results.SortKey
	SortDir    = results.SortDir
	BandCounts = results.BandCounts

	// Feed is the recent jobs listing.
	Feed = recent.Feed

	// Schedule decides when a recurring refresh runs next.
	Schedule = schedule.Schedule

	// MockStore is the in-memory development backend.
	MockStore = mock.Store

	// Archive persists observed jobs and result pages.
	Archive = storage.Archive

	// Config is the environment-driven CLI configuration.
	Config = config.Config

	// Report is the input to WriteReport.
	Report       = export.Report
	ExportFormat = export.Format
)

// Job status constants
const (
	StatusQueued     = core.StatusQueued
	StatusProcessing = core.StatusProcessing
	StatusDone       = core.StatusDone
	StatusFailed     = core.StatusFailed
)

// Poller state constants
const (
	StateInit              = poller.StateInit
	StatePolling           = poller.StatePolling
	StateFetchingFirstPage = poller.StateFetchingFirstPage
	StateSettledDone       = poller.StateSettledDone
	StateSettledFailed     = poller.StateSettledFailed
	StateSettledError      = poller.StateSettledError
	StateStopped           = poller.StateStopped
)

// Risk bands and sort keys
const (
	BandAll    = results.BandAll
	BandHigh   = results.BandHigh
	BandMedium = results.BandMedium
	BandLow    = results.BandLow

	SortRecordID    = results.SortRecordID
	SortName        = results.SortName
	SortCountry     = results.SortCountry
	SortMatchName   = results.SortMatchName
	SortRiskScore   = results.SortRiskScore
	SortProcessedAt = results.SortProcessedAt

	Asc  = results.Asc
	Desc = results.Desc
)

// Export formats
const (
	ExportCSV  = export.CSV
	ExportXLSX = export.XLSX
)

// Limits and defaults
const (
	DefaultInterval    = poller.DefaultInterval
	DefaultPageSize    = security.DefaultPageSize
	MaxPageSize        = security.MaxPageSize
	DefaultRecentLimit = security.DefaultRecentLimit
)

// Error variables
var (
	ErrInvalidArgument = core.ErrInvalidArgument
	ErrJobIDTooLong    = core.ErrJobIDTooLong
	ErrLoadInProgress  = core.ErrLoadInProgress
	ErrPollerStarted   = core.ErrPollerStarted
	ErrNotArchived     = storage.ErrNotArchived
)

// Service is the full backend surface the CLI uses. Both the HTTP client and
// the mock store satisfy it.
type Service interface {
	core.Backend
	core.RecentJobsLister
	Search(ctx context.Context, q core.SearchQuery) (*core.SearchResponse, error)
	Upload(ctx context.Context, filename string, r io.Reader, size int64, country string) (string, error)
}

var (
	_ Service = (*client.Client)(nil)
	_ Service = (*mock.Store)(nil)
)

// NewService picks the backend once: the HTTP client when an API base URL is
// configured, otherwise a seeded in-memory mock. The HTTP client reads the
// token on every request, so a login from another process is picked up.
func NewService(cfg Config, logger *slog.Logger) (Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.UseMock() {
		store := mock.NewStore(mock.WithPhase(cfg.MockPhase), mock.WithLogger(logger))
		if err := store.Seed(); err != nil {
			return nil, fmt.Errorf("compliscan: seed mock: %w", err)
		}
		logger.Debug("using mock backend")
		return store, nil
	}

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithAPIKey(cfg.APIKey),
		client.WithCredentials(client.CredentialFunc(func(context.Context) (string, error) {
			return cfg.ResolveToken()
		})),
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	}
	logger.Debug("using http backend", "base_url", cfg.APIBaseURL)
	return client.New(cfg.APIBaseURL, opts...), nil
}

// LoadConfig reads configuration from the environment and .env files.
func LoadConfig(envFiles ...string) (Config, error) {
	return config.Load(envFiles...)
}

// NewClient creates an HTTP client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	return client.New(baseURL, opts...)
}

// WithAPIKey sets the x-api-key header.
func WithAPIKey(key string) ClientOption {
	return client.WithAPIKey(key)
}

// WithToken authenticates every request with a fixed bearer token.
func WithToken(token string) ClientOption {
	return client.WithCredentials(client.StaticToken(token))
}

// WithCredentials sets a dynamic bearer token source.
func WithCredentials(p CredentialProvider) ClientOption {
	return client.WithCredentials(p)
}

// ParseTokenInfo reads the claims of a bearer token without verifying it.
func ParseTokenInfo(token string) (*TokenInfo, error) {
	return client.ParseTokenInfo(token)
}

// NewPoller creates a poller for one job. Call Start to begin.
func NewPoller(b Backend, jobID string, opts ...PollerOption) (*Poller, error) {
	return poller.New(b, jobID, opts...)
}

// Watch creates and starts a poller.
func Watch(ctx context.Context, b Backend, jobID string, opts ...PollerOption) (*Poller, error) {
	p, err := poller.New(b, jobID, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) PollerOption {
	return poller.WithInterval(d)
}

// WithPageSize sets the first-page size requested once a job is DONE.
func WithPageSize(n int) PollerOption {
	return poller.WithPageSize(n)
}

// WithAccumulator makes the poller fill acc instead of its own.
func WithAccumulator(acc *Accumulator) PollerOption {
	return poller.WithAccumulator(acc)
}

// NewAccumulator creates an empty result accumulator.
func NewAccumulator(b core.ResultsGetter, opts ...results.Option) *Accumulator {
	return results.NewAccumulator(b, opts...)
}

// DefaultView shows every band sorted by risk score, highest first.
func DefaultView() View {
	return results.DefaultView()
}

// BandOf classifies a risk score.
func BandOf(score float64) Band {
	return results.BandOf(score)
}

// CountBands tallies items per risk band.
func CountBands(items []ResultItem) BandCounts {
	return results.CountBands(items)
}

// NewFeed creates a recent jobs listing.
func NewFeed(l RecentJobsLister, opts ...recent.Option) *Feed {
	return recent.NewFeed(l, opts...)
}

// Every creates a schedule that fires at a fixed interval.
func Every(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Cron creates a schedule from a five-field cron expression.
func Cron(expr string) (Schedule, error) {
	return schedule.Cron(expr)
}

// ParseSchedule accepts either a Go duration or a cron expression.
func ParseSchedule(spec string) (Schedule, error) {
	return schedule.Parse(spec)
}

// NewMockStore creates a seeded in-memory backend.
func NewMockStore(opts ...mock.Option) (*MockStore, error) {
	s := mock.NewStore(opts...)
	if err := s.Seed(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenArchive connects to dsn and migrates the archive tables.
func OpenArchive(ctx context.Context, dsn string, opts ...storage.PoolOption) (*Archive, error) {
	db, err := storage.Open(dsn, opts...)
	if err != nil {
		return nil, err
	}
	a := storage.NewArchive(db)
	if err := a.Migrate(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// WriteReport writes a results report as CSV or XLSX.
func WriteReport(w io.Writer, format ExportFormat, r Report) error {
	return export.Write(w, format, r)
}

// Message returns the text to show a user for err.
func Message(err error) string {
	return security.SanitizeMessage(core.Message(err))
}

// ValidateJobID checks a job identifier.
func ValidateJobID(id string) error {
	return security.ValidateJobID(id)
}
