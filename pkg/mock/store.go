package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/results"
	"github.com/jdziat/compliscan/pkg/security"
)

var (
	_ core.Backend          = (*Store)(nil)
	_ core.RecentJobsLister = (*Store)(nil)
)

// Record is one row submitted for screening.
type Record struct {
	RecordID string
	Name     string
	Country  string
}

type entry struct {
	id      string
	created time.Time
	settled bool
	failure string
	items   []core.ResultItem
}

// Store is an in-memory backend.
type Store struct {
	phase   time.Duration
	latency time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.RWMutex
	jobs      map[string]*entry
	watchlist []core.MatchResult
	objects   map[string][]byte
}

// NewStore creates an empty store with the default watchlist.
func NewStore(opts ...Option) *Store {
	s := &Store{
		phase:     DefaultPhase,
		now:       time.Now,
		logger:    slog.Default(),
		jobs:      make(map[string]*entry),
		watchlist: defaultWatchlist(),
		objects:   make(map[string][]byte),
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// AddJob stores an already settled job with the given results.
// A non-empty failure makes the job FAILED with that error.
func (s *Store) AddJob(jobID string, items []core.ResultItem, failure string) error {
	if err := security.ValidateJobID(jobID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; ok {
		return fmt.Errorf("%w: job %q already exists", core.ErrInvalidArgument, jobID)
	}
	stored := make([]core.ResultItem, len(items))
	for i, it := range items {
		it.JobID = jobID
		stored[i] = it
	}
	s.jobs[jobID] = &entry{
		id:      jobID,
		created: s.now(),
		settled: true,
		failure: failure,
		items:   stored,
	}
	return nil
}

// Submit creates a job for records. It moves through QUEUED and PROCESSING
// before its results become visible.
func (s *Store) Submit(records []Record) string {
	id := uuid.NewString()
	now := s.now()
	items := make([]core.ResultItem, 0, len(records))
	for i, r := range records {
		recordID := r.RecordID
		if recordID == "" {
			recordID = fmt.Sprintf("%s-%04d", id[:8], i+1)
		}
		score, match := s.score(r.Name)
		items = append(items, core.ResultItem{
			JobID:       id,
			RecordID:    recordID,
			Name:        r.Name,
			Country:     r.Country,
			MatchName:   match,
			RiskScore:   &score,
			ProcessedAt: now.Add(2 * s.phase).UTC().Format(time.RFC3339),
		})
	}

	s.mu.Lock()
	s.jobs[id] = &entry{id: id, created: now, items: items}
	s.mu.Unlock()

	s.logger.Info("mock job submitted", "job_id", id, "records", len(records))
	return id
}

// SubmitFailing creates a job that fails with message once it has been processed.
func (s *Store) SubmitFailing(message string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = &entry{id: id, created: s.now(), failure: message}
	s.mu.Unlock()
	return id
}

// GetJob returns the job's current snapshot.
func (s *Store) GetJob(ctx context.Context, jobID string) (*core.Job, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound()
	}
	return s.snapshot(e), nil
}

// GetResults returns one page of a job's results in record order.
// Results of a job that is not DONE are empty.
func (s *Store) GetResults(ctx context.Context, jobID string, limit int, lastKey string) (*core.ResultPage, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[jobID]
	if !ok {
		return nil, notFound()
	}
	if s.status(e) != core.StatusDone {
		return &core.ResultPage{Items: []core.ResultItem{}}, nil
	}

	start := 0
	if lastKey != "" {
		k, err := decodeKey(lastKey)
		if err != nil {
			return nil, err
		}
		if k.JobID != jobID {
			return nil, invalidKey(fmt.Errorf("key belongs to another job"))
		}
		idx := slices.IndexFunc(e.items, func(it core.ResultItem) bool { return it.RecordID == k.RecordID })
		if idx < 0 {
			return nil, invalidKey(fmt.Errorf("unknown record"))
		}
		start = idx + 1
	}

	end := min(start+security.ClampPageSize(limit), len(e.items))
	page := &core.ResultPage{Items: slices.Clone(e.items[start:end])}
	if end < len(e.items) {
		key := encodeKey(pageKey{JobID: jobID, RecordID: e.items[end-1].RecordID})
		page.LastKey = &key
	}
	return page, nil
}

// GetRecentJobs lists jobs newest first.
func (s *Store) GetRecentJobs(ctx context.Context, limit int, lastKey string) (*core.JobPage, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		all = append(all, e)
	}
	slices.SortFunc(all, func(a, b *entry) int {
		if c := b.created.Compare(a.created); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})

	start := 0
	if lastKey != "" {
		k, err := decodeKey(lastKey)
		if err != nil {
			return nil, err
		}
		idx := slices.IndexFunc(all, func(e *entry) bool { return e.id == k.JobID })
		if idx < 0 {
			return nil, invalidKey(fmt.Errorf("unknown job"))
		}
		start = idx + 1
	}
	if limit <= 0 {
		limit = security.DefaultRecentLimit
	}
	end := min(start+security.ClampPageSize(limit), len(all))

	page := &core.JobPage{Items: make([]core.Job, 0, end-start)}
	for _, e := range all[start:end] {
		page.Items = append(page.Items, *s.snapshot(e))
	}
	if end < len(all) {
		key := encodeKey(pageKey{JobID: all[end-1].id})
		page.LastKey = &key
	}
	return page, nil
}

// Search matches name against the watchlist by case-insensitive substring.
func (s *Store) Search(ctx context.Context, q core.SearchQuery) (*core.SearchResponse, error) {
	if strings.TrimSpace(q.Name) == "" {
		return nil, &core.HTTPError{Status: http.StatusBadRequest, Message: "name is required"}
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(q.Name))
	country := strings.TrimSpace(q.Country)

	out := &core.SearchResponse{Matches: []core.MatchResult{}}
	for _, m := range s.watchlist {
		if !strings.Contains(strings.ToLower(m.Name), needle) {
			continue
		}
		if country != "" && !strings.EqualFold(m.Country, country) {
			continue
		}
		out.Matches = append(out.Matches, m)
	}
	return out, nil
}

func (s *Store) snapshot(e *entry) *core.Job {
	job := &core.Job{
		JobID:     e.id,
		Status:    s.status(e),
		CreatedAt: e.created.UTC().Format(time.RFC3339),
		UpdatedAt: s.updated(e).UTC().Format(time.RFC3339),
	}
	switch job.Status {
	case core.StatusDone:
		counts := results.CountBands(e.items)
		job.Summary = &core.Summary{
			Total:  len(e.items),
			High:   counts.High,
			Medium: counts.Medium,
			Low:    counts.Low,
		}
	case core.StatusFailed:
		job.Error = e.failure
	}
	return job
}

func (s *Store) status(e *entry) core.JobStatus {
	if !e.settled {
		elapsed := s.now().Sub(e.created)
		switch {
		case elapsed < s.phase:
			return core.StatusQueued
		case elapsed < 2*s.phase:
			return core.StatusProcessing
		}
	}
	if e.failure != "" {
		return core.StatusFailed
	}
	return core.StatusDone
}

func (s *Store) updated(e *entry) time.Time {
	if e.settled {
		return e.created
	}
	switch s.status(e) {
	case core.StatusQueued:
		return e.created
	case core.StatusProcessing:
		return e.created.Add(s.phase)
	default:
		return e.created.Add(2 * s.phase)
	}
}

// score returns the best watchlist score for name, or a low deterministic
// score when nothing on the list matches.
func (s *Store) score(name string) (float64, string) {
	lower := strings.ToLower(strings.TrimSpace(name))
	best, match := -1.0, ""
	for _, m := range s.watchlist {
		listed := strings.ToLower(m.Name)
		if lower != "" && (strings.Contains(listed, lower) || strings.Contains(lower, listed)) && m.RiskScore > best {
			best, match = m.RiskScore, m.Name
		}
	}
	if best >= 0 {
		return best, match
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(lower))
	return float64(h.Sum32() % 40), ""
}

func (s *Store) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func notFound() error {
	return &core.HTTPError{Status: http.StatusNotFound, Message: "Job not found"}
}
