package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/results"
	"github.com/jdziat/compliscan/pkg/security"
)

// ErrNotArchived is returned when a job has no archived snapshot.
var ErrNotArchived = errors.New("compliscan: job not archived")

var (
	_ core.Backend          = (*Archive)(nil)
	_ core.RecentJobsLister = (*Archive)(nil)
)

// Archive stores job snapshots and result items using GORM.
type Archive struct {
	db     *gorm.DB
	logger *slog.Logger
	retry  RetryConfig

	qmu   sync.Mutex
	queue []pageWrite
	idle  chan struct{} // non-nil while the writer goroutine runs
}

type pageWrite struct {
	ctx   context.Context
	jobID string
	items []core.ResultItem
}

// NewArchive creates an archive on db. Call Migrate before first use.
func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db, logger: slog.Default(), retry: DefaultRetryConfig()}
}

// SetRetry sets how PageHook and Record retry failed writes.
func (a *Archive) SetRetry(cfg RetryConfig) {
	a.retry = cfg
}

// SetLogger sets the logger used for background recording failures.
func (a *Archive) SetLogger(l *slog.Logger) {
	if l != nil {
		a.logger = l
	}
}

// Migrate creates the archive tables.
func (a *Archive) Migrate(ctx context.Context) error {
	return a.db.WithContext(ctx).AutoMigrate(&JobRecord{}, &ResultRecord{})
}

// SaveJob inserts or replaces the snapshot of a job.
func (a *Archive) SaveJob(ctx context.Context, job *core.Job) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", core.ErrInvalidArgument)
	}
	if err := security.ValidateJobID(job.JobID); err != nil {
		return err
	}
	rec := jobRecord(job, time.Now())
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// SaveResults appends items after the job's archived results. Items already
// archived are refreshed in place and keep their original position.
func (a *Archive) SaveResults(ctx context.Context, jobID string, items []core.ResultItem) error {
	if err := security.ValidateJobID(jobID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos sql.NullInt64
		if err := tx.Model(&ResultRecord{}).
			Where("job_id = ?", jobID).
			Select("MAX(position)").
			Row().
			Scan(&maxPos); err != nil {
			return err
		}
		next := 0
		if maxPos.Valid {
			next = int(maxPos.Int64) + 1
		}

		recs := make([]ResultRecord, len(items))
		for i, it := range items {
			recs[i] = ResultRecord{
				JobID:       jobID,
				RecordID:    it.RecordID,
				Position:    next + i,
				Name:        it.Name,
				Country:     it.Country,
				MatchName:   it.MatchName,
				RiskScore:   it.RiskScore,
				ProcessedAt: it.ProcessedAt,
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "country", "match_name", "risk_score", "processed_at"}),
		}).Create(&recs).Error
	})
}

// GetJob returns the archived snapshot of a job.
func (a *Archive) GetJob(ctx context.Context, jobID string) (*core.Job, error) {
	var rec JobRecord
	err := a.db.WithContext(ctx).Where("job_id = ?", jobID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotArchived
	}
	if err != nil {
		return nil, err
	}
	return rec.toJob(), nil
}

// GetResults pages through archived results in their original order.
// The cursor is the position of the last returned item.
func (a *Archive) GetResults(ctx context.Context, jobID string, limit int, lastKey string) (*core.ResultPage, error) {
	after := -1
	if lastKey != "" {
		n, err := strconv.Atoi(lastKey)
		if err != nil {
			return nil, fmt.Errorf("%w: bad archive cursor %q", core.ErrInvalidArgument, lastKey)
		}
		after = n
	}
	limit = security.ClampPageSize(limit)

	var recs []ResultRecord
	err := a.db.WithContext(ctx).
		Where("job_id = ? AND position > ?", jobID, after).
		Order("position ASC").
		Limit(limit + 1).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	page := &core.ResultPage{Items: make([]core.ResultItem, 0, min(len(recs), limit))}
	for i := range recs {
		if i == limit {
			key := strconv.Itoa(recs[i-1].Position)
			page.LastKey = &key
			break
		}
		page.Items = append(page.Items, recs[i].toItem())
	}
	return page, nil
}

// GetRecentJobs lists archived jobs, most recently observed first.
func (a *Archive) GetRecentJobs(ctx context.Context, limit int, lastKey string) (*core.JobPage, error) {
	offset := 0
	if lastKey != "" {
		n, err := strconv.Atoi(lastKey)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad archive cursor %q", core.ErrInvalidArgument, lastKey)
		}
		offset = n
	}
	if limit <= 0 {
		limit = security.DefaultRecentLimit
	}
	limit = security.ClampPageSize(limit)

	var recs []JobRecord
	err := a.db.WithContext(ctx).
		Order("observed_at DESC, job_id ASC").
		Offset(offset).
		Limit(limit + 1).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	page := &core.JobPage{Items: make([]core.Job, 0, min(len(recs), limit))}
	for i := range recs {
		if i == limit {
			key := strconv.Itoa(offset + limit)
			page.LastKey = &key
			break
		}
		page.Items = append(page.Items, *recs[i].toJob())
	}
	return page, nil
}

// DeleteJob removes a job and its results.
func (a *Archive) DeleteJob(ctx context.Context, jobID string) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&ResultRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("job_id = ?", jobID).Delete(&JobRecord{}).Error
	})
}

// PageHook returns an accumulator hook that archives every loaded page.
// Pages are queued and written in order by a background goroutine, so the
// hook never blocks the caller. Use Flush to wait for queued pages.
func (a *Archive) PageHook() results.PageHook {
	return func(ctx context.Context, jobID string, page *core.ResultPage) {
		if page == nil || len(page.Items) == 0 {
			return
		}
		a.enqueue(pageWrite{
			ctx:   context.WithoutCancel(ctx),
			jobID: jobID,
			items: append([]core.ResultItem(nil), page.Items...),
		})
	}
}

// Flush blocks until every page queued by PageHook has been written or ctx
// is done.
func (a *Archive) Flush(ctx context.Context) error {
	a.qmu.Lock()
	idle := a.idle
	a.qmu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Archive) enqueue(w pageWrite) {
	a.qmu.Lock()
	defer a.qmu.Unlock()
	a.queue = append(a.queue, w)
	if a.idle == nil {
		a.idle = make(chan struct{})
		go a.drain(a.idle)
	}
}

func (a *Archive) drain(idle chan struct{}) {
	for {
		a.qmu.Lock()
		if len(a.queue) == 0 {
			a.idle = nil
			a.qmu.Unlock()
			close(idle)
			return
		}
		w := a.queue[0]
		a.queue = a.queue[1:]
		a.qmu.Unlock()

		err := retryWithBackoff(w.ctx, a.retry, func() error {
			return a.SaveResults(w.ctx, w.jobID, w.items)
		})
		if err != nil {
			a.logger.Error("failed to archive results page", "job_id", w.jobID, "error", err)
		}
	}
}

// Record archives job snapshots from a poller event stream until ctx is done
// or the stream settles.
func (a *Archive) Record(ctx context.Context, events <-chan core.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch ev := e.(type) {
			case *core.JobUpdated:
				a.recordJob(ctx, ev.Job)
			case *core.JobSettled:
				if ev.Job != nil {
					a.recordJob(ctx, ev.Job)
				}
				return
			}
		}
	}
}

func (a *Archive) recordJob(ctx context.Context, job *core.Job) {
	err := retryWithBackoff(ctx, a.retry, func() error {
		return a.SaveJob(ctx, job)
	})
	if err != nil {
		a.logger.Error("failed to archive job", "job_id", job.JobID, "error", err)
	}
}
