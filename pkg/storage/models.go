package storage

import (
	"time"

	"github.com/jdziat/compliscan/pkg/core"
)

// JobRecord is the archived form of a job snapshot.
type JobRecord struct {
	JobID      string         `gorm:"primaryKey;size:255"`
	Status     core.JobStatus `gorm:"index;size:32;not null"`
	HasSummary bool
	Total      int
	High       int
	Medium     int
	Low        int
	Truncated  bool
	Error      string `gorm:"type:text"`
	CreatedAt  string `gorm:"size:64"`
	UpdatedAt  string `gorm:"size:64"`
	ObservedAt time.Time `gorm:"index"`
}

// TableName overrides the default table name.
func (JobRecord) TableName() string { return "archived_jobs" }

// ResultRecord is one archived result item. Position preserves server order.
type ResultRecord struct {
	JobID       string `gorm:"primaryKey;size:255"`
	RecordID    string `gorm:"primaryKey;size:255"`
	Position    int    `gorm:"index;not null"`
	Name        string
	Country     string `gorm:"size:64"`
	MatchName   string
	RiskScore   *float64
	ProcessedAt string `gorm:"size:64"`
}

// TableName overrides the default table name.
func (ResultRecord) TableName() string { return "archived_results" }

func jobRecord(j *core.Job, observed time.Time) *JobRecord {
	r := &JobRecord{
		JobID:      j.JobID,
		Status:     j.Status,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
		ObservedAt: observed,
	}
	if j.Summary != nil {
		r.HasSummary = true
		r.Total = j.Summary.Total
		r.High = j.Summary.High
		r.Medium = j.Summary.Medium
		r.Low = j.Summary.Low
		r.Truncated = j.Summary.Truncated
	}
	return r
}

func (r *JobRecord) toJob() *core.Job {
	j := &core.Job{
		JobID:     r.JobID,
		Status:    r.Status,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.HasSummary {
		j.Summary = &core.Summary{
			Total:     r.Total,
			High:      r.High,
			Medium:    r.Medium,
			Low:       r.Low,
			Truncated: r.Truncated,
		}
	}
	return j
}

func (r *ResultRecord) toItem() core.ResultItem {
	return core.ResultItem{
		JobID:       r.JobID,
		RecordID:    r.RecordID,
		Name:        r.Name,
		Country:     r.Country,
		MatchName:   r.MatchName,
		RiskScore:   r.RiskScore,
		ProcessedAt: r.ProcessedAt,
	}
}
