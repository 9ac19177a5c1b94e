// Package core provides the domain models and interfaces for the compliscan client.
package core

import "encoding/json"

// JobStatus represents the current state of a screening job.
type JobStatus string

const (
	StatusQueued     JobStatus = "QUEUED"
	StatusProcessing JobStatus = "PROCESSING"
	StatusDone       JobStatus = "DONE"
	StatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition can happen.
// Unknown statuses are treated as still in progress.
func (s JobStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Summary holds aggregate risk counts, present once a job is DONE.
type Summary struct {
	Total     int  `json:"total"`
	High      int  `json:"high"`
	Medium    int  `json:"medium"`
	Low       int  `json:"low"`
	Truncated bool `json:"truncated,omitempty"`
}

// Job is a server-tracked unit of screening work.
type Job struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Summary   *Summary  `json:"summary,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt string    `json:"createdAt,omitempty"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts the summary either nested or as flat
// total/high/medium/low fields, as the recent jobs listing sends it.
func (j *Job) UnmarshalJSON(b []byte) error {
	type plain Job
	var aux struct {
		plain
		Total  *int `json:"total"`
		High   *int `json:"high"`
		Medium *int `json:"medium"`
		Low    *int `json:"low"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*j = Job(aux.plain)
	if j.Summary == nil && (aux.Total != nil || aux.High != nil || aux.Medium != nil || aux.Low != nil) {
		j.Summary = &Summary{
			Total:  deref(aux.Total),
			High:   deref(aux.High),
			Medium: deref(aux.Medium),
			Low:    deref(aux.Low),
		}
	}
	return nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Clone returns a deep copy so snapshots handed to callers cannot be mutated.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Summary != nil {
		s := *j.Summary
		c.Summary = &s
	}
	return &c
}

// ResultItem is one screened record's outcome within a job.
type ResultItem struct {
	JobID       string   `json:"jobId"`
	RecordID    string   `json:"recordId"`
	Name        string   `json:"name"`
	Country     string   `json:"country,omitempty"`
	MatchName   string   `json:"matchName,omitempty"`
	RiskScore   *float64 `json:"riskScore,omitempty"`
	ProcessedAt string   `json:"processedAt,omitempty"`
}

// Score returns the risk score, treating an absent score as 0.
func (r ResultItem) Score() float64 {
	if r.RiskScore == nil {
		return 0
	}
	return *r.RiskScore
}

// ResultPage is one page of results plus the continuation cursor.
// A nil or empty LastKey means there are no further pages.
type ResultPage struct {
	Items   []ResultItem `json:"items"`
	LastKey *string      `json:"lastKey,omitempty"`
}

// Cursor returns the continuation cursor, or "" when the chain has ended.
func (p *ResultPage) Cursor() string {
	if p == nil || p.LastKey == nil {
		return ""
	}
	return *p.LastKey
}

// JobPage is one page of the recent jobs listing.
type JobPage struct {
	Items   []Job   `json:"items"`
	LastKey *string `json:"lastKey,omitempty"`
}

// Cursor returns the continuation cursor, or "" when the chain has ended.
func (p *JobPage) Cursor() string {
	if p == nil || p.LastKey == nil {
		return ""
	}
	return *p.LastKey
}

// MatchList names the list an entity search hit came from.
type MatchList string

const (
	ListOFAC  MatchList = "OFAC"
	ListPEP   MatchList = "PEP"
	ListOther MatchList = "Other"
)

// SearchQuery is a single-entity screening request.
type SearchQuery struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// MatchResult is one hit returned by an entity search.
type MatchResult struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	List        MatchList `json:"list"`
	RiskScore   float64   `json:"riskScore"`
	Country     string    `json:"country,omitempty"`
	LastUpdated string    `json:"lastUpdated,omitempty"`
}

// SearchResponse wraps entity search hits.
type SearchResponse struct {
	Matches []MatchResult `json:"matches"`
}

// User identifies the signed-in account.
type User struct {
	Username string   `json:"username"`
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// PresignedUpload describes where to PUT an upload before confirming it.
type PresignedUpload struct {
	URL     string            `json:"url"`
	Key     string            `json:"key"`
	Headers map[string]string `json:"headers,omitempty"`
}

// UploadReceipt is returned once an upload is confirmed and a job is created.
type UploadReceipt struct {
	JobID string `json:"jobId"`
}
