package mock

import (
	"fmt"
	"time"

	"github.com/jdziat/compliscan/pkg/core"
)

// Seeded job identifiers.
const (
	DemoJobID   = "job-1"
	LargeJobID  = "job-large"
	FailedJobID = "job-failed"
)

func defaultWatchlist() []core.MatchResult {
	updated := "2025-01-15"
	return []core.MatchResult{
		{ID: "ofac-001", Name: "Ivan Petrov", List: core.ListOFAC, RiskScore: 95, Country: "RU", LastUpdated: updated},
		{ID: "ofac-002", Name: "Global Trade Holdings", List: core.ListOFAC, RiskScore: 88, Country: "IR", LastUpdated: updated},
		{ID: "pep-001", Name: "Maria Gonzalez", List: core.ListPEP, RiskScore: 72, Country: "VE", LastUpdated: updated},
		{ID: "pep-002", Name: "Ahmed Karimi", List: core.ListPEP, RiskScore: 64, Country: "AE", LastUpdated: updated},
		{ID: "oth-001", Name: "Northwind Shipping", List: core.ListOther, RiskScore: 55, Country: "PA", LastUpdated: updated},
	}
}

// Seed adds the demo jobs: a three-record DONE job with one record per risk
// band, a DONE job large enough to need several pages, and a FAILED job.
func (s *Store) Seed() error {
	score := func(v float64) *float64 { return &v }
	processed := s.now().UTC().Format(time.RFC3339)

	demo := []core.ResultItem{
		{RecordID: "r1", Name: "Ivan Petrov", Country: "RU", MatchName: "Ivan Petrov", RiskScore: score(90), ProcessedAt: processed},
		{RecordID: "r2", Name: "Maria Gonzales", Country: "VE", MatchName: "Maria Gonzalez", RiskScore: score(60), ProcessedAt: processed},
		{RecordID: "r3", Name: "Jane Smith", Country: "US", RiskScore: score(10), ProcessedAt: processed},
	}
	if err := s.AddJob(DemoJobID, demo, ""); err != nil {
		return err
	}

	large := make([]core.ResultItem, 0, 250)
	countries := []string{"US", "GB", "DE", "RU", "AE"}
	for i := range 250 {
		large = append(large, core.ResultItem{
			RecordID:    fmt.Sprintf("rec-%04d", i+1),
			Name:        fmt.Sprintf("Entity %d", i+1),
			Country:     countries[i%len(countries)],
			RiskScore:   score(float64((i * 37) % 100)),
			ProcessedAt: processed,
		})
	}
	if err := s.AddJob(LargeJobID, large, ""); err != nil {
		return err
	}

	return s.AddJob(FailedJobID, nil, "Missing required column: name")
}
