package results

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jdziat/compliscan/pkg/core"
)

// Band is a risk band filter.
type Band string

const (
	BandAll    Band = "all"
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Band thresholds. Each boundary belongs to the higher band.
const (
	HighThreshold   = 80
	MediumThreshold = 50
)

// BandOf returns the band for a score.
func BandOf(score float64) Band {
	switch {
	case score >= HighThreshold:
		return BandHigh
	case score >= MediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// ParseBand parses a band name; "" means all.
func ParseBand(s string) (Band, error) {
	switch b := Band(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BandAll:
		return BandAll, nil
	case BandHigh, BandMedium, BandLow:
		return b, nil
	default:
		return "", fmt.Errorf("%w: unknown risk band %q", core.ErrInvalidArgument, s)
	}
}

// SortKey is a result field the view can sort by.
type SortKey string

const (
	SortRecordID    SortKey = "recordId"
	SortName        SortKey = "name"
	SortCountry     SortKey = "country"
	SortMatchName   SortKey = "matchName"
	SortRiskScore   SortKey = "riskScore"
	SortProcessedAt SortKey = "processedAt"
)

var sortKeys = []SortKey{SortRecordID, SortName, SortCountry, SortMatchName, SortRiskScore, SortProcessedAt}

// ParseSortKey parses a sort key case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range sortKeys {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sort key %q", core.ErrInvalidArgument, s)
}

// SortDir is ascending or descending.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// View is a filter and sort selection over accumulated items.
type View struct {
	Band    Band
	Country string
	SortKey SortKey
	SortDir SortDir
}

// DefaultView shows every band, highest risk first.
func DefaultView() View {
	return View{Band: BandAll, SortKey: SortRiskScore, SortDir: Desc}
}

// Toggle returns the view after selecting key: the same key flips direction,
// a new key resets to ascending.
func (v View) Toggle(key SortKey) View {
	if v.SortKey == key {
		if v.SortDir == Desc {
			v.SortDir = Asc
		} else {
			v.SortDir = Desc
		}
		return v
	}
	v.SortKey = key
	v.SortDir = Asc
	return v
}

// Apply filters and stably sorts a copy of items. items is never modified.
// An empty SortKey keeps arrival order.
func (v View) Apply(items []core.ResultItem) []core.ResultItem {
	country := strings.TrimSpace(v.Country)
	out := make([]core.ResultItem, 0, len(items))
	for _, it := range items {
		if v.Band != "" && v.Band != BandAll && BandOf(it.Score()) != v.Band {
			continue
		}
		if country != "" && !strings.EqualFold(strings.TrimSpace(it.Country), country) {
			continue
		}
		out = append(out, it)
	}

	if v.SortKey == "" {
		return out
	}
	compare := comparator(v.SortKey)
	if v.SortDir == Desc {
		slices.SortStableFunc(out, func(a, b core.ResultItem) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(out, compare)
	}
	return out
}

func comparator(key SortKey) func(a, b core.ResultItem) int {
	switch key {
	case SortRiskScore:
		return func(a, b core.ResultItem) int { return cmp.Compare(sortScore(a), sortScore(b)) }
	case SortProcessedAt:
		return func(a, b core.ResultItem) int { return cmp.Compare(timestamp(a.ProcessedAt), timestamp(b.ProcessedAt)) }
	default:
		field := stringField(key)
		return func(a, b core.ResultItem) int {
			return strings.Compare(strings.ToLower(field(a)), strings.ToLower(field(b)))
		}
	}
}

func stringField(key SortKey) func(core.ResultItem) string {
	switch key {
	case SortName:
		return func(r core.ResultItem) string { return r.Name }
	case SortCountry:
		return func(r core.ResultItem) string { return r.Country }
	case SortMatchName:
		return func(r core.ResultItem) string { return r.MatchName }
	default:
		return func(r core.ResultItem) string { return r.RecordID }
	}
}

// sortScore places items without a score below every scored item.
func sortScore(r core.ResultItem) float64 {
	if r.RiskScore == nil {
		return -1
	}
	return *r.RiskScore
}

func timestamp(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// BandCounts holds the number of items per risk band.
type BandCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Total returns the number of counted items.
func (c BandCounts) Total() int {
	return c.High + c.Medium + c.Low
}

// CountBands counts items per band. An absent score counts as low.
func CountBands(items []core.ResultItem) BandCounts {
	var c BandCounts
	for _, it := range items {
		switch BandOf(it.Score()) {
		case BandHigh:
			c.High++
		case BandMedium:
			c.Medium++
		default:
			c.Low++
		}
	}
	return c
}
