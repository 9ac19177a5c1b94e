package results

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdziat/compliscan/pkg/core"
)

func TestBandOf_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Band
	}{
		{100, BandHigh},
		{80, BandHigh},
		{79, BandMedium},
		{79.9, BandMedium},
		{50, BandMedium},
		{49, BandLow},
		{0, BandLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandOf(tt.score), "score %v", tt.score)
	}
}

func TestParseBandAndSortKey(t *testing.T) {
	b, err := ParseBand(" HIGH ")
	assert.NoError(t, err)
	assert.Equal(t, BandHigh, b)

	b, err = ParseBand("")
	assert.NoError(t, err)
	assert.Equal(t, BandAll, b)

	_, err = ParseBand("critical")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	k, err := ParseSortKey("riskscore")
	assert.NoError(t, err)
	assert.Equal(t, SortRiskScore, k)

	_, err = ParseSortKey("score")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func sample() []core.ResultItem {
	return []core.ResultItem{
		{RecordID: "r1", Name: "bravo", Country: "US", RiskScore: ptr(90.0), ProcessedAt: "2024-01-02T00:00:00Z"},
		{RecordID: "r2", Name: "Alpha", Country: "de", RiskScore: ptr(60.0), ProcessedAt: "2024-01-01T00:00:00Z"},
		{RecordID: "r3", Name: "charlie", Country: "us ", RiskScore: nil},
		{RecordID: "r4", Name: "delta", Country: "FR", RiskScore: ptr(10.0), ProcessedAt: "not a date"},
	}
}

func TestView_FilterByBand(t *testing.T) {
	items := sample()

	assert.Equal(t, []string{"r1"}, recordIDs(View{Band: BandHigh}.Apply(items)))
	assert.Equal(t, []string{"r2"}, recordIDs(View{Band: BandMedium}.Apply(items)))
	assert.Equal(t, []string{"r3", "r4"}, recordIDs(View{Band: BandLow}.Apply(items)))
	assert.Len(t, View{Band: BandAll}.Apply(items), 4)
}

func TestView_FilterByCountry(t *testing.T) {
	items := sample()

	assert.Equal(t, []string{"r1", "r3"}, recordIDs(View{Country: "  Us "}.Apply(items)))
	assert.Len(t, View{Country: "   "}.Apply(items), 4)
	assert.Empty(t, View{Country: "U"}.Apply(items))
}

func TestView_SortStrings(t *testing.T) {
	items := sample()

	got := View{SortKey: SortName, SortDir: Asc}.Apply(items)
	assert.Equal(t, []string{"r2", "r1", "r3", "r4"}, recordIDs(got))

	got = View{SortKey: SortName, SortDir: Desc}.Apply(items)
	assert.Equal(t, []string{"r4", "r3", "r1", "r2"}, recordIDs(got))
}

func TestView_SortRiskScoreAbsentLowest(t *testing.T) {
	got := View{SortKey: SortRiskScore, SortDir: Asc}.Apply(sample())
	assert.Equal(t, []string{"r3", "r4", "r2", "r1"}, recordIDs(got))

	got = DefaultView().Apply(sample())
	assert.Equal(t, []string{"r1", "r2", "r4", "r3"}, recordIDs(got))
}

func TestView_SortProcessedAt(t *testing.T) {
	got := View{SortKey: SortProcessedAt, SortDir: Asc}.Apply(sample())
	// r3 (absent) and r4 (unparseable) both sort as 0 and keep their order.
	assert.Equal(t, []string{"r3", "r4", "r2", "r1"}, recordIDs(got))
}

func TestView_StableTies(t *testing.T) {
	items := []core.ResultItem{
		{RecordID: "a", Country: "US"},
		{RecordID: "b", Country: "us"},
		{RecordID: "c", Country: "DE"},
		{RecordID: "d", Country: "US"},
	}

	assert.Equal(t, []string{"c", "a", "b", "d"}, recordIDs(View{SortKey: SortCountry, SortDir: Asc}.Apply(items)))
	assert.Equal(t, []string{"a", "b", "d", "c"}, recordIDs(View{SortKey: SortCountry, SortDir: Desc}.Apply(items)))
}

func TestView_ApplyDoesNotMutate(t *testing.T) {
	items := sample()
	before := recordIDs(items)

	filtered := View{Band: BandHigh, SortKey: SortName, SortDir: Desc}.Apply(items)
	assert.Len(t, filtered, 1)
	assert.Equal(t, before, recordIDs(items))

	// Reverting the filter yields the original elements.
	reverted := View{Band: BandAll}.Apply(items)
	assert.ElementsMatch(t, items, reverted)
}

func TestView_SortIdempotent(t *testing.T) {
	v := View{SortKey: SortRiskScore, SortDir: Desc}
	once := v.Apply(sample())
	twice := v.Apply(once)
	assert.Equal(t, once, twice)
}

func TestView_Toggle(t *testing.T) {
	v := DefaultView()

	v = v.Toggle(SortRiskScore)
	assert.Equal(t, Asc, v.SortDir)

	v = v.Toggle(SortRiskScore)
	assert.Equal(t, Desc, v.SortDir)

	v = v.Toggle(SortName)
	assert.Equal(t, SortName, v.SortKey)
	assert.Equal(t, Asc, v.SortDir)
}

func TestCountBands(t *testing.T) {
	items := []core.ResultItem{
		{RecordID: "a", RiskScore: ptr(90.0)},
		{RecordID: "b", RiskScore: ptr(60.0)},
		{RecordID: "c", RiskScore: ptr(10.0)},
	}

	c := CountBands(items)
	assert.Equal(t, BandCounts{High: 1, Medium: 1, Low: 1}, c)
	assert.Equal(t, 3, c.Total())

	assert.Equal(t, BandCounts{Low: 1}, CountBands([]core.ResultItem{{RecordID: "x"}}))
}
