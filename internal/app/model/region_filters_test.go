package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionFilters_ApplyInsertsAndIncrements(t *testing.T) {
	var f RegionFilters

	f = f.Apply(FilterDelta{Year: 2020, Industry: "Retail", Sign: 1})
	f = f.Apply(FilterDelta{Year: 2020, Industry: "Food", Sign: 1})

	assert.Equal(t, []YearCount{{Year: 2020, Count: 2}}, f.Years)
	assert.Equal(t, []IndustryCount{{Industry: "Retail", Count: 1}, {Industry: "Food", Count: 1}}, f.Industries)
}

func TestRegionFilters_ApplyRemovesEntriesAtZero(t *testing.T) {
	f := RegionFilters{
		Years:      []YearCount{{Year: 2019, Count: 1}, {Year: 2020, Count: 3}},
		Industries: []IndustryCount{{Industry: "Retail", Count: 1}},
	}

	out := f.Apply(FilterDelta{Year: 2019, Industry: "Retail", Sign: -1})

	assert.Equal(t, []YearCount{{Year: 2020, Count: 3}}, out.Years)
	assert.Empty(t, out.Industries)
	// receiver untouched
	assert.Len(t, f.Years, 2)
	assert.Len(t, f.Industries, 1)
}

func TestRegionFilters_DecrementOfMissingEntryIsNoop(t *testing.T) {
	f := RegionFilters{Years: []YearCount{{Year: 2020, Count: 1}}}

	out := f.Apply(FilterDelta{Year: 1999, Industry: "Mining", Sign: -1})

	assert.Equal(t, []YearCount{{Year: 2020, Count: 1}}, out.Years)
	assert.Empty(t, out.Industries)
}

func TestRegionFilters_UpdateIsFourSingleEntryDeltas(t *testing.T) {
	f := RegionFilters{}.Apply(FilterDelta{Year: 2020, Industry: "Retail", Sign: 1})
	old := Business{YearAdded: 2020, Industry: "Retail"}
	updated := Business{YearAdded: 2021, Industry: "Retail"}

	out := f.Apply(updated.FilterDelta(1), old.FilterDelta(-1))

	assert.Equal(t, []YearCount{{Year: 2021, Count: 1}}, out.Years)
	assert.Equal(t, []IndustryCount{{Industry: "Retail", Count: 1}}, out.Industries)
}

func TestRegionFilters_IgnoresEmptyFacets(t *testing.T) {
	out := RegionFilters{}.Apply(FilterDelta{Year: 0, Industry: "", Sign: 1})
	assert.Empty(t, out.Years)
	assert.Empty(t, out.Industries)
}

func TestRegionFilters_ScanValueRoundTrip(t *testing.T) {
	f := RegionFilters{
		Years:      []YearCount{{Year: 2020, Count: 2}},
		Industries: []IndustryCount{{Industry: "Retail", Count: 2}},
	}

	v, err := f.Value()
	require.NoError(t, err)

	var fromString RegionFilters
	require.NoError(t, fromString.Scan(v))
	assert.Equal(t, f, fromString)

	var fromBytes RegionFilters
	require.NoError(t, fromBytes.Scan([]byte(v.(string))))
	assert.Equal(t, f, fromBytes)

	var fromNil RegionFilters
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil.Years)

	assert.Error(t, fromNil.Scan(42))
}

func TestRegionFilters_MarshalsEmptyAsArrays(t *testing.T) {
	b, err := json.Marshal(RegionFilters{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"years":[],"industries":[]}`, string(b))
}

func TestFiltersFromBusinesses(t *testing.T) {
	businesses := []Business{
		{YearAdded: 2021, Industry: "Retail"},
		{YearAdded: 2020, Industry: "Food"},
		{YearAdded: 2021, Industry: "Food"},
	}

	f := FiltersFromBusinesses(businesses)

	assert.Equal(t, []YearCount{{Year: 2020, Count: 1}, {Year: 2021, Count: 2}}, f.Years)
	assert.Equal(t, []IndustryCount{{Industry: "Food", Count: 2}, {Industry: "Retail", Count: 1}}, f.Industries)
}

func TestRegionFilters_Equal(t *testing.T) {
	a := RegionFilters{
		Years:      []YearCount{{Year: 2020, Count: 1}, {Year: 2021, Count: 2}},
		Industries: []IndustryCount{{Industry: "Retail", Count: 3}},
	}
	b := RegionFilters{
		Years:      []YearCount{{Year: 2021, Count: 2}, {Year: 2020, Count: 1}},
		Industries: []IndustryCount{{Industry: "Retail", Count: 3}},
	}
	assert.True(t, a.Equal(b))

	b.Industries[0].Count = 2
	assert.False(t, a.Equal(b))
}
