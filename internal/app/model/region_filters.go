package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// YearCount counts businesses added in a year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// IndustryCount counts businesses in an industry.
type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int    `json:"count"`
}

// RegionFilters is the per-region facet summary. Every count is positive;
// entries that drop to zero are removed.
type RegionFilters struct {
	Years      []YearCount     `json:"years"`
	Industries []IndustryCount `json:"industries"`
}

// FilterDelta adjusts the year and industry facets by Sign. A zero year or an
// empty industry does not contribute.
type FilterDelta struct {
	Year     int
	Industry string
	Sign     int
}

// Value implements driver.Valuer
func (f RegionFilters) Value() (driver.Value, error) {
	b, err := json.Marshal(f.normalized())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (f *RegionFilters) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*f = RegionFilters{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to scan RegionFilters from %T", value)
	}
	if len(raw) == 0 {
		*f = RegionFilters{}
		return nil
	}
	var out RegionFilters
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*f = out.normalized()
	return nil
}

// MarshalJSON keeps empty facets as [] rather than null.
func (f RegionFilters) MarshalJSON() ([]byte, error) {
	type plain RegionFilters
	return json.Marshal(plain(f.normalized()))
}

func (f RegionFilters) normalized() RegionFilters {
	if f.Years == nil {
		f.Years = []YearCount{}
	}
	if f.Industries == nil {
		f.Industries = []IndustryCount{}
	}
	return f
}

// Apply returns a copy of f with each delta applied in order. The receiver is
// not modified.
func (f RegionFilters) Apply(deltas ...FilterDelta) RegionFilters {
	out := RegionFilters{
		Years:      append([]YearCount{}, f.Years...),
		Industries: append([]IndustryCount{}, f.Industries...),
	}
	for _, d := range deltas {
		if d.Sign == 0 {
			continue
		}
		if d.Year != 0 {
			out.Years = adjustYear(out.Years, d.Year, d.Sign)
		}
		if d.Industry != "" {
			out.Industries = adjustIndustry(out.Industries, d.Industry, d.Sign)
		}
	}
	return out
}

func adjustYear(entries []YearCount, year, sign int) []YearCount {
	for i := range entries {
		if entries[i].Year != year {
			continue
		}
		entries[i].Count += sign
		if entries[i].Count <= 0 {
			return append(entries[:i], entries[i+1:]...)
		}
		return entries
	}
	if sign > 0 {
		entries = append(entries, YearCount{Year: year, Count: sign})
	}
	return entries
}

func adjustIndustry(entries []IndustryCount, industry string, sign int) []IndustryCount {
	for i := range entries {
		if entries[i].Industry != industry {
			continue
		}
		entries[i].Count += sign
		if entries[i].Count <= 0 {
			return append(entries[:i], entries[i+1:]...)
		}
		return entries
	}
	if sign > 0 {
		entries = append(entries, IndustryCount{Industry: industry, Count: sign})
	}
	return entries
}

// FiltersFromBusinesses recomputes the summary from scratch, sorted by year
// and industry.
func FiltersFromBusinesses(businesses []Business) RegionFilters {
	var f RegionFilters
	for _, b := range businesses {
		f = f.Apply(b.FilterDelta(1))
	}
	sort.Slice(f.Years, func(i, j int) bool { return f.Years[i].Year < f.Years[j].Year })
	sort.Slice(f.Industries, func(i, j int) bool { return f.Industries[i].Industry < f.Industries[j].Industry })
	return f.normalized()
}

// Equal reports whether f and other hold the same counts, ignoring order.
func (f RegionFilters) Equal(other RegionFilters) bool {
	if len(f.Years) != len(other.Years) || len(f.Industries) != len(other.Industries) {
		return false
	}
	years := make(map[int]int, len(f.Years))
	for _, y := range f.Years {
		years[y.Year] = y.Count
	}
	for _, y := range other.Years {
		if years[y.Year] != y.Count {
			return false
		}
	}
	industries := make(map[string]int, len(f.Industries))
	for _, i := range f.Industries {
		industries[i.Industry] = i.Count
	}
	for _, i := range other.Industries {
		if industries[i.Industry] != i.Count {
			return false
		}
	}
	return true
}
