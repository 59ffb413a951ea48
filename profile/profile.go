package profile

import (
	"math"
	"sort"
	"strings"

	"github.com/hupe1980/lakescan/tabular"
)

// NumericSummary holds descriptive statistics of a numeric column.
type NumericSummary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
}

// ColumnStat describes one column of a sample.
type ColumnStat struct {
	Name        string          `json:"name"`
	Type        ColumnType      `json:"type"`
	NumericKind NumericKind     `json:"numeric_kind,omitempty"`
	UniqueCount int             `json:"unique_count"`
	NullCount   int             `json:"null_count"`
	Samples     []string        `json:"samples"`
	Numeric     *NumericSummary `json:"numeric,omitempty"`
}

// Quality holds the four sample quality scores, each in [0, 1].
type Quality struct {
	// Completeness is the share of non-null cells in the row × column grid.
	Completeness float64 `json:"completeness"`
	// Consistency is the share of non-null cells that match their column's
	// inferred type.
	Consistency float64 `json:"consistency"`
	// Uniqueness is the share of distinct rows.
	Uniqueness float64 `json:"uniqueness"`
	// Validity is the share of non-empty cells that are not placeholders.
	Validity float64 `json:"validity"`
}

// Analyze profiles rows. All rows are expected to share one header; rows of
// another header are ignored. Empty input yields zero values.
func Analyze(rows []tabular.Row) ([]ColumnStat, Quality) {
	if len(rows) == 0 || rows[0].Header() == nil {
		return nil, Quality{}
	}
	header := rows[0].Header()
	names := header.Names()

	cols := make([][]string, len(names))
	var kept []tabular.Row
	for _, r := range rows {
		if r.Header() != header {
			continue
		}
		kept = append(kept, r)
		for i, v := range r.Values() {
			cols[i] = append(cols[i], v)
		}
	}

	stats := make([]ColumnStat, len(names))
	var cells, filled, typed, nonEmpty, valid int
	for i, name := range names {
		st, c := analyzeColumn(name, cols[i])
		stats[i] = st
		cells += len(cols[i])
		filled += len(cols[i]) - st.NullCount
		typed += c.typed
		nonEmpty += c.nonEmpty
		valid += c.valid
	}

	q := Quality{
		Completeness: ratio(filled, cells),
		Consistency:  ratio(typed, filled),
		Uniqueness:   ratio(distinctRows(kept), len(kept)),
		Validity:     ratio(valid, nonEmpty),
	}
	return stats, q
}

type cellCounts struct {
	typed    int
	nonEmpty int
	valid    int
}

func analyzeColumn(name string, values []string) (ColumnStat, cellCounts) {
	st := ColumnStat{Name: name, Samples: []string{}}
	var c cellCounts

	var nonNull []string
	unique := make(map[string]struct{})
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			c.nonEmpty++
			if !IsPlaceholder(v) {
				c.valid++
			}
		}
		if IsNull(v) {
			st.NullCount++
			continue
		}
		nonNull = append(nonNull, v)
		if _, seen := unique[v]; !seen {
			unique[v] = struct{}{}
			if len(st.Samples) < maxSamples {
				st.Samples = append(st.Samples, v)
			}
		}
	}
	st.UniqueCount = len(unique)

	var nums []float64
	allInt := true
	dates, bools := 0, 0
	for _, v := range nonNull {
		if f, ok := ParseNumber(v); ok {
			nums = append(nums, f)
			if !integerRe.MatchString(strings.ReplaceAll(strings.TrimSpace(v), ",", "")) {
				allInt = false
			}
		}
		if _, ok := ParseDate(v); ok {
			dates++
		}
		if IsBoolean(v) {
			bools++
		}
	}

	n := len(nonNull)
	switch {
	case n == 0:
		st.Type = Text
	case float64(len(nums))/float64(n) > typeThreshold:
		st.Type = Numeric
		st.NumericKind = Float
		if allInt {
			st.NumericKind = Integer
		}
		st.Numeric = summarize(nums)
		c.typed = len(nums)
	case float64(dates)/float64(n) > typeThreshold:
		st.Type = Datetime
		c.typed = dates
	case float64(bools)/float64(n) > 0.5:
		st.Type = Boolean
		c.typed = bools
	case float64(st.UniqueCount)/float64(n) < categoricalThreshold:
		st.Type = Categorical
		c.typed = n
	default:
		st.Type = Text
		c.typed = n
	}
	return st, c
}

func summarize(nums []float64) *NumericSummary {
	if len(nums) == 0 {
		return nil
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	var sum float64
	for _, f := range sorted {
		sum += f
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, f := range sorted {
		d := f - mean
		sq += d * d
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return &NumericSummary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(sq / float64(len(sorted))),
	}
}

func distinctRows(rows []tabular.Row) int {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[strings.Join(r.Values(), "\x1f")] = struct{}{}
	}
	return len(seen)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
