package lakescan

import (
	"github.com/hupe1980/lakescan/filter"
	"github.com/hupe1980/lakescan/profile"
	"github.com/hupe1980/lakescan/sampling"
	"github.com/hupe1980/lakescan/scan"
	"github.com/hupe1980/lakescan/tabular"
)

// ScanSummary describes the reads behind a result.
type ScanSummary struct {
	SessionID      string `json:"session_id"`
	Windows        int    `json:"windows"`
	SkippedWindows int    `json:"skipped_windows"`
	BytesRead      int64  `json:"bytes_read"`
	BytesParsed    int64  `json:"bytes_parsed"`
	ObjectSize     int64  `json:"object_size"`
	RowsParsed     int    `json:"rows_parsed"`
	RowsDropped    int    `json:"rows_dropped"`
	CapReached     bool   `json:"cap_reached"`
	Complete       bool   `json:"complete"`
}

func summarize(res *scan.Result) ScanSummary {
	if res == nil {
		return ScanSummary{}
	}
	return ScanSummary{
		SessionID:      res.SessionID,
		Windows:        res.Windows,
		SkippedWindows: res.SkippedWindows,
		BytesRead:      res.BytesRead,
		BytesParsed:    res.ConsumedObjectBytes(),
		ObjectSize:     res.Ref.Size,
		RowsParsed:     res.Stats.Parsed,
		RowsDropped:    res.Stats.Dropped,
		CapReached:     res.CapReached,
		Complete:       res.Complete,
	}
}

// RelevantRow is a sample row ranked against the question.
type RelevantRow struct {
	Index int         `json:"index"`
	Score float32     `json:"score"`
	Row   tabular.Row `json:"row"`
}

// SampleResult is the outcome of GetIntelligentSample. It is never mutated
// after it is returned. A request that obtained no data yields a zero
// SampleResult.
type SampleResult struct {
	Dataset            string               `json:"dataset,omitempty"`
	Bucket             string               `json:"bucket,omitempty"`
	Key                string               `json:"key,omitempty"`
	Strategy           sampling.Strategy    `json:"strategy"`
	Mode               string               `json:"mode,omitempty"`
	Question           string               `json:"question,omitempty"`
	Filters            filter.Map           `json:"filters,omitempty"`
	FiltersApplied     bool                 `json:"filters_applied"`
	Columns            []string             `json:"columns"`
	Rows               []tabular.Row        `json:"rows"`
	EstimatedTotalRows int64                `json:"estimated_total_rows"`
	ColumnStats        []profile.ColumnStat `json:"column_stats"`
	Quality            profile.Quality      `json:"quality"`
	Representativeness float64              `json:"representativeness"`
	Relevant           []RelevantRow        `json:"relevant,omitempty"`
	Scan               ScanSummary          `json:"scan"`
}

// IsEmpty reports whether the result carries no rows.
func (r *SampleResult) IsEmpty() bool {
	return r == nil || len(r.Rows) == 0
}

// QueryResult is the outcome of QueryWithFilters.
type QueryResult struct {
	Dataset        string        `json:"dataset,omitempty"`
	Columns        []string      `json:"columns"`
	Rows           []tabular.Row `json:"rows"`
	MatchedFilters []string      `json:"matched_filters"`
	// TotalMatchCount counts every matching row the scan saw, which may
	// exceed len(Rows).
	TotalMatchCount int         `json:"total_match_count"`
	Scan            ScanSummary `json:"scan"`
}

func columnsOf(h *tabular.Header) []string {
	if h == nil {
		return nil
	}
	return h.Names()
}
