package profile

import "math"

const (
	coverageWeight  = 0.7
	diversityWeight = 0.3
)

// EstimateTotalRows extrapolates the object's row count from the average
// encoded row size of the bytes whose lines were parsed. bytesParsed must
// cover only those lines: bytes fetched but left unparsed because a row
// limit was reached would inflate the average row size. When the whole
// object was parsed the parsed count is exact.
func EstimateTotalRows(objectSize, bytesParsed int64, rowsParsed int, complete bool) int64 {
	if rowsParsed <= 0 {
		return 0
	}
	if complete || bytesParsed <= 0 || bytesParsed >= objectSize {
		return int64(rowsParsed)
	}
	avg := float64(bytesParsed) / float64(rowsParsed)
	return max(int64(rowsParsed), int64(math.Round(float64(objectSize)/avg)))
}

// Diversity is the share of columns that are not constant in the sample.
func Diversity(stats []ColumnStat) float64 {
	if len(stats) == 0 {
		return 0
	}
	varied := 0
	for _, st := range stats {
		if st.UniqueCount > 1 {
			varied++
		}
	}
	return float64(varied) / float64(len(stats))
}

// Representativeness scores how well a sample of sampleRows reflects a
// dataset of estimatedTotal rows: 0.7 × coverage (capped at 1) plus
// 0.3 × column diversity, scaled by the strategy multiplier and clamped to
// [0, 1].
func Representativeness(sampleRows int, estimatedTotal int64, stats []ColumnStat, multiplier float64) float64 {
	if sampleRows <= 0 {
		return 0
	}
	coverage := 1.0
	if estimatedTotal > 0 {
		coverage = math.Min(1, float64(sampleRows)/float64(estimatedTotal))
	}
	score := (coverageWeight*coverage + diversityWeight*Diversity(stats)) * multiplier
	return math.Max(0, math.Min(1, score))
}
