package profile

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ColumnType is an inferred column type.
type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
	Datetime    ColumnType = "datetime"
	Text        ColumnType = "text"
	Boolean     ColumnType = "boolean"
)

// NumericKind refines Numeric columns.
type NumericKind string

const (
	Integer NumericKind = "integer"
	Float   NumericKind = "float"
)

const (
	typeThreshold        = 0.8
	categoricalThreshold = 0.1
	maxSamples           = 10
)

var integerRe = regexp.MustCompile(`^[+-]?\d+$`)

// nullTokens are values counted as missing.
var nullTokens = map[string]bool{
	"": true, "null": true, "na": true, "n/a": true, "none": true, "nan": true,
}

// placeholderTokens are non-empty values that carry no information.
var placeholderTokens = map[string]bool{
	"null": true, "na": true, "n/a": true, "none": true, "nan": true,
	"#n/a": true, "n.a.": true, "-": true, "--": true, "?": true,
	"unknown": true, "missing": true, "undefined": true, "nil": true,
}

var booleanTokens = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true,
	"y": true, "n": true, "t": true, "f": true, "0": true, "1": true,
}

// IsNull reports whether v is a missing-value token.
func IsNull(v string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(v))]
}

// IsPlaceholder reports whether a non-empty v is a placeholder token.
func IsPlaceholder(v string) bool {
	return placeholderTokens[strings.ToLower(strings.TrimSpace(v))]
}

// ParseNumber parses v as a finite float, tolerating thousands separators,
// a leading currency sign and a trailing percent sign. "inf", "NaN" and
// their spellings are not numbers.
func ParseNumber(v string) (float64, bool) {
	s := strings.TrimSpace(v)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"1/2/2006", "2006-01", "Jan 2, 2006", "02-Jan-2006",
}

// ParseDate tries the known date layouts.
func ParseDate(v string) (time.Time, bool) {
	s := strings.TrimSpace(v)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsBoolean reports whether v is a boolean token.
func IsBoolean(v string) bool {
	return booleanTokens[strings.ToLower(strings.TrimSpace(v))]
}
