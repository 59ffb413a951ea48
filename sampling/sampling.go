// Package sampling chooses how much of a dataset to read.
//
// A Strategy names a target row count and the largest source size it is
// preferred for. Select is pure and deterministic: an explicit strategy name
// wins, then question keywords, then the size ladder.
package sampling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/lakescan/filter"
)

// ErrUnknownStrategy is returned by ByName for names not in the set.
var ErrUnknownStrategy = errors.New("unknown sampling strategy")

// Auto requests automatic strategy selection.
const Auto = "auto"

const (
	MiB = 1 << 20
	GiB = 1 << 30
)

// Strategy is a named sampling configuration.
type Strategy struct {
	Name string `json:"name" yaml:"name"`
	// MaxSourceBytes is the exclusive upper bound of the dataset size this
	// strategy is chosen for by the size ladder. Zero means unbounded.
	MaxSourceBytes int64 `json:"max_source_bytes" yaml:"max_source_bytes"`
	TargetRows     int   `json:"target_rows" yaml:"target_rows"`
	// Multiplier scales the representativeness score.
	Multiplier  float64 `json:"multiplier" yaml:"multiplier"`
	Description string  `json:"description" yaml:"description"`
}

func (s Strategy) String() string {
	if s.MaxSourceBytes == 0 {
		return fmt.Sprintf("%s (%d rows, any size)", s.Name, s.TargetRows)
	}
	return fmt.Sprintf("%s (%d rows, < %s)", s.Name, s.TargetRows, humanize.IBytes(uint64(s.MaxSourceBytes)))
}

// Set is an ordered strategy list, most detailed first.
type Set []Strategy

// DefaultSet returns the built-in strategies.
func DefaultSet() Set {
	return Set{
		{Name: "comprehensive", MaxSourceBytes: 10 * MiB, TargetRows: 10000, Multiplier: 1.0, Description: "Large sample for small datasets"},
		{Name: "balanced", MaxSourceBytes: 100 * MiB, TargetRows: 5000, Multiplier: 0.9, Description: "Balanced sample for medium datasets"},
		{Name: "fast", MaxSourceBytes: 1 * GiB, TargetRows: 2000, Multiplier: 0.8, Description: "Quick sample for large datasets"},
		{Name: "minimal", MaxSourceBytes: 0, TargetRows: 1000, Multiplier: 0.6, Description: "Minimal sample for very large datasets"},
	}
}

// Validate checks that the set is non-empty, names are unique and the size
// ladder is strictly increasing with only the last entry unbounded.
func (s Set) Validate() error {
	if len(s) == 0 {
		return errors.New("empty strategy set")
	}
	seen := make(map[string]bool, len(s))
	var prev int64
	for i, st := range s {
		if st.Name == "" || strings.EqualFold(st.Name, Auto) {
			return fmt.Errorf("strategy %d: invalid name %q", i, st.Name)
		}
		key := strings.ToLower(st.Name)
		if seen[key] {
			return fmt.Errorf("duplicate strategy %q", st.Name)
		}
		seen[key] = true
		if st.TargetRows <= 0 {
			return fmt.Errorf("strategy %q: target rows must be positive", st.Name)
		}
		last := i == len(s)-1
		if st.MaxSourceBytes == 0 && !last {
			return fmt.Errorf("strategy %q: only the last strategy may be unbounded", st.Name)
		}
		if st.MaxSourceBytes != 0 && st.MaxSourceBytes <= prev {
			return fmt.Errorf("strategy %q: size thresholds must increase", st.Name)
		}
		prev = st.MaxSourceBytes
	}
	return nil
}

// ByName looks up a strategy case-insensitively.
func (s Set) ByName(name string) (Strategy, error) {
	for _, st := range s {
		if strings.EqualFold(st.Name, name) {
			return st, nil
		}
	}
	return Strategy{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Most returns the most detailed strategy (largest target row count).
func (s Set) Most() Strategy {
	best := s[0]
	for _, st := range s[1:] {
		if st.TargetRows > best.TargetRows {
			best = st
		}
	}
	return best
}

// Least returns the lightest strategy (smallest target row count).
func (s Set) Least() Strategy {
	best := s[0]
	for _, st := range s[1:] {
		if st.TargetRows < best.TargetRows {
			best = st
		}
	}
	return best
}

// ForSize walks the size ladder.
func (s Set) ForSize(sizeBytes int64) Strategy {
	for _, st := range s {
		if st.MaxSourceBytes == 0 || sizeBytes < st.MaxSourceBytes {
			return st
		}
	}
	return s[len(s)-1]
}

// AnalyticalKeywords steer selection to the most detailed strategy.
var AnalyticalKeywords = []string{
	"correlation", "trend", "compare", "comparison", "analyze", "analysis",
	"distribution", "pattern", "relationship", "detailed", "breakdown", "variance",
}

// SummaryKeywords steer selection to the lightest strategy.
var SummaryKeywords = []string{
	"summary", "summarize", "overview", "quick", "brief", "glance",
	"count", "how many", "total",
}

// containsAny reports whether text contains any of words as a whole word
// or phrase (plural allowed), so that "count" does not fire on "county".
func containsAny(text string, words []string) bool {
	for _, w := range words {
		for from := 0; ; {
			i := strings.Index(text[from:], w)
			if i < 0 {
				break
			}
			start, end := from+i, from+i+len(w)
			if end < len(text) && text[end] == 's' {
				end++ // plural
			}
			if (start == 0 || !isLetter(text[start-1])) && (end == len(text) || !isLetter(text[end])) {
				return true
			}
			from = start + 1
		}
	}
	return false
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z'
}

// Select chooses a strategy. A known requested name wins; "auto", an empty
// name and unknown names fall through to the question keywords and then to
// the size ladder.
func (s Set) Select(sizeBytes int64, requested, question string) Strategy {
	if requested != "" && !strings.EqualFold(requested, Auto) {
		if st, err := s.ByName(requested); err == nil {
			return st
		}
	}

	q := strings.ToLower(question)
	if q != "" {
		if containsAny(q, AnalyticalKeywords) {
			return s.Most()
		}
		if containsAny(q, SummaryKeywords) {
			return s.Least()
		}
	}
	return s.ForSize(sizeBytes)
}

// Select chooses from the default set.
func Select(sizeBytes int64, requested, question string) Strategy {
	return DefaultSet().Select(sizeBytes, requested, question)
}

// Mode is how a sample is read.
type Mode int

const (
	// Bounded reads a strategy-sized prefix (and midpoint) of the object.
	Bounded Mode = iota
	// Progressive scans the whole object window by window.
	Progressive
)

func (m Mode) String() string {
	if m == Progressive {
		return "progressive"
	}
	return "bounded"
}

// ModeFor returns Progressive when any filter is active.
func ModeFor(f filter.Map) Mode {
	if f.IsEmpty() {
		return Bounded
	}
	return Progressive
}
