package filter

import (
	"regexp"
	"strings"
)

var (
	stateRe  = regexp.MustCompile(`\b(?i:in|for|from)\s+([A-Z]{2})\b`)
	countyRe = regexp.MustCompile(`((?:[A-Z][A-Za-z.'-]*\s+)+)(?i:county)\b`)
	yearRe   = regexp.MustCompile(`\b(20\d{2})\b`)
)

// Measures is the priority-ordered vocabulary of health measures recognized
// by Extract. The first one contained in a question wins.
var Measures = []string{
	"diabetes",
	"obesity",
	"asthma",
	"cancer",
	"stroke",
	"depression",
	"heart disease",
	"high blood pressure",
	"blood pressure",
	"cholesterol",
	"smoking",
	"copd",
	"kidney disease",
	"arthritis",
	"mental health",
	"physical inactivity",
	"sleep",
}

// leading words that a capitalized county phrase may start with but are
// not part of the name.
var countyStopwords = map[string]bool{
	"in": true, "for": true, "from": true, "the": true, "what": true,
	"show": true, "list": true, "of": true, "and": true, "is": true,
}

// Extract derives a filter map from a free-text question. Each heuristic is
// independent and optional: a two-letter state code after "in", "for" or
// "from"; the capitalized words before "county"; a 20xx year; and the first
// measure from Measures. Keys without a match are absent.
func Extract(question string) Map {
	m := Map{}
	if strings.TrimSpace(question) == "" {
		return m
	}

	if sm := stateRe.FindStringSubmatch(question); sm != nil {
		m["state"] = sm[1]
	}

	if cm := countyRe.FindStringSubmatch(question); cm != nil {
		words := strings.Fields(cm[1])
		for len(words) > 0 && countyStopwords[strings.ToLower(words[0])] {
			words = words[1:]
		}
		if len(words) > 0 {
			m["county"] = strings.Join(words, " ")
		}
	}

	if ym := yearRe.FindStringSubmatch(question); ym != nil {
		m["year"] = ym[1]
	}

	lower := strings.ToLower(question)
	for _, measure := range Measures {
		if strings.Contains(lower, measure) {
			m["measure"] = measure
			break
		}
	}
	return m
}
