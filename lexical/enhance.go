package lexical

import (
	"slices"
	"strings"
)

// Query expansion tables. Keys are matched as lowercase substrings of the
// question.
var (
	stateExpansions = []struct{ name, abbr string }{
		{"colorado", "CO"},
		{"california", "CA"},
		{"alabama", "AL"},
		{"texas", "TX"},
		{"florida", "FL"},
		{"new york", "NY"},
	}

	healthExpansions = []struct{ term, expansion string }{
		{"obesity", "OBESITY obesity obese overweight"},
		{"diabetes", "DIABETES diabetes diabetic"},
		{"heart disease", "CHD coronary heart disease"},
		{"stroke", "STROKE cerebrovascular"},
		{"depression", "MHLTH mental health depression"},
		{"asthma", "CASTHMA asthma respiratory"},
	}

	boostStates   = []string{"colorado", "california", "alabama", "texas", "florida", "co", "ca", "al", "tx", "fl"}
	boostHealth   = []string{"obesity", "diabetes", "heart", "stroke", "depression", "asthma"}
	boostLocation = []string{"county", "state", "region", "area"}
)

const (
	stateBoost     = 1.5
	healthBoost    = 1.3
	locationBoost  = 1.2
	countyMismatch = 0.7
)

// Enhance expands a question with state abbreviations, health measure codes
// and column names hinted at by context words.
func Enhance(question string) string {
	lower := strings.ToLower(question)
	parts := []string{question}

	for _, s := range stateExpansions {
		if strings.Contains(lower, s.name) {
			parts = append(parts, s.abbr, strings.ToUpper(s.name))
		}
	}
	for _, h := range healthExpansions {
		if strings.Contains(lower, h.term) {
			parts = append(parts, h.expansion)
		}
	}
	if strings.Contains(lower, "county") {
		parts = append(parts, "CountyName CountyFIPS")
	}
	if strings.Contains(lower, "state") {
		parts = append(parts, "StateAbbr StateName")
	}
	for _, w := range []string{"data", "information", "statistics"} {
		if strings.Contains(lower, w) {
			parts = append(parts, "TotalPopulation Data_Value Measure")
			break
		}
	}
	return strings.Join(parts, " ")
}

// Boost returns the multiplicative relevance adjustment of doc for query.
// State and health terms shared by both raise the score once per term; a
// location word in both raises it; a county question against a document
// without county data lowers it.
func Boost(query, doc string) float64 {
	q := tokenSet(query)
	d := tokenSet(doc)

	boost := 1.0
	for _, t := range boostStates {
		if q[t] && d[t] {
			boost *= stateBoost
		}
	}
	for _, t := range boostHealth {
		if q[t] && d[t] {
			boost *= healthBoost
		}
	}
	if containsAny(q, boostLocation) && containsAny(d, boostLocation) {
		boost *= locationBoost
	}
	if q["county"] && !d["county"] {
		boost *= countyMismatch
	}
	return boost
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokenize(text) {
		set[t] = true
		// CountyName and StateAbbr carry their location word.
		for _, w := range boostLocation {
			if strings.Contains(t, w) {
				set[w] = true
			}
		}
	}
	return set
}

func containsAny(set map[string]bool, words []string) bool {
	return slices.ContainsFunc(words, func(w string) bool { return set[w] })
}

// Rank indexes texts in idx (document ids are the text positions), searches
// it with the enhanced question and returns the k best hits after boosting.
// Only hits with a positive score are returned.
func Rank(idx Index, question string, texts []string, k int) ([]Candidate, error) {
	if k <= 0 || len(texts) == 0 || strings.TrimSpace(question) == "" {
		return nil, nil
	}
	for i, text := range texts {
		if err := idx.Add(uint32(i), text); err != nil {
			return nil, err
		}
	}

	query := Enhance(question)
	hits, err := idx.Search(query, len(texts))
	if err != nil {
		return nil, err
	}

	out := hits[:0]
	for _, h := range hits {
		h.Score *= float32(Boost(query, texts[h.DocID]))
		if h.Score > 0 {
			out = append(out, h)
		}
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return int(a.DocID) - int(b.DocID)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
