package filter

import (
	"strings"
	"unicode"
)

// synonyms lists physical column names commonly used for a logical key.
var synonyms = map[string][]string{
	"state":    {"StateAbbr", "StateDesc", "State", "LocationAbbr"},
	"county":   {"CountyName", "LocationName", "CountyFIPS"},
	"year":     {"Year", "YearStart", "DataYear"},
	"measure":  {"Measure", "MeasureId", "Short_Question_Text", "Category"},
	"value":    {"Data_Value"},
	"location": {"LocationName", "LocationDesc", "Geolocation"},
}

// Variants returns the candidate physical column names for a logical key:
// the key itself, its case forms, snake_case and camelCase conversions, and
// any synonyms. The result is deduplicated and keeps first-seen order.
func Variants(key string) []string {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	forms := func(s string) {
		add(s)
		add(strings.ToLower(s))
		add(strings.ToUpper(s))
		add(capitalize(s))
		add(snakeToCamel(s))
		add(capitalize(snakeToCamel(s)))
		add(camelToSnake(s))
	}

	forms(key)
	for _, syn := range synonyms[strings.ToLower(key)] {
		forms(syn)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func snakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var sb strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			sb.WriteString(strings.ToLower(p))
			continue
		}
		sb.WriteString(capitalize(strings.ToLower(p)))
	}
	return sb.String()
}

func camelToSnake(s string) string {
	var sb strings.Builder
	r := []rune(s)
	for i, c := range r {
		if unicode.IsUpper(c) {
			if i > 0 && r[i-1] != '_' && !unicode.IsUpper(r[i-1]) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(c))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// Resolve returns the positions of the columns in names that match any
// variant of key. A column matches when, ignoring case, the variant contains
// the column name or the column name contains the variant.
func Resolve(key string, names []string) []int {
	variants := Variants(key)
	lowered := make([]string, len(variants))
	for i, v := range variants {
		lowered[i] = strings.ToLower(v)
	}

	var idx []int
	for i, name := range names {
		col := strings.ToLower(strings.TrimSpace(name))
		if col == "" {
			continue
		}
		for _, v := range lowered {
			if strings.Contains(v, col) || strings.Contains(col, v) {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}
