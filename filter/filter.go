package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/lakescan/tabular"
)

// Map maps a logical key to a target value (string or number).
type Map map[string]any

// isEmpty reports whether a target value disables its predicate.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	default:
		return false
	}
}

// Active returns the keys with non-empty targets, sorted.
func (m Map) Active() []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if !isEmpty(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// IsEmpty reports whether no predicate is active (pass-through mode).
func (m Map) IsEmpty() bool {
	for _, v := range m {
		if !isEmpty(v) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Predicate is a Map compiled against one header: every active key is
// resolved to its column positions once.
type Predicate struct {
	header *tabular.Header
	terms  []term
}

type term struct {
	key     string
	columns []int
	target  any
	lower   string // lowercase target for string comparison
}

// Compile resolves m against header.
func Compile(m Map, header *tabular.Header) *Predicate {
	p := &Predicate{header: header}
	var names []string
	if header != nil {
		names = header.Names()
	}
	for _, k := range m.Active() {
		t := term{key: k, columns: Resolve(k, names), target: m[k]}
		if s, ok := m[k].(string); ok {
			t.lower = strings.ToLower(strings.TrimSpace(s))
		}
		p.terms = append(p.terms, t)
	}
	return p
}

// PassThrough reports whether the predicate accepts every row.
func (p *Predicate) PassThrough() bool { return len(p.terms) == 0 }

// Header returns the header the predicate was compiled for.
func (p *Predicate) Header() *tabular.Header { return p.header }

// Match reports whether row satisfies every term. It stops at the first
// failing term.
func (p *Predicate) Match(row tabular.Row) bool {
	values := row.Values()
	for _, t := range p.terms {
		ok := false
		for _, c := range t.columns {
			if c < len(values) && t.matches(values[c]) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Columns returns the physical column names resolved for key.
func (p *Predicate) Columns(key string) []string {
	for _, t := range p.terms {
		if t.key != key {
			continue
		}
		out := make([]string, len(t.columns))
		for i, c := range t.columns {
			out[i] = p.header.Names()[c]
		}
		return out
	}
	return nil
}

func (t term) matches(value string) bool {
	if _, ok := t.target.(string); ok {
		return strings.Contains(strings.ToLower(value), t.lower)
	}
	return looseEqual(value, t.target)
}

func looseEqual(value string, target any) bool {
	value = strings.TrimSpace(value)
	var want float64
	switch n := target.(type) {
	case int:
		want = float64(n)
	case int64:
		want = float64(n)
	case int32:
		want = float64(n)
	case float64:
		want = n
	case float32:
		want = float64(n)
	case bool:
		b, err := strconv.ParseBool(value)
		return err == nil && b == n
	default:
		return strings.EqualFold(value, fmt.Sprint(target))
	}
	got, err := strconv.ParseFloat(value, 64)
	return err == nil && got == want
}

// Matches reports whether row satisfies every active predicate of m.
// An empty map matches every row.
func Matches(row tabular.Row, m Map) bool {
	if m.IsEmpty() {
		return true
	}
	return Compile(m, row.Header()).Match(row)
}

// Describe renders each active predicate as "key=value (columns: a, b)".
func Describe(m Map, header *tabular.Header) []string {
	p := Compile(m, header)
	out := make([]string, 0, len(p.terms))
	for _, t := range p.terms {
		cols := p.Columns(t.key)
		if len(cols) == 0 {
			out = append(out, fmt.Sprintf("%s=%v (no matching column)", t.key, t.target))
			continue
		}
		out = append(out, fmt.Sprintf("%s=%v (columns: %s)", t.key, t.target, strings.Join(cols, ", ")))
	}
	return out
}
