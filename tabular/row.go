package tabular

import (
	"errors"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
)

// ErrFieldCount is returned by NewRow when the value count differs from the header.
var ErrFieldCount = errors.New("field count does not match header")

// Header is the ordered column set captured at the start of a parse session.
// It is immutable once created and shared by every Row parsed against it.
type Header struct {
	names []string
	index map[string]int
	delim byte
}

// NewHeader creates a header from column names.
// Duplicate names resolve to their first position.
func NewHeader(names []string, delim byte) *Header {
	h := &Header{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		delim: delim,
	}
	for i, n := range h.names {
		if _, ok := h.index[n]; !ok {
			h.index[n] = i
		}
	}
	return h
}

// Names returns the column names in order. The slice must not be modified.
func (h *Header) Names() []string { return h.names }

// Len returns the number of columns.
func (h *Header) Len() int { return len(h.names) }

// Delimiter returns the field delimiter detected for the header line.
func (h *Header) Delimiter() byte { return h.delim }

// Index returns the position of the named column.
func (h *Header) Index(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Line renders the header as a delimited line.
func (h *Header) Line() string {
	return JoinFields(h.names, h.delim)
}

// Row is one parsed record. Its key set always equals its Header.
type Row struct {
	header *Header
	values []string
}

// NewRow binds values to header. It fails with ErrFieldCount instead of
// accepting a partial row.
func NewRow(header *Header, values []string) (Row, error) {
	if header == nil || len(values) != header.Len() {
		n := 0
		if header != nil {
			n = header.Len()
		}
		return Row{}, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(values), n)
	}
	return Row{header: header, values: values}, nil
}

// Header returns the header the row was parsed against.
func (r Row) Header() *Header { return r.header }

// Values returns the field values in header order. The slice must not be modified.
func (r Row) Values() []string { return r.values }

// Len returns the number of fields.
func (r Row) Len() int { return len(r.values) }

// Get returns the value of the named column.
func (r Row) Get(name string) (string, bool) {
	if r.header == nil {
		return "", false
	}
	i, ok := r.header.Index(name)
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Map returns the row as a column → value map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for i, v := range r.values {
		name := r.header.names[i]
		if _, dup := m[name]; !dup {
			m[name] = v
		}
	}
	return m
}

// MarshalJSON encodes the row as a column → value object.
func (r Row) MarshalJSON() ([]byte, error) {
	if r.header == nil {
		return []byte("null"), nil
	}
	return gojson.Marshal(r.Map())
}

// Line renders the row with its header's delimiter.
func (r Row) Line() string {
	return JoinFields(r.values, r.header.delim)
}

// Text renders the row as "col: value | col: value", skipping empty values.
func (r Row) Text() string {
	var sb strings.Builder
	for i, v := range r.values {
		if v == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(r.header.names[i])
		sb.WriteString(": ")
		sb.WriteString(v)
	}
	return sb.String()
}
