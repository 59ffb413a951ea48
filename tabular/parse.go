package tabular

import (
	"strings"
)

// ParseStats counts what a Parser saw.
type ParseStats struct {
	Lines   int // non-blank data lines
	Parsed  int // lines that produced a row
	Dropped int // lines whose field count did not match the header
	Matched int // parsed rows accepted by the match predicate
}

// Add accumulates other into s.
func (s *ParseStats) Add(other ParseStats) {
	s.Lines += other.Lines
	s.Parsed += other.Parsed
	s.Dropped += other.Dropped
	s.Matched += other.Matched
}

// Parser turns lines into rows. The first non-blank line becomes the header
// unless one is supplied.
type Parser struct {
	header *Header
	stats  ParseStats
}

// NewParser creates a parser. header may be nil.
func NewParser(header *Header) *Parser {
	return &Parser{header: header}
}

// Header returns the header in use, or nil before the first line.
func (p *Parser) Header() *Header { return p.header }

// Stats returns the counters accumulated so far.
func (p *Parser) Stats() ParseStats { return p.stats }

// Line parses one line. It returns false for blank lines, the header line
// and malformed lines.
func (p *Parser) Line(line string) (Row, bool) {
	if strings.TrimSpace(line) == "" {
		return Row{}, false
	}
	if p.header == nil {
		p.header = parseHeader(line)
		return Row{}, false
	}

	p.stats.Lines++
	row, err := NewRow(p.header, SplitFields(line, p.header.delim))
	if err != nil {
		p.stats.Dropped++
		return Row{}, false
	}
	p.stats.Parsed++
	return row, true
}

func parseHeader(line string) *Header {
	line = strings.TrimPrefix(line, "\ufeff")
	delim := DetectDelimiter(line)
	return NewHeader(SplitFields(line, delim), delim)
}

// ParseOptions configures ParseChunk.
type ParseOptions struct {
	// Header is the header captured by a previous chunk. If nil the first
	// non-blank line of the chunk is the header.
	Header *Header
	// MaxRows bounds the returned rows. Zero or negative means unbounded.
	MaxRows int
	// Match filters rows. Nil accepts every row.
	Match func(Row) bool
}

// ParseChunk parses a complete text chunk and returns the accepted rows and
// the header used, for reuse by the next chunk.
func ParseChunk(text string, opts ParseOptions) ([]Row, *Header, ParseStats) {
	p := NewParser(opts.Header)
	var lb LineBuffer
	lines := lb.Feed([]byte(text))
	if last, ok := lb.Flush(); ok {
		lines = append(lines, last)
	}

	var rows []Row
	for _, line := range lines {
		row, ok := p.Line(line)
		if !ok {
			continue
		}
		if opts.Match != nil && !opts.Match(row) {
			continue
		}
		p.stats.Matched++
		rows = append(rows, row)
		if opts.MaxRows > 0 && len(rows) >= opts.MaxRows {
			break
		}
	}
	return rows, p.header, p.stats
}
