package tabular

import "bytes"

// DefaultMaxCarry bounds the bytes a quoted field may hold open across
// newlines before the quote is treated as unbalanced (1 MiB).
const DefaultMaxCarry = 1 << 20

// LineBuffer splits a byte stream into lines across arbitrary chunk
// boundaries. A double quote opens a quoted field only at the start of a
// field; a quote inside a field is literal. A newline inside a quoted field
// does not end a line, and the trailing incomplete line of one chunk is
// carried into the next.
//
// A quoted field still open after MaxCarry bytes is treated as unbalanced:
// the line ends at its first newline and scanning resumes after it.
type LineBuffer struct {
	// MaxCarry overrides DefaultMaxCarry when positive.
	MaxCarry int

	buf      []byte
	scanned  int
	inQuote  bool
	midField bool
	// quoteNL is one past the index of the first newline seen inside the
	// open quote, or 0.
	quoteNL int
	resync  bool
}

// Feed appends p and returns every line completed by it, without the
// terminating "\n" or "\r\n".
func (b *LineBuffer) Feed(p []byte) []string {
	if b.resync {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			return nil
		}
		p = p[i+1:]
		b.resync = false
	}
	b.buf = append(b.buf, p...)

	maxCarry := b.MaxCarry
	if maxCarry <= 0 {
		maxCarry = DefaultMaxCarry
	}

	var lines []string
	start, i := 0, b.scanned
scan:
	for ; i < len(b.buf); i++ {
		c := b.buf[i]
		if b.inQuote {
			switch c {
			case '"':
				if i+1 == len(b.buf) {
					// An escaped quote may continue in the next chunk.
					break scan
				}
				if b.buf[i+1] == '"' {
					i++
					continue
				}
				b.inQuote, b.midField, b.quoteNL = false, true, 0
			case '\n':
				if b.quoteNL == 0 {
					b.quoteNL = i + 1
				}
				if i-start < maxCarry {
					continue
				}
				// Unbalanced quote: end the line at its first newline.
				nl := b.quoteNL - 1
				lines = append(lines, trimCR(b.buf[start:nl]))
				start = nl + 1
				i = nl
				b.inQuote, b.midField, b.quoteNL = false, false, 0
			}
			continue
		}
		switch {
		case c == '\n':
			lines = append(lines, trimCR(b.buf[start:i]))
			start = i + 1
			b.midField = false
		case c == '"' && !b.midField:
			b.inQuote = true
		case isDelimiter(c):
			b.midField = false
		case c == ' ':
		default:
			b.midField = true
		}
	}
	n := copy(b.buf, b.buf[start:])
	b.buf = b.buf[:n]
	b.scanned = i - start
	if b.quoteNL > 0 {
		b.quoteNL -= start
	}
	return lines
}

func trimCR(line []byte) string {
	return string(bytes.TrimSuffix(line, []byte{'\r'}))
}

func isDelimiter(c byte) bool {
	return bytes.IndexByte(Delimiters, c) >= 0
}

// Flush returns the carried partial line, if any, and empties the buffer.
func (b *LineBuffer) Flush() (string, bool) {
	if len(b.buf) == 0 {
		b.Reset()
		return "", false
	}
	line := trimCR(b.buf)
	b.Reset()
	return line, true
}

// Pending reports the number of carried bytes.
func (b *LineBuffer) Pending() int { return len(b.buf) }

// Reset drops any carried bytes and quote state.
func (b *LineBuffer) Reset() {
	b.buf = b.buf[:0]
	b.scanned = 0
	b.inQuote = false
	b.midField = false
	b.quoteNL = 0
	b.resync = false
}

// Resync drops the carried partial line and discards the next chunk's bytes
// up to and including its first newline. Used after a chunk was lost.
func (b *LineBuffer) Resync() {
	b.Reset()
	b.resync = true
}
