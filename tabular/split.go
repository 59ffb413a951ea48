package tabular

import "strings"

// Delimiters are the candidate field separators, in tie-break order.
var Delimiters = []byte{',', ';', '\t', '|'}

// DetectDelimiter picks the most frequent candidate delimiter in line.
// It returns ',' on a tie with ',' or when no candidate occurs.
func DetectDelimiter(line string) byte {
	best, bestCount := byte(','), 0
	for _, d := range Delimiters {
		if c := strings.Count(line, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

// SplitFields splits a line on delim, honoring double quotes.
// A quote opens a quoted field only at the start of a field; elsewhere it
// is literal. A doubled quote inside a quoted field is an escaped quote.
// Fields are trimmed of surrounding whitespace.
func SplitFields(line string, delim byte) []string {
	fields := make([]string, 0, 8)
	var sb strings.Builder
	inQuote, midField := false, false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote && c == '"':
			if i+1 < len(line) && line[i+1] == '"' {
				sb.WriteByte('"')
				i++
				continue
			}
			inQuote, midField = false, true
		case inQuote:
			sb.WriteByte(c)
		case c == delim:
			fields = append(fields, strings.TrimSpace(sb.String()))
			sb.Reset()
			midField = false
		case c == '"' && !midField:
			inQuote = true
		default:
			if c != ' ' {
				midField = true
			}
			sb.WriteByte(c)
		}
	}
	return append(fields, strings.TrimSpace(sb.String()))
}

// JoinFields joins values with delim, quoting values that contain the
// delimiter, a quote or a newline.
func JoinFields(values []string, delim byte) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(delim)
		}
		if strings.ContainsAny(v, string(delim)+"\"\n\r") {
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(v, `"`, `""`))
			sb.WriteByte('"')
			continue
		}
		sb.WriteString(v)
	}
	return sb.String()
}
