// Package tabular parses delimited text (CSV, TSV, semicolon and pipe
// separated) into rows bound to a header.
//
// The parser is a single-pass character scanner, not a full CSV grammar.
// Quoted fields may contain the delimiter and, when lines are split with a
// LineBuffer, newlines. Rows whose field count differs from the header are
// dropped and counted in ParseStats.
//
//	rows, header, stats := tabular.ParseChunk(text, tabular.ParseOptions{MaxRows: 100})
//
// Compressed objects (.gz, .zst, .lz4) are opened with Decompress.
package tabular
