// Package lexical ranks sampled rows by their keyword relevance to a
// free-text question.
//
// A question is first expanded with Enhance (state names gain their
// abbreviations, health terms gain the measure codes used in public health
// extracts, context words pull in column names). Rows are scored by an
// Index, then adjusted by Boost:
//
//	idx := bm25.New()
//	hits, _ := lexical.Rank(idx, "obesity by county in Colorado", texts, 5)
//
// # Built-in Implementation
//
// The bm25 subpackage provides an in-memory BM25 index.
package lexical
