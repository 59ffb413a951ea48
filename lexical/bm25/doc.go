// Package bm25 provides a BM25-based lexical search index.
//
// BM25 (Best Matching 25) is a ranking function used for keyword search.
// This implementation uses an in-memory inverted index with
// document-at-a-time (DAAT) top-k scoring.
//
// # Usage
//
//	idx := bm25.New()
//	_ = idx.Add(0, "StateAbbr: CO | Measure: Obesity | Data_Value: 24.1")
//	hits, _ := idx.Search("obesity colorado CO", 5)
//
// # Parameters
//
// Uses standard BM25 parameters: k1=1.2, b=0.75
//
// # Thread Safety
//
// The index is safe for concurrent reads and writes.
package bm25
