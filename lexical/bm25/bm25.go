package bm25

import (
	"math"
	"sort"
	"sync"

	"github.com/hupe1980/lakescan/lexical"
)

const (
	k1 = 1.2
	b  = 0.75
)

type posting struct {
	docID uint32
	count int
}

// MemoryIndex is a simple in-memory BM25 index. Posting lists are kept
// sorted by document id.
type MemoryIndex struct {
	mu          sync.RWMutex
	inverted    map[string][]posting
	docLengths  map[uint32]int
	docTerms    map[uint32][]string
	totalLength int64
}

// New creates a new MemoryIndex.
func New() *MemoryIndex {
	return &MemoryIndex{
		inverted:   make(map[string][]posting),
		docLengths: make(map[uint32]int),
		docTerms:   make(map[uint32][]string),
	}
}

var _ lexical.Index = (*MemoryIndex)(nil)

func (idx *MemoryIndex) Add(id uint32, text string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.docLengths[id]; ok {
		idx.deleteLocked(id)
	}

	tokens := lexical.Tokenize(text)
	idx.docLengths[id] = len(tokens)
	idx.totalLength += int64(len(tokens))

	tf := make(map[string]int)
	for _, t := range tokens {
		tf[t]++
	}

	terms := make([]string, 0, len(tf))
	for t, count := range tf {
		terms = append(terms, t)
		postings := idx.inverted[t]
		i := sort.Search(len(postings), func(i int) bool { return postings[i].docID >= id })
		postings = append(postings, posting{})
		copy(postings[i+1:], postings[i:])
		postings[i] = posting{docID: id, count: count}
		idx.inverted[t] = postings
	}
	idx.docTerms[id] = terms
	return nil
}

func (idx *MemoryIndex) Delete(id uint32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.deleteLocked(id)
	return nil
}

func (idx *MemoryIndex) deleteLocked(id uint32) {
	length, ok := idx.docLengths[id]
	if !ok {
		return
	}
	for _, t := range idx.docTerms[id] {
		postings := idx.inverted[t]
		i := sort.Search(len(postings), func(i int) bool { return postings[i].docID >= id })
		if i < len(postings) && postings[i].docID == id {
			postings = append(postings[:i], postings[i+1:]...)
		}
		if len(postings) == 0 {
			delete(idx.inverted, t)
		} else {
			idx.inverted[t] = postings
		}
	}
	delete(idx.docTerms, id)
	delete(idx.docLengths, id)
	idx.totalLength -= int64(length)
}

// Len returns the number of indexed documents.
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docLengths)
}

// Scores returns the BM25 score of every document matching text.
func (idx *MemoryIndex) Scores(text string) map[uint32]float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make(map[uint32]float32)
	if len(idx.docLengths) == 0 {
		return scores
	}
	avgDL := float64(idx.totalLength) / float64(len(idx.docLengths))

	for _, t := range uniqueTokens(text) {
		postings, ok := idx.inverted[t]
		if !ok {
			continue
		}
		idf := idx.computeIDF(len(postings))
		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(idx.docLengths[p.docID])
			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*(docLen/avgDL))
			scores[p.docID] += float32(idf * (num / denom))
		}
	}
	return scores
}

func (idx *MemoryIndex) computeIDF(df int) float64 {
	// IDF = log(1 + (N - n + 0.5) / (n + 0.5))
	N := float64(len(idx.docLengths))
	n := float64(df)
	return math.Log(1 + (N-n+0.5)/(n+0.5))
}

func (idx *MemoryIndex) Close() error {
	return nil
}

// uniqueTokens tokenizes a query, dropping repeated terms.
func uniqueTokens(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range lexical.Tokenize(text) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
