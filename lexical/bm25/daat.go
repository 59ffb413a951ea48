package bm25

import (
	"github.com/hupe1980/lakescan/lexical"
)

type termIterator struct {
	postings []posting
	idx      int
	idf      float64
}

// doc returns the current docID, or max uint32 once exhausted.
func (it *termIterator) doc() uint32 {
	if it.idx >= len(it.postings) {
		return ^uint32(0)
	}
	return it.postings[it.idx].docID
}

func (it *termIterator) count() int {
	return it.postings[it.idx].count
}

func (it *termIterator) next() {
	it.idx++
}

// Search performs a Document-At-A-Time search and returns the k best
// documents with a positive score, best first. Ties are broken by lower
// document id.
func (idx *MemoryIndex) Search(text string, k int) ([]lexical.Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docLengths) == 0 {
		return nil, nil
	}

	var iterators []termIterator
	for _, t := range uniqueTokens(text) {
		postings, ok := idx.inverted[t]
		if !ok || len(postings) == 0 {
			continue
		}
		iterators = append(iterators, termIterator{postings: postings, idf: idx.computeIDF(len(postings))})
	}
	if len(iterators) == 0 {
		return nil, nil
	}

	avgDL := float64(idx.totalLength) / float64(len(idx.docLengths))
	k1Plus1 := k1 + 1
	k1b := k1 * (1 - b)
	k1bAvgDL := k1 * b / avgDL

	h := make(candidateHeap, 0, k)
	for {
		// Short queries: a linear scan for the minimum beats a heap of iterators.
		minDoc := ^uint32(0)
		for i := range iterators {
			if doc := iterators[i].doc(); doc < minDoc {
				minDoc = doc
			}
		}
		if minDoc == ^uint32(0) {
			break
		}

		var score float64
		docLen := float64(idx.docLengths[minDoc])
		for i := range iterators {
			it := &iterators[i]
			if it.doc() != minDoc {
				continue
			}
			tf := float64(it.count())
			score += it.idf * (tf * k1Plus1 / (tf + k1b + k1bAvgDL*docLen))
			it.next()
		}

		if score <= 0 {
			continue
		}
		c := lexical.Candidate{DocID: minDoc, Score: float32(score)}
		if len(h) < k {
			h.push(c)
		} else if worse(h[0], c) {
			h[0] = c
			h.down(0)
		}
	}

	out := make([]lexical.Candidate, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = h.pop()
	}
	return out, nil
}
