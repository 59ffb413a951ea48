package bm25

import "github.com/hupe1980/lakescan/lexical"

// worse reports whether a ranks below b: lower score, or equal score and
// higher document id.
func worse(a, b lexical.Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.DocID > b.DocID
}

// candidateHeap is a min-heap with the worst candidate at the root.
type candidateHeap []lexical.Candidate

func (h *candidateHeap) push(c lexical.Candidate) {
	*h = append(*h, c)
	h.up(len(*h) - 1)
}

func (h *candidateHeap) pop() lexical.Candidate {
	old := *h
	n := len(old) - 1
	old[0], old[n] = old[n], old[0]
	c := old[n]
	*h = old[:n]
	h.down(0)
	return c
}

func (h candidateHeap) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !worse(h[j], h[i]) {
			break
		}
		h[i], h[j] = h[j], h[i]
		j = i
	}
}

func (h candidateHeap) down(i int) {
	n := len(h)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		j := l
		if r := l + 1; r < n && worse(h[r], h[l]) {
			j = r
		}
		if !worse(h[j], h[i]) {
			return
		}
		h[i], h[j] = h[j], h[i]
		i = j
	}
}
