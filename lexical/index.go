package lexical

import (
	"strings"
	"unicode"
)

// Candidate is a scored search hit.
type Candidate struct {
	DocID uint32
	Score float32
}

// Index is the interface for a lexical search index.
type Index interface {
	// Add adds a document to the index, replacing any document with the same id.
	Add(id uint32, text string) error
	// Delete removes a document from the index.
	Delete(id uint32) error
	// Search returns up to k documents with a positive score, best first.
	Search(text string, k int) ([]Candidate, error)
	// Len returns the number of indexed documents.
	Len() int
	// Close closes the index.
	Close() error
}

// Tokenize lowercases text and splits it on anything that is not a letter
// or digit. Underscores are kept so column names such as Data_Value stay one
// token.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
