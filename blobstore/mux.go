package blobstore

import (
	"fmt"
	"sync"
)

// Mux routes bucket names to the BlobStore serving them.
// A store registered under the empty name serves every unknown bucket.
type Mux struct {
	mu     sync.RWMutex
	stores map[string]BlobStore
}

// NewMux creates a Mux. If def is non-nil it becomes the fallback store.
func NewMux(def BlobStore) *Mux {
	m := &Mux{stores: make(map[string]BlobStore)}
	if def != nil {
		m.stores[""] = def
	}
	return m
}

// Handle registers store for bucket, replacing any previous registration.
func (m *Mux) Handle(bucket string, store BlobStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[bucket] = store
}

// Store returns the store for bucket.
func (m *Mux) Store(bucket string) (BlobStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.stores[bucket]; ok {
		return s, nil
	}
	if s, ok := m.stores[""]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no store registered for bucket %q", bucket)
}
