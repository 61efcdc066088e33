// Package store keeps the last quote computed for each model file.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/pricing"
)

// ErrNotFound is returned when no entry exists for a path
var ErrNotFound = errors.New("store: entry not found")

// Entry is a cached quote for one model file
type Entry struct {
	Path      string            `json:"path"`
	Geometry  analysis.Geometry `json:"geometry"`
	Settings  pricing.Settings  `json:"settings"`
	Result    pricing.Result    `json:"result"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PricingCache stores entries by file path. Writes are last-writer-wins.
type PricingCache interface {
	Get(ctx context.Context, path string) (Entry, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// MemoryStore is a PricingCache held in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, path string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[path]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = s.now()
	}
	s.mu.Lock()
	s.entries[entry.Path] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.entries, path)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
