package pricing

import (
	"encoding/json"
	"sync"
	"time"
)

const memoCapacity = 256

// Memo caches Estimate results per input so repeated recomputation with
// unchanged settings is free.
type Memo struct {
	catalog Catalog
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]Result
}

// NewMemo wraps a catalog with a result cache
func NewMemo(catalog Catalog) *Memo {
	return &Memo{
		catalog: catalog,
		now:     time.Now,
		entries: make(map[string]Result),
	}
}

// Catalog returns the catalog the memo prices with
func (m *Memo) Catalog() Catalog {
	return m.catalog
}

// Estimate returns the cached result for in, computing it on a miss
func (m *Memo) Estimate(in Input) (Result, error) {
	if in.Today.IsZero() {
		in.Today = m.now()
	}
	y, mo, d := in.Today.Date()
	in.Today = time.Date(y, mo, d, 0, 0, 0, 0, in.Today.Location())

	keyBytes, err := json.Marshal(in)
	if err != nil {
		return Estimate(m.catalog, in)
	}
	key := string(keyBytes)

	m.mu.Lock()
	if r, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return r, nil
	}
	m.mu.Unlock()

	r, err := Estimate(m.catalog, in)
	if err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	if len(m.entries) >= memoCapacity {
		m.entries = make(map[string]Result)
	}
	m.entries[key] = r
	m.mu.Unlock()
	return r, nil
}

// Len returns the number of cached results
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
