package datasource

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"insider-radar/internal/types"
)

// Memo remembers successful quotes for the lifetime of the process so
// repeated scans (or re-scans with a larger top-N) skip the network.
// Nothing is written to disk.
type Memo struct {
	c *cache.Cache
}

// NewMemo creates a memo; ttl <= 0 keeps entries until the process exits
func NewMemo(ttl time.Duration) *Memo {
	if ttl <= 0 {
		return &Memo{c: cache.New(cache.NoExpiration, 0)}
	}
	return &Memo{c: cache.New(ttl, 2*ttl)}
}

func (m *Memo) Get(key string) (*types.Quote, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	q, ok := v.(types.Quote)
	if !ok {
		return nil, false
	}
	return &q, true
}

// Set stores a copy of q
func (m *Memo) Set(key string, q *types.Quote) {
	if q == nil {
		return
	}
	m.c.Set(key, *q, cache.DefaultExpiration)
}

// GetOrFetch returns the memoized quote or calls fetch and memoizes a
// successful result. Failures are never memoized.
func (m *Memo) GetOrFetch(key string, fetch func() (*types.Quote, error)) (*types.Quote, bool, error) {
	if q, ok := m.Get(key); ok {
		return q, true, nil
	}
	q, err := fetch()
	if err != nil {
		return nil, false, err
	}
	m.Set(key, q)
	return q, false, nil
}

// Len reports the number of memoized quotes
func (m *Memo) Len() int {
	return m.c.ItemCount()
}

// MakeKey joins key parts with ':'
func MakeKey(parts ...string) string {
	return strings.Join(parts, ":")
}
