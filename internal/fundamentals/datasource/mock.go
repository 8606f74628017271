package datasource

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"insider-radar/internal/types"
)

const SourceMock = "MOCK"

// MockClient returns deterministic synthetic fundamentals for offline runs.
// Explicit quotes and failures can be registered for tests.
type MockClient struct {
	mu      sync.RWMutex
	quotes  map[string]types.Quote
	failing map[string]error
	calls   map[string]int
}

func NewMockClient() *MockClient {
	return &MockClient{
		quotes:  make(map[string]types.Quote),
		failing: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (m *MockClient) Name() string { return SourceMock }

// SetQuote registers a fixed quote for symbol (suffix optional)
func (m *MockClient) SetQuote(symbol string, q types.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[NormalizeSymbol(symbol)] = q
}

// Fail makes every lookup of symbol return err
func (m *MockClient) Fail(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[NormalizeSymbol(symbol)] = err
}

// Calls reports how many lookups symbol received
func (m *MockClient) Calls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[NormalizeSymbol(symbol)]
}

func (m *MockClient) Lookup(ctx context.Context, symbol string) (*types.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := NormalizeSymbol(symbol)
	m.mu.Lock()
	m.calls[key]++
	q, fixed := m.quotes[key]
	failErr := m.failing[key]
	m.mu.Unlock()

	if failErr != nil {
		return nil, fmt.Errorf("mock lookup %s: %w", key, failErr)
	}
	if fixed {
		q.Symbol = symbol
		if q.Source == "" {
			q.Source = SourceMock
		}
		return &q, nil
	}
	return syntheticQuote(symbol, key), nil
}

func syntheticQuote(symbol, key string) *types.Quote {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	seed := h.Sum64()

	unit := func(shift uint) float64 {
		return float64((seed>>shift)&0xffff) / 0xffff
	}
	round2 := func(v float64) float64 { return math.Round(v*100) / 100 }

	price := round2(50 + unit(0)*2950)
	pe := round2(5 + unit(16)*90)
	roe := math.Round((0.02+unit(32)*0.28)*10000) / 10000
	de := round2(unit(48) * 250)

	return &types.Quote{
		Symbol:         symbol,
		Price:          &price,
		TrailingPE:     &pe,
		ReturnOnEquity: &roe,
		DebtToEquity:   &de,
		Source:         SourceMock,
	}
}
