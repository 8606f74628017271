// Package fundamentals merges external valuation metrics into the ranked
// promoter-buying list
package fundamentals

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"insider-radar/internal/interfaces"
	"insider-radar/internal/logger"
	"insider-radar/internal/types"
)

// DefaultConcurrency is the worker pool size when none is configured
const DefaultConcurrency = 4

// Enricher looks up fundamentals for the top of a ranked signal list
type Enricher struct {
	provider    interfaces.QuoteProvider
	suffix      string
	concurrency int
}

// NewEnricher creates an enricher. suffix is appended to each symbol before
// lookup (".NS" for NSE listings on Yahoo).
func NewEnricher(provider interfaces.QuoteProvider, suffix string, concurrency int) *Enricher {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Enricher{
		provider:    provider,
		suffix:      suffix,
		concurrency: concurrency,
	}
}

// Enrich returns exactly min(topN, len(signals)) candidates in the input's
// rank order. A failed lookup zeroes that candidate only. sink (optional)
// receives one Progress per finished lookup, in completion order.
//
// If ctx is cancelled, no further lookups start and ctx.Err() is returned
// with no candidates, so callers never see a partially enriched list.
func (e *Enricher) Enrich(ctx context.Context, signals []types.AggregatedSignal, topN int, sink interfaces.ProgressSink) ([]types.EnrichedCandidate, error) {
	n := topN
	if n > len(signals) {
		n = len(signals)
	}
	if n <= 0 {
		return []types.EnrichedCandidate{}, nil
	}

	op := logger.StartOperation(ctx, "fundamentals.enrich",
		"total", n,
		"provider", e.provider.Name(),
		"workers", e.concurrency)
	ctx = op.GetContext()

	results := make([]types.EnrichedCandidate, n)
	jobs := make(chan int)

	var (
		progressMu sync.Mutex
		completed  int
		degraded   int
	)
	report := func(c types.EnrichedCandidate) {
		progressMu.Lock()
		defer progressMu.Unlock()
		completed++
		if c.Degraded() {
			degraded++
		}
		if sink != nil {
			sink.OnProgress(types.Progress{
				Index:    completed,
				Total:    n,
				Symbol:   c.Symbol,
				Rank:     c.Rank,
				Degraded: c.Degraded(),
			})
		}
	}

	workers := e.concurrency
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				// each worker writes only results[i]
				results[i] = e.safeEnrichOne(ctx, signals[i], i+1)
				report(results[i])
			}
		}()
	}

dispatch:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		op.EndWithError(err, "completed", completed)
		return nil, err
	}

	op.End("degraded", degraded)
	logger.Info(ctx, "Enrichment complete", "candidates", n, "degraded", degraded)
	return results, nil
}

// safeEnrichOne turns a provider panic into a failed lookup for that
// candidate only
func (e *Enricher) safeEnrichOne(ctx context.Context, sig types.AggregatedSignal, rank int) (c types.EnrichedCandidate) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: provider panic: %v", types.ErrLookupFailed, r)
			logger.ErrorWithErr(ctx, "Quote provider panicked", err, "symbol", sig.Symbol)
			c = Merge(sig, rank, nil, err)
		}
	}()
	return e.enrichOne(ctx, sig, rank)
}

func (e *Enricher) enrichOne(ctx context.Context, sig types.AggregatedSignal, rank int) types.EnrichedCandidate {
	symbol := sig.Symbol + e.suffix
	quote, err := e.provider.Lookup(ctx, symbol)
	if err == nil && quote.Empty() {
		err = types.ErrNoQuoteData
	}

	c := Merge(sig, rank, quote, err)
	if err != nil {
		logger.Lookup(ctx, sig.Symbol, e.provider.Name(), true, "error", err.Error())
	} else {
		logger.Lookup(ctx, sig.Symbol, c.Source, false, "pe", c.PERatio, "roe_pct", c.ROEPercent)
	}
	return c
}

// Merge builds a candidate from a signal and a lookup result. On error every
// fundamentals field is zero; otherwise absent or non-finite fields are zero
// with their availability flag unset.
func Merge(sig types.AggregatedSignal, rank int, q *types.Quote, err error) types.EnrichedCandidate {
	c := types.EnrichedCandidate{AggregatedSignal: sig, Rank: rank}
	if err != nil {
		c.LookupError = err.Error()
		return c
	}
	if q == nil {
		return c
	}

	c.Source = q.Source
	if v, ok := finite(q.Price); ok {
		c.Price = v
		c.Available.Price = true
	}
	if v, ok := finite(q.TrailingPE); ok {
		c.PERatio = v
		c.Available.PE = true
	}
	if v, ok := finite(q.ReturnOnEquity); ok {
		c.ROEPercent = FractionToPercent(v)
		c.Available.ROE = true
	}
	if v, ok := finite(q.DebtToEquity); ok {
		c.DebtToEquity = v
		c.Available.DebtToEquity = true
	}
	return c
}

func finite(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// FractionToPercent converts 0.1834 to 18.34 (rounded to 2 decimals).
// Non-finite input yields 0.
func FractionToPercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
