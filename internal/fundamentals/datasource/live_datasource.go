package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	cb "github.com/sony/gobreaker"

	"insider-radar/internal/interfaces"
	"insider-radar/internal/logger"
	"insider-radar/internal/types"
)

const SourceLive = "LIVE"

// Lookup outcomes reported to the Observer
const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeError   = "error"
	OutcomeOpen    = "breaker_open"
	OutcomeCached  = "cached"
	OutcomeTimeout = "timeout"
)

// Observer receives per-source lookup outcomes (metrics)
type Observer interface {
	ObserveLookup(source, outcome string, d time.Duration)
}

// PriceOverlay supplies a fresher last traded price than the quote source
type PriceOverlay interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// LiveDataSourceConfig holds configuration for the live quote chain
type LiveDataSourceConfig struct {
	// LookupTimeout bounds a single source call; zero means no bound
	LookupTimeout time.Duration
	RateLimitRPS  float64
	Burst         int
	CacheTTL      time.Duration
	Breaker       BreakerSettings
}

// LiveDataSource asks each provider in order and returns the first usable
// quote. Each provider is rate limited and guarded by its own breaker.
type LiveDataSource struct {
	providers   []interfaces.QuoteProvider
	rateLimiter *MultiRateLimiter
	breakers    *BreakerSet
	memo        *Memo
	overlay     PriceOverlay
	observer    Observer
	timeout     time.Duration
}

var _ interfaces.QuoteProvider = (*LiveDataSource)(nil)

// NewLiveDataSource creates the fallback chain over providers
func NewLiveDataSource(config LiveDataSourceConfig, providers ...interfaces.QuoteProvider) *LiveDataSource {
	lds := &LiveDataSource{
		providers:   providers,
		rateLimiter: NewMultiRateLimiter(config.RateLimitRPS, config.Burst),
		breakers:    NewBreakerSet(config.Breaker),
		memo:        NewMemo(config.CacheTTL),
		timeout:     config.LookupTimeout,
	}
	lds.breakers.OnStateChange(func(name, from, to string) {
		logger.Warn(context.Background(), "Quote source breaker changed state", "source", name, "from", from, "to", to)
	})
	return lds
}

// WithPriceOverlay sets a last-traded-price source applied after a hit
func (lds *LiveDataSource) WithPriceOverlay(o PriceOverlay) *LiveDataSource {
	lds.overlay = o
	return lds
}

// WithObserver sets the metrics observer
func (lds *LiveDataSource) WithObserver(o Observer) *LiveDataSource {
	lds.observer = o
	return lds
}

func (lds *LiveDataSource) Name() string { return SourceLive }

// SourceHealth reports the breaker state of each provider
func (lds *LiveDataSource) SourceHealth() map[string]string {
	states := lds.breakers.States()
	for _, p := range lds.providers {
		if _, ok := states[p.Name()]; !ok {
			states[p.Name()] = cb.StateClosed.String()
		}
	}
	return states
}

// Providers lists the provider names in fallback order
func (lds *LiveDataSource) Providers() []string {
	names := make([]string, len(lds.providers))
	for i, p := range lds.providers {
		names[i] = p.Name()
	}
	return names
}

func (lds *LiveDataSource) observe(source, outcome string, d time.Duration) {
	if lds.observer != nil {
		lds.observer.ObserveLookup(source, outcome, d)
	}
}

// Lookup returns the first usable quote from the provider chain. The error
// wraps types.ErrLookupFailed and every provider error when all fail.
func (lds *LiveDataSource) Lookup(ctx context.Context, symbol string) (*types.Quote, error) {
	if len(lds.providers) == 0 {
		return nil, fmt.Errorf("%w: no quote sources configured", types.ErrLookupFailed)
	}

	quote, cached, err := lds.memo.GetOrFetch(MakeKey("quote", symbol), func() (*types.Quote, error) {
		return lds.fetch(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	if cached {
		lds.observe(quote.Source, OutcomeCached, 0)
		logger.Debug(ctx, "Returning memoized quote", "symbol", symbol, "source", quote.Source)
	}
	return quote, nil
}

func (lds *LiveDataSource) fetch(ctx context.Context, symbol string) (*types.Quote, error) {
	var errs []error

	for _, p := range lds.providers {
		name := p.Name()

		if err := lds.rateLimiter.Wait(ctx, name); err != nil {
			return nil, err
		}

		start := time.Now()
		res, err := lds.breakers.Execute(name, func() (any, error) {
			callCtx := ctx
			if lds.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, lds.timeout)
				defer cancel()
			}
			return p.Lookup(callCtx, symbol)
		})
		elapsed := time.Since(start)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if err != nil {
			outcome := OutcomeError
			switch {
			case errors.Is(err, cb.ErrOpenState), errors.Is(err, cb.ErrTooManyRequests):
				outcome = OutcomeOpen
			case errors.Is(err, context.DeadlineExceeded):
				outcome = OutcomeTimeout
			case errors.Is(err, types.ErrNoQuoteData):
				outcome = OutcomeMiss
			}
			lds.observe(name, outcome, elapsed)
			logger.Warn(ctx, "Quote source failed, trying next", "symbol", symbol, "source", name, "outcome", outcome, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		quote, _ := res.(*types.Quote)
		if quote.Empty() {
			lds.observe(name, OutcomeMiss, elapsed)
			errs = append(errs, fmt.Errorf("%s: %w", name, types.ErrNoQuoteData))
			continue
		}

		lds.observe(name, OutcomeHit, elapsed)
		quote.Source = name
		lds.applyOverlay(ctx, symbol, quote)
		return quote, nil
	}

	return nil, fmt.Errorf("%w for %s: %w", types.ErrLookupFailed, symbol, errors.Join(errs...))
}

func (lds *LiveDataSource) applyOverlay(ctx context.Context, symbol string, quote *types.Quote) {
	if lds.overlay == nil {
		return
	}
	price, err := lds.overlay.LastPrice(ctx, symbol)
	if err != nil {
		logger.Debug(ctx, "Price overlay unavailable, keeping quote price", "symbol", symbol, "error", err)
		return
	}
	quote.Price = &price
}
