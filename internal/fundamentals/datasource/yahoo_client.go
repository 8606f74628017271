package datasource

import (
	"context"
	"fmt"

	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"insider-radar/internal/types"
)

const SourceYahoo = "YAHOO"

// YahooClient reads the Yahoo Finance quote summary through go-yfinance
type YahooClient struct {
	// fetch is swapped in tests
	fetch func(symbol string) (*models.Info, error)
}

// NewYahooClient creates a Yahoo Finance quote provider
func NewYahooClient() *YahooClient {
	return &YahooClient{fetch: fetchYahooInfo}
}

func (y *YahooClient) Name() string { return SourceYahoo }

// Lookup expects an exchange-qualified symbol such as "TCS.NS"
func (y *YahooClient) Lookup(ctx context.Context, symbol string) (*types.Quote, error) {
	type result struct {
		info *models.Info
		err  error
	}

	// go-yfinance has no context support, so the call is abandoned (not
	// aborted) when ctx ends
	done := make(chan result, 1)
	go func() {
		info, err := y.fetch(symbol)
		done <- result{info, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("yahoo lookup %s: %w", symbol, res.err)
	}

	quote := quoteFromInfo(symbol, res.info)
	if quote.Empty() {
		return nil, fmt.Errorf("yahoo lookup %s: %w", symbol, types.ErrNoQuoteData)
	}
	return quote, nil
}

func fetchYahooInfo(symbol string) (*models.Info, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	info, err := t.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to get info: %w", err)
	}
	return info, nil
}

// quoteFromInfo keeps only populated fields. ROE may legitimately be
// negative; P/E, price and D/E are only reported when positive.
func quoteFromInfo(symbol string, info *models.Info) *types.Quote {
	q := &types.Quote{Symbol: symbol, Source: SourceYahoo}
	if info == nil {
		return q
	}

	// copy before taking addresses
	if info.CurrentPrice > 0 {
		price := info.CurrentPrice
		q.Price = &price
	}
	if info.TrailingPE > 0 {
		pe := info.TrailingPE
		q.TrailingPE = &pe
	}
	if info.ReturnOnEquity != 0 {
		roe := info.ReturnOnEquity
		q.ReturnOnEquity = &roe
	}
	if info.DebtToEquity > 0 {
		de := info.DebtToEquity
		q.DebtToEquity = &de
	}
	return q
}
