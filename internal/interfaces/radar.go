package interfaces

import (
	"context"
	"io"

	"insider-radar/internal/types"
)

// QuoteProvider looks up fundamentals for one exchange-qualified symbol (e.g. "ABC.NS")
type QuoteProvider interface {
	// Name identifies the provider in logs, metrics and candidate rows
	Name() string

	// Lookup returns the quote for symbol or an error; a nil error with an
	// empty quote is treated by callers as a failure
	Lookup(ctx context.Context, symbol string) (*types.Quote, error)
}

// ProgressSink receives incremental enrichment progress
type ProgressSink interface {
	OnProgress(p types.Progress)
}

// ProgressFunc adapts a function to ProgressSink
type ProgressFunc func(p types.Progress)

func (f ProgressFunc) OnProgress(p types.Progress) { f(p) }

// DisclosureSource supplies a raw disclosure CSV
type DisclosureSource interface {
	// Open returns the CSV stream and a human readable origin (file name or url)
	Open(ctx context.Context) (io.ReadCloser, string, error)
}
