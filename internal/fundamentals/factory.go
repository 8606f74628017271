package fundamentals

import (
	"context"
	"fmt"
	"time"

	"insider-radar/internal/fundamentals/datasource"
	"insider-radar/internal/interfaces"
	"insider-radar/internal/logger"
	"insider-radar/internal/store"
	"insider-radar/internal/types"
)

// KiteCredentials enable the Kite last-traded-price overlay when both are set
type KiteCredentials struct {
	APIKey      string
	AccessToken string
}

func (k KiteCredentials) valid() bool {
	return k.APIKey != "" && k.AccessToken != ""
}

// CreateQuoteProvider builds the quote provider chosen by configuration.
// observer may be nil.
func CreateQuoteProvider(cfg *store.Config, kite KiteCredentials, observer datasource.Observer) (interfaces.QuoteProvider, error) {
	if cfg == nil {
		cfg = store.Default()
	}
	f := cfg.Fundamentals

	switch f.Source {
	case store.SourceMock:
		return datasource.NewMockClient(), nil

	case store.SourceLive:
		timeout := time.Duration(f.LookupTimeoutSeconds) * time.Second

		providers := make([]interfaces.QuoteProvider, 0, len(f.Sources))
		for _, name := range f.Sources {
			switch name {
			case store.ProviderYahoo:
				providers = append(providers, datasource.NewYahooClient())
			case store.ProviderScreener:
				providers = append(providers, datasource.NewScreenerClient(f.Screener.BaseURL, timeout))
			default:
				return nil, fmt.Errorf("%w: %s (valid options: YAHOO, SCREENER)", types.ErrUnknownSource, name)
			}
		}

		lds := datasource.NewLiveDataSource(datasource.LiveDataSourceConfig{
			LookupTimeout: timeout,
			RateLimitRPS:  f.RateLimitRPS,
			Burst:         f.Burst,
			CacheTTL:      time.Duration(f.CacheTTLMinutes) * time.Minute,
			Breaker: datasource.BreakerSettings{
				MaxFailures: f.Breaker.MaxFailures,
				OpenTimeout: time.Duration(f.Breaker.OpenSeconds) * time.Second,
				Interval:    time.Duration(f.Breaker.IntervalSeconds) * time.Second,
			},
		}, providers...)

		if observer != nil {
			lds.WithObserver(observer)
		}

		if f.Kite.Enabled {
			if kite.valid() {
				lds.WithPriceOverlay(datasource.NewKiteClient(kite.APIKey, kite.AccessToken, f.Kite.Exchange))
			} else {
				logger.Warn(context.Background(), "Kite price overlay enabled but KITE_API_KEY/KITE_ACCESS_TOKEN not set, skipping")
			}
		}

		return lds, nil

	default:
		return nil, fmt.Errorf("%w: %s (valid options: MOCK, LIVE)", types.ErrUnknownSource, f.Source)
	}
}
