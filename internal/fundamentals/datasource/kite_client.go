package datasource

import (
	"context"
	"fmt"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

const SourceKite = "KITE"

type ltpFetcher interface {
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
}

// KiteClient supplies last traded prices from Zerodha Kite. It only
// overlays price on a quote found elsewhere; Kite has no fundamentals.
type KiteClient struct {
	kc       ltpFetcher
	exchange string
}

// NewKiteClient creates a Kite price overlay using an existing session token
func NewKiteClient(apiKey, accessToken, exchange string) *KiteClient {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	if exchange == "" {
		exchange = "NSE"
	}
	return &KiteClient{kc: kc, exchange: exchange}
}

// LastPrice returns the LTP for symbol (exchange suffix optional)
func (k *KiteClient) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	instrument := fmt.Sprintf("%s:%s", k.exchange, NormalizeSymbol(symbol))
	ltp, err := k.kc.GetLTP(instrument)
	if err != nil {
		return 0, fmt.Errorf("kite LTP %s: %w", instrument, err)
	}

	q, ok := ltp[instrument]
	if !ok || q.LastPrice <= 0 {
		return 0, fmt.Errorf("kite LTP %s: no price", instrument)
	}
	return q.LastPrice, nil
}
