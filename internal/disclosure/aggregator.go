package disclosure

import (
	"sort"

	"github.com/shopspring/decimal"

	"insider-radar/internal/types"
)

// crore is the Indian 10^7 unit the aggregated value is expressed in
var crore = decimal.NewFromInt(10_000_000)

type group struct {
	sum     decimal.Decimal
	filings int
}

// Aggregate sums classified records per symbol and ranks companies by value
// in crore, largest first. Symbols are compared exactly (no case folding);
// rows without a symbol are dropped. Groups start out in ascending symbol
// order so ties keep a deterministic, input-order-independent ranking.
func Aggregate(records []types.DisclosureRecord) []types.AggregatedSignal {
	groups := make(map[string]*group)
	for _, r := range records {
		if r.Symbol == "" {
			continue
		}
		g, ok := groups[r.Symbol]
		if !ok {
			g = &group{sum: decimal.Zero}
			groups[r.Symbol] = g
		}
		g.filings++
		if r.Value.Valid {
			g.sum = g.sum.Add(r.Value.Decimal)
		}
	}

	symbols := make([]string, 0, len(groups))
	for s := range groups {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	signals := make([]types.AggregatedSignal, 0, len(symbols))
	for _, s := range symbols {
		g := groups[s]
		signals = append(signals, types.AggregatedSignal{
			Symbol:          s,
			TotalValue:      g.sum.InexactFloat64(),
			NormalizedValue: ToCrore(g.sum),
			Filings:         g.filings,
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].NormalizedValue > signals[j].NormalizedValue
	})

	return signals
}

// ToCrore converts a rupee amount to crore rounded to 2 decimals
func ToCrore(amount decimal.Decimal) float64 {
	return amount.Div(crore).Round(2).InexactFloat64()
}
