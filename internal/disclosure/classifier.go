package disclosure

import (
	"strings"

	"insider-radar/internal/types"
)

// ParseRecords turns every table row into a DisclosureRecord using the binding
func ParseRecords(t *Table, b types.ColumnBinding) []types.DisclosureRecord {
	records := make([]types.DisclosureRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		raw := t.Cell(i, b.Value)
		records = append(records, types.DisclosureRecord{
			Row:             i + 1,
			ActorCategory:   t.Cell(i, b.Actor),
			TransactionType: t.Cell(i, b.Type),
			AcquisitionMode: t.Cell(i, b.Mode),
			RawValue:        raw,
			Value:           ParseValue(raw),
			Symbol:          t.Cell(i, b.Symbol),
		})
	}
	return records
}

// IsPromoterBuy reports whether a record is a promoter buying on the open market.
// All three checks are case-insensitive substring/prefix matches.
func IsPromoterBuy(r types.DisclosureRecord) bool {
	actor := strings.ToLower(r.ActorCategory)
	txType := strings.ToLower(r.TransactionType)
	mode := strings.ToLower(r.AcquisitionMode)

	if !strings.Contains(actor, "promoter") {
		return false
	}
	if !strings.Contains(txType, "buy") && !strings.Contains(txType, "acqui") {
		return false
	}
	return strings.HasPrefix(mode, "market p")
}

// Classify keeps the promoter open-market purchases, preserving input order
func Classify(records []types.DisclosureRecord) []types.DisclosureRecord {
	buys := make([]types.DisclosureRecord, 0)
	for _, r := range records {
		if IsPromoterBuy(r) {
			buys = append(buys, r)
		}
	}
	return buys
}
