package disclosure

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPrefixes = []string{"₹", "rs.", "rs", "inr"}

var missingMarkers = map[string]bool{
	"":    true,
	"-":   true,
	"--":  true,
	"nil": true,
	"na":  true,
	"n/a": true,
	"nan": true,
}

// ParseValue coerces a transaction value cell to a decimal. Anything that is
// not numeric after stripping separators and a currency prefix comes back
// with Valid=false; it never errors.
func ParseValue(raw string) decimal.NullDecimal {
	s := strings.ToLower(strings.TrimSpace(raw))
	if missingMarkers[s] {
		return decimal.NullDecimal{}
	}

	for _, p := range currencyPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
