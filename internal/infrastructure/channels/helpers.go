package channels

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseMoney parses a channel-provided money string; empty means zero
func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// trimJoin joins non-empty name parts with a single space
func trimJoin(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
