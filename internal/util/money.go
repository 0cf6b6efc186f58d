package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyToken matches a currency-marked amount: either symbol-prefixed
// ("$12.50", "€ 1,204.99") or a bare cents-form number ("15.70").
var CurrencyToken = regexp.MustCompile(`-?[$£€]\s*-?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|-?\d{1,3}(?:,\d{3})*\.\d{2}\b`)

// SymbolToken matches only symbol-marked amounts. Line-item detection uses
// this stricter form so quantity columns are not mistaken for prices.
var SymbolToken = regexp.MustCompile(`-?[$£€]\s*-?\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?`)

// ParseAmount turns a currency token into an exact decimal. Currency symbols,
// spaces and thousand separators are stripped; the sign is preserved so the
// validator can reject negatives explicitly.
func ParseAmount(token string) (decimal.Decimal, error) {
	s := strings.TrimSpace(token)
	s = strings.NewReplacer("$", "", "£", "", "€", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount token")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", token, err)
	}
	return d, nil
}

// FormatAmount renders an amount the way the route sheet displays money.
func FormatAmount(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
