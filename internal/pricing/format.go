package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount with the currency symbol, two decimals and thousands separators.
// ZWL is written with a space after the code ("ZWL 1,250.00").
func FormatMoney(amount decimal.Decimal, c Currency) string {
	s := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if amount.IsNegative() && !amount.Round(2).IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(c.Symbol)
	if c.Code == "ZWL" {
		b.WriteByte(' ')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
