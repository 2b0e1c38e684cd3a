package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency all prices are stored and computed in.
const BaseCurrency = "USD"

// Currency is an entry of the fixed conversion table.
type Currency struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`
	Rate   decimal.Decimal `json:"rate"` // units per 1 USD
}

var currencyTable = []Currency{
	{Code: "USD", Name: "US Dollar", Symbol: "$", Rate: decimal.NewFromInt(1)},
	{Code: "ZWL", Name: "Zimbabwean Dollar", Symbol: "ZWL", Rate: decimal.NewFromInt(25)},
	{Code: "ZAR", Name: "South African Rand", Symbol: "R", Rate: decimal.NewFromInt(18)},
	{Code: "GBP", Name: "British Pound", Symbol: "£", Rate: decimal.RequireFromString("0.79")},
	{Code: "EUR", Name: "Euro", Symbol: "€", Rate: decimal.RequireFromString("0.92")},
}

// Currencies returns the supported currencies in display order.
func Currencies() []Currency {
	out := make([]Currency, len(currencyTable))
	copy(out, currencyTable)
	return out
}

// LookupCurrency finds a currency by code, case-insensitively. An empty code means USD.
func LookupCurrency(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = BaseCurrency
	}
	for _, c := range currencyTable {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// Convert turns a USD amount into c.
func (c Currency) Convert(usd decimal.Decimal) decimal.Decimal {
	return usd.Mul(c.Rate)
}
