package models

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency is the only currency the café charges in.
var Currency = currency.BRL

// FormatBRL renders an amount the way receipts and kitchen cards show it: "R$ 13.00".
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

// ParseCurrency validates a stored ISO code against the café currency.
func ParseCurrency(code string) (currency.Unit, error) {
	return currency.ParseISO(code)
}
