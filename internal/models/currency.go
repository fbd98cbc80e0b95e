package models

import (
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var currencySymbols = map[Currency]string{
	CurrencyEUR: "€",
	CurrencyUSD: "$",
	CurrencyGBP: "£",
	CurrencyDZD: "دج",
}

// CurrencySymbol returns the display symbol for a currency code. Unknown
// codes fall back to the dinar symbol.
func CurrencySymbol(code Currency) string {
	if s, ok := currencySymbols[Currency(strings.ToLower(strings.TrimSpace(string(code))))]; ok {
		return s
	}
	return currencySymbols[CurrencyDZD]
}

// FormatAmount renders an amount with two decimals, thousands separators and
// the currency symbol. The dinar symbol trails the number; others lead it.
func FormatAmount(amount decimal.Decimal, code Currency) string {
	sym := CurrencySymbol(code)
	num := groupThousands(amount.Abs().StringFixed(2))
	if amount.IsNegative() {
		num = "-" + num
	}
	if sym == currencySymbols[CurrencyDZD] {
		return num + " " + sym
	}
	return sym + num
}

func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	n, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return s
	}
	grouped := humanize.BigComma(n)
	if frac == "" {
		return grouped
	}
	return grouped + "." + frac
}
