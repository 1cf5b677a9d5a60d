// Package pricetext turns cleaned price strings into an amount and a currency symbol.
package pricetext

import (
	"regexp"
	"strconv"
)

var (
	// \p{Z} covers no-break and narrow no-break spaces that \s misses.
	currencyExpr = regexp.MustCompile(`[^\d.,\s\p{Z}-]+`)
	amountNoise  = regexp.MustCompile(`[^\d.-]`)
	amountPrefix = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// ExtractCurrency returns the first run of characters that are not digits,
// separators, whitespace or minus signs. It returns "" when there is none.
func ExtractCurrency(text string) string {
	return currencyExpr.FindString(text)
}

// ExtractAmount drops everything except digits, '.' and '-' and parses the
// longest leading number of the rest, so "10.00-12.00" yields 10.
// Input without a leading number yields 0.
func ExtractAmount(text string) float64 {
	digits := amountPrefix.FindString(amountNoise.ReplaceAllString(text, ""))
	if digits == "" {
		return 0
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}
	return v
}

// Parse splits a cleaned price string into amount and currency.
func Parse(text string) (float64, string) {
	return ExtractAmount(text), ExtractCurrency(text)
}
