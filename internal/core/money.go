// Package core provides money presentation helpers.
//
// Amounts are carried as float64 through every sum and only rounded here,
// at the point they are rendered into a report cell or a print view.
package core

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Fixed2 renders v with exactly two decimals and no grouping, e.g. "1234.50".
// This is the form written to exports.
func Fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Display renders v for print views with thousands separators, e.g. "$1,234.50".
func Display(v float64) string {
	r := Round2(v)
	if r < 0 {
		return printer.Sprintf("-$%.2f", -r)
	}
	return printer.Sprintf("$%.2f", r)
}
