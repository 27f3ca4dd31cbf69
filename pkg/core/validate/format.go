package validate

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotAvailable is rendered in place of any non-finite number.
const NotAvailable = "n/a"

var printer = message.NewPrinter(language.English)

func displayable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatCurrency renders whole dollars with thousands separators: $1,234,567.
func FormatCurrency(v float64) string {
	if !displayable(v) {
		return NotAvailable
	}
	if v < 0 {
		return "-" + printer.Sprintf("$%.0f", -v)
	}
	return printer.Sprintf("$%.0f", v)
}

// FormatPercent renders a decimal rate as a percentage: 0.0525 -> 5.25%.
func FormatPercent(v float64) string {
	if !displayable(v) {
		return NotAvailable
	}
	return printer.Sprintf("%.2f%%", v*100)
}

// FormatRatio renders a coverage ratio such as DSCR: 1.25.
func FormatRatio(v float64) string {
	if !displayable(v) {
		return NotAvailable
	}
	return printer.Sprintf("%.2f", v)
}

// FormatMultiple renders an equity multiple: 1.85x.
func FormatMultiple(v float64) string {
	if !displayable(v) {
		return NotAvailable
	}
	return printer.Sprintf("%.2fx", v)
}

// FormatNumber renders a bare value in its shortest form.
func FormatNumber(v float64) string {
	if !displayable(v) {
		return NotAvailable
	}
	return printer.Sprintf("%v", v)
}
