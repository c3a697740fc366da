package analytics

import (
	"fmt"
	"strconv"
)

// NotAvailable is the display text of an undefined value
const NotAvailable = "n/a"

// FormatCount abbreviates large counts: 1500 -> 1.5K, 2300000 -> 2.3M
func FormatCount(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", n/1_000)
	case n == float64(int64(n)):
		return strconv.FormatInt(int64(n), 10)
	default:
		return fmt.Sprintf("%.2f", n)
	}
}

// FormatPercent renders a percentage with two decimals
func FormatPercent(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f%%", *v)
}

// FormatCurrency renders a dollar amount with two decimals
func FormatCurrency(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("$%.2f", *v)
}

// FormatDecimal renders v with two decimals
func FormatDecimal(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatOptionalCount is FormatCount for possibly undefined values
func FormatOptionalCount(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return FormatCount(*v)
}
