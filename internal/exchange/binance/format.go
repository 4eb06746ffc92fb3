package binance

import (
	"strconv"
	"strings"
)

func formatQty(qty float64) string {
	return formatPlain(qty)
}

func formatPrice(price float64) string {
	return formatPlain(price)
}

// formatPlain печатает число без экспоненты: API не принимает "1e-05".
func formatPlain(val float64) string {
	formatted := strconv.FormatFloat(val, 'f', 12, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")
	if formatted == "" || formatted == "-0" {
		return "0"
	}
	return formatted
}
