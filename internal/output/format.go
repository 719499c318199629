package output

import (
	"fmt"
	"regexp"
)

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}

	str := fmt.Sprintf("%d", n)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}

	if negative {
		return "-" + result
	}
	return result
}

// FormatCompact formats a number with a K/M/bn suffix for KPI cards
func FormatCompact(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fbn", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// FormatCost formats a cost value as currency with thousand separators
func FormatCost(cost float64) string {
	formatted := fmt.Sprintf("%.2f", cost)
	dot := len(formatted) - 3
	intPart, decPart := formatted[:dot], formatted[dot:]

	sign := ""
	if intPart[0] == '-' {
		sign = "-"
		intPart = intPart[1:]
	}

	result := ""
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return "$" + sign + result + decPart
}

// FormatCostPrecise formats small per-event costs with four decimals
func FormatCostPrecise(cost float64) string {
	return fmt.Sprintf("$%.4f", cost)
}

var (
	modelWithDate    = regexp.MustCompile(`^claude-(\w+)-([\d-]+)-(\d{8})$`)
	modelWithoutDate = regexp.MustCompile(`^claude-(\w+)-([\d-]+)$`)
)

// ShortenModelName converts full model names to short form:
// claude-sonnet-4-5-20250929 -> sonnet-4-5
func ShortenModelName(name string) string {
	if m := modelWithDate.FindStringSubmatch(name); m != nil {
		return fmt.Sprintf("%s-%s", m[1], m[2])
	}
	if m := modelWithoutDate.FindStringSubmatch(name); m != nil {
		return fmt.Sprintf("%s-%s", m[1], m[2])
	}
	return name
}
