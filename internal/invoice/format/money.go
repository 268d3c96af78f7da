package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money rounds half away from zero to two places for display.
func Money(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// Rupees formats amount with the rupee sign and Indian digit grouping, e.g. ₹12,34,567.50.
func Rupees(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount.Round(2).IsNegative() {
		b.WriteString("-")
	}
	b.WriteString("₹")
	b.WriteString(groupIndian(whole))
	b.WriteString(".")
	b.WriteString(frac)
	return b.String()
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	parts := make([]string, 0, len(head)/2+1)
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
