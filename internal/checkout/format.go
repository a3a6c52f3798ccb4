package checkout

import "strings"

// Display formatting helpers used while collecting payment input. They never
// validate; they only normalize what the user is typing.

// FormatCardNumber strips everything but digits and groups the first 16
// digits into blocks of 4 separated by single spaces. Fewer than 4 digits
// come back ungrouped.
func FormatCardNumber(value string) string {
	digits := keepDigits(value)
	if len(digits) < 4 {
		return digits
	}
	if len(digits) > 16 {
		digits = digits[:16]
	}

	var parts []string
	for i := 0; i < len(digits); i += 4 {
		end := i + 4
		if end > len(digits) {
			end = len(digits)
		}
		parts = append(parts, digits[i:end])
	}
	return strings.Join(parts, " ")
}

// FormatExpiryDate strips non-digits and inserts a slash after the second
// digit once at least 2 digits are present.
func FormatExpiryDate(value string) string {
	digits := keepDigits(value)
	if len(digits) < 2 {
		return digits
	}
	if len(digits) > 4 {
		digits = digits[:4]
	}
	return digits[:2] + "/" + digits[2:]
}

// FormatPhoneNumber strips all characters except digits and plus signs.
// A +45 number gets its remaining digits grouped in pairs (up to 8) behind
// a "+45 " prefix; a bare 8-digit number is grouped in pairs; anything else
// comes back unchanged after stripping.
func FormatPhoneNumber(value string) string {
	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	v := b.String()

	if strings.HasPrefix(v, "+45") {
		digits := v[3:]
		if len(digits) > 8 {
			digits = digits[:8]
		}
		return "+45 " + strings.Join(pairs(digits), " ")
	}

	if len(v) == 8 {
		return strings.Join(pairs(v), " ")
	}

	return v
}

func pairs(digits string) []string {
	var out []string
	for i := 0; i < len(digits); i += 2 {
		end := i + 2
		if end > len(digits) {
			end = len(digits)
		}
		out = append(out, digits[i:end])
	}
	return out
}

func keepDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
