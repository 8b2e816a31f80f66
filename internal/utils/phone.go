package utils

import (
	"strings"
	"unicode/utf8"
)

// MaskPhone keeps the last four characters of a caller number for logs.
// The unknown sentinel and short values pass through unchanged.
func MaskPhone(phone string) string {
	n := utf8.RuneCountInString(phone)
	if n <= 4 || phone == "unknown" {
		return phone
	}

	runes := []rune(phone)
	return strings.Repeat("*", n-4) + string(runes[n-4:])
}
