package entity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// FoldName returns a comparison key for a person's name: accents stripped,
// case folded and whitespace collapsed.
func FoldName(first, last string) string {
	full := strings.Join(strings.Fields(first+" "+last), " ")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, full)
	if err != nil {
		stripped = full
	}
	return folder.String(stripped)
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits only and drops an international "00" prefix,
// so "+44 (0)20-7946" and "00440207946" compare equal on the digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	return strings.TrimPrefix(digits, "00")
}
