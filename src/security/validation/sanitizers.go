package validation

import (
	"strings"
	"unicode"
)

// StripUnprintable removes non-printable characters from user-entered text
// fields, allowing common whitespace like space, tab, newline, and carriage
// return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1 // Drop the rune
	}, s)
}

// NormalizeSymbol uppercases a ticker symbol and truncates it at the first
// character a quote provider would choke on, so trailing garbage cannot be
// folded into a lookalike symbol. Dots, dashes and equals stay, for symbols
// like 005930.KS, BRK-B or KRW=X.
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(StripUnprintable(s)))
	for i, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '=' {
			continue
		}
		return s[:i]
	}
	return s
}

// SanitizeName trims and strips a free-text name field such as an account
// label.
func SanitizeName(s string) string {
	return strings.TrimSpace(StripUnprintable(s))
}
