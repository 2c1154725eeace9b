// Package pii masks emails, phone numbers, and card-like digit runs in
// free-text chat input before it is persisted or forwarded upstream.
package pii

import (
	"fmt"
	"regexp"
)

var (
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// US-like phones: (123) 456-7890, 123-456-7890, +1 123 456 7890
	phoneRE = regexp.MustCompile(`(\+?\d{1,3}[\s\-.()]*)?(\d{3}|\(\d{3}\))[\s\-.()]*\d{3}[\s\-.()]*\d{4}`)
	// Card-ish: 13-19 digits possibly spaced or dashed
	cardRE = regexp.MustCompile(`\b(?:\d[ \-]*){13,19}\b`)
)

// ScrubText replaces PII-looking substrings with masked placeholders that
// keep the first and last two characters for readability.
func ScrubText(text string) string {
	if text == "" {
		return text
	}
	out := emailRE.ReplaceAllStringFunc(text, masker("email"))
	out = phoneRE.ReplaceAllStringFunc(out, masker("phone"))
	out = cardRE.ReplaceAllStringFunc(out, masker("card"))
	return out
}

func masker(label string) func(string) string {
	return func(match string) string {
		if len(match) <= 6 {
			return fmt.Sprintf("[%s]", label)
		}
		return fmt.Sprintf("[%s:%s…%s]", label, match[:2], match[len(match)-2:])
	}
}
