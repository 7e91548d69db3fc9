package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims and collapses internal whitespace runs to a single
// space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var rePhoneStrip = regexp.MustCompile(`[\s\-().]+`)

// NormalizePhone strips separators, keeping digits and an optional leading
// plus. Anything else comes back empty.
func NormalizePhone(phone string) string {
	phone = rePhoneStrip.ReplaceAllString(strings.TrimSpace(phone), "")
	if phone == "" {
		return ""
	}

	digits := phone
	if strings.HasPrefix(phone, "+") {
		digits = phone[1:]
	}
	if digits == "" {
		return ""
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return phone
}

// NormalizeSlotTime canonicalizes display times like "10:00 AM" to uppercase
// with single spacing. It does not validate against a schedule grid.
func NormalizeSlotTime(t string) string {
	return strings.ToUpper(TrimAndNormalize(t))
}
