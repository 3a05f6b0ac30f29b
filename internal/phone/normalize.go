// Package phone canonicalizes raw phone-number strings into the +31 key
// used as the dedup identity across the leads and blacklist tables.
package phone

import "strings"

// CountryPrefix is the canonical prefix of every accepted key.
const CountryPrefix = "+31"

// subscriberDigits is the exact national number length after prefix
// stripping. Anything longer (extensions, pasted garbage) is rejected
// outright, never truncated.
const subscriberDigits = 9

// Normalize maps a raw spreadsheet cell to a canonical phone key.
// The second return is false when the input does not represent a valid
// Dutch subscriber number.
//
// The international prefix strip is a sequence of independent checks:
// "0031" first, then "31", then a single leading "0" — so "0031 0 6..."
// style double prefixes collapse correctly.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, "0031") {
		digits = digits[4:]
	}
	if strings.HasPrefix(digits, "31") {
		digits = digits[2:]
	}
	if strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}

	if len(digits) != subscriberDigits {
		return "", false
	}
	return CountryPrefix + digits, true
}
