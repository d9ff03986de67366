// Package isbn validates and normalizes ISBN identifiers.
package isbn

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is returned when an input is not a structurally valid ISBN.
var ErrInvalid = errors.New("invalid ISBN")

var runPattern = regexp.MustCompile(`[0-9][0-9\- ]*[0-9]|[0-9]`)

// Normalize strips hyphens and spaces from an ISBN string.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

// IsValid13 reports whether s is exactly 13 ASCII digits with a valid
// EAN-13 checksum (alternating weights 1 and 3).
func IsValid13(s string) bool {
	if len(s) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

// From10 converts a valid ISBN-10 to its canonical ISBN-13 form.
// The check digit of the input may be 'X' or 'x'. Returns ErrInvalid when
// the input is not a structurally valid ISBN-10.
func From10(s string) (string, error) {
	s = Normalize(s)
	if len(s) != 10 {
		return "", fmt.Errorf("%w: expected 10 characters, got %d", ErrInvalid, len(s))
	}

	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case (c == 'X' || c == 'x') && i == 9:
			d = 10
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalid, c)
		}
		sum += (10 - i) * d
	}
	if sum%11 != 0 {
		return "", fmt.Errorf("%w: ISBN-10 checksum mismatch", ErrInvalid)
	}

	body := "978" + s[:9]
	return body + string(rune('0'+checkDigit13(body))), nil
}

// checkDigit13 computes the EAN-13 check digit for a 12-digit body.
func checkDigit13(body string) int {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// Extract scans free text for ISBN-13 candidates. Digit runs may be hyphen
// or space separated; each run is normalized to bare digits and kept only if
// it passes the checksum. Results are deduplicated in order of first
// appearance. Never fails: no candidates yields an empty slice.
func Extract(text string) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(candidate string) {
		if len(candidate) == 13 && IsValid13(candidate) && !seen[candidate] {
			seen[candidate] = true
			out = append(out, candidate)
		}
	}

	for _, run := range runPattern.FindAllString(text, -1) {
		add(Normalize(run))
		// A run can glue several space-separated numbers together; test
		// the individual groups as well.
		for _, group := range strings.Fields(run) {
			add(Normalize(group))
		}
	}
	return out
}
