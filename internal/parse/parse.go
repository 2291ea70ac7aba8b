// Package parse extracts numeric bounds from free-text listing fields.
package parse

import (
	"math"
	"strconv"
	"strings"
)

// Unbounded is the value assigned when no number can be extracted. It never
// satisfies a finite subscription bound, so unparseable listings fail safe.
const Unbounded int64 = math.MaxInt64

// Price extracts the numeric price from a price string such as "50 000 ₽/мес."
// Digit groups separated by spaces are joined; the first field without digits
// ends the number. Returns Unbounded when the text yields no digits.
func Price(text string) int64 {
	var digits strings.Builder
	for _, f := range strings.Fields(text) {
		d := keepDigits(f)
		if d == "" {
			break
		}
		digits.WriteString(d)
	}
	v, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return Unbounded
	}
	return v
}

// Distance extracts the first standalone integer from an address string,
// interpreted as minutes to transit ("5 мин от метро" -> 5). Returns
// Unbounded when no such token exists.
func Distance(address string) int64 {
	for _, word := range strings.Fields(address) {
		if !allDigits(word) {
			continue
		}
		v, err := strconv.ParseInt(word, 10, 64)
		if err != nil {
			return Unbounded
		}
		return v
	}
	return Unbounded
}

// PositiveInt parses user-entered text as a non-negative integer, for the
// subscription setup dialogue.
func PositiveInt(text string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
