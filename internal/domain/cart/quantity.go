package cart

import (
	"math"
	"strings"
)

// ParseQuantity converts user input to a quantity the way a browser's
// parseInt does: optional leading whitespace and sign, then the longest run
// of decimal digits. Input without leading digits yields fallback. Values
// beyond the int32 range saturate at its limits, so bound checks still see
// them as out of range.
func ParseQuantity(raw string, fallback int) int {
	s := strings.TrimLeft(raw, " \t\n\r\f\v")

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	var n int64
	digits := 0
	for ; digits < len(s); digits++ {
		c := s[digits]
		if c < '0' || c > '9' {
			break
		}
		n = min(n*10+int64(c-'0'), math.MaxInt32)
	}
	if digits == 0 {
		return fallback
	}
	if neg {
		n = -n
	}
	return int(n)
}
