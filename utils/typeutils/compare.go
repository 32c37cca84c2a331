package typeutils

import (
	"strconv"
	"strings"
)

// Compare orders two metadata values: 0 for equal, -1 if a < b, 1 if
// a > b. Values that both parse as numbers compare numerically, anything
// else lexically, so "9" sorts below "10" but "B" stays above "A10".
func Compare(a, b string) int {
	aNum, aOk := Numeric(a)
	bNum, bOk := Numeric(b)
	if aOk && bOk {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// Numeric parses s as a float64, reporting whether it is a number.
func Numeric(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
