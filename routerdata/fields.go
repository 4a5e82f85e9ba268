package routerdata

import (
	"strconv"
	"strings"
)

// splitField splits a semicolon-delimited sub-record into its
// positional values, normalising the router's decimal commas to dots.
func splitField(field string) []string {
	return strings.Split(strings.Replace(field, ",", ".", -1), ";")
}

// tok returns the i'th value of a split sub-record, or "" if the
// sub-record has fewer values than that.
func tok(vals []string, i int) string {
	if i < 0 || i >= len(vals) {
		return ""
	}
	return vals[i]
}

// atoiField parses an integer value, yielding 0 for anything that
// doesn't parse. The router pads some values with spaces.
func atoiField(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

// floatField parses a floating point value, yielding 0 for anything
// that doesn't parse.
func floatField(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// hexToInt interprets s as a two's-complement hexadecimal value.
// Values of four digits or fewer are first widened with two zero
// digits, giving a minimum width of 24 bits. That widening matches
// the router's firmware, which the counter scaling constants were
// tuned against; it must not be normalised to a 16 or 32 bit scheme.
// Malformed input yields 0.
func hexToInt(s string) int64 {
	if len(s) <= 4 {
		s = "00" + s
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	bits := uint(4 * len(s))
	if bits >= 64 {
		return int64(v)
	}
	if v >= 1<<(bits-1) {
		return int64(v) - 1<<bits
	}
	return int64(v)
}
