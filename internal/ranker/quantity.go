package ranker

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ParseQuantity coerces a raw requested quantity to a non-negative integer.
//
// Strings are read like a leading-integer parse: surrounding whitespace is
// ignored and digits are consumed up to the first non-digit, so "12abc" is 12
// and "3.7" is 3. Numbers are truncated toward zero. Anything that yields no
// integer, including nil and booleans, is 0, as is any negative result.
// Inputs that are not a clean non-negative integer are logged at debug level.
func ParseQuantity(raw any) int {
	var (
		n     int
		exact bool
	)
	switch v := raw.(type) {
	case nil:
		return 0
	case bool:
		slog.Debug("Invalid quantity", "value", v, "coerced", 0)
		return 0
	case string:
		n, exact = leadingInt(v)
	case json.Number:
		n, exact = leadingInt(v.String())
	default:
		i, err := cast.ToIntE(v)
		if err != nil {
			slog.Debug("Invalid quantity", "value", v, "coerced", 0, "error", err)
			return 0
		}
		n, exact = i, cast.ToFloat64(v) == float64(i)
	}
	if n < 0 || !exact {
		slog.Debug("Invalid quantity", "value", raw, "coerced", max(n, 0))
	}
	return max(n, 0)
}

// leadingInt parses the leading integer of s and reports whether it was the
// whole string. An empty string counts as exact.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, end == len(s)
}
