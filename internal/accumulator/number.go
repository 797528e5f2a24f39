package accumulator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNotANumber = errors.New("not a number")

// ParseNumber parses typed number text as a float64. It accepts plain decimal
// and exponent notation plus "inf" and "NaN", and rejects hexadecimal floats.
// Out-of-range input saturates to ±inf or 0 instead of failing.
func ParseNumber(s string) (float64, error) {
	lower := strings.ToLower(s)
	if strings.Contains(lower, "0x") {
		return 0, fmt.Errorf("%w: %q", errNotANumber, s)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return v, nil
		}
		return 0, fmt.Errorf("%w: %q", errNotANumber, s)
	}

	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
