package tracking

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrAmountNotNumber   = errors.New("amount is not a number")
	ErrAmountNotPositive = errors.New("amount must be positive")
)

// ParseAmount reads a positive decimal, accepting a comma as the decimal
// separator.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrAmountNotNumber
	}
	if v <= 0 {
		return 0, ErrAmountNotPositive
	}
	return v, nil
}
