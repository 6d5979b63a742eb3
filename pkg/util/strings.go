package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloatCell parses a numeric dataset cell. Empty cells and the usual
// missing-value spellings become NaN.
func ParseFloatCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na", "n/a":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
