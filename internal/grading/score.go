package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is the outcome of scoring one submission.
type Result struct {
	Score          float64
	TotalDeduction float64
}

// Calculate applies the selected deductions and the extra deduction to the
// full score. Names missing from points contribute nothing. The score never
// drops below zero; no rounding is applied.
func Calculate(fullScore float64, selected []string, points map[string]float64, extra float64) Result {
	total := 0.0
	for _, name := range selected {
		total += points[name]
	}
	total += extra
	return Result{
		Score:          math.Max(0, fullScore-total),
		TotalDeduction: total,
	}
}

// Format renders whole numbers without decimals and everything else with two.
func Format(x float64) string {
	if math.Abs(x-math.Trunc(x)) < 1e-9 {
		whole := math.Trunc(x)
		if whole == 0 {
			return "0"
		}
		return strconv.FormatFloat(whole, 'f', 0, 64)
	}
	return fmt.Sprintf("%.2f", x)
}

// ParseNumber parses user input, returning fallback when the text is not a
// finite number.
func ParseNumber(text string, fallback float64) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	return value
}
