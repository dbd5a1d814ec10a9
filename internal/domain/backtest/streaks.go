package backtest

import "math"

// Streaks returns the lengths of maximal runs of winning (positive) and
// losing (negative, as a negative length) payoffs in order. NaN and zero
// payoffs neither extend nor break a run.
func Streaks(payoffs []float64) []int {
	var out []int
	run := 0
	for _, p := range payoffs {
		if math.IsNaN(p) || p == 0 {
			continue
		}
		sign := 1
		if p < 0 {
			sign = -1
		}
		if run != 0 && (run > 0) != (sign > 0) {
			out = append(out, run)
			run = 0
		}
		run += sign
	}
	if run != 0 {
		out = append(out, run)
	}
	return out
}
