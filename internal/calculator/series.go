package calculator

import "math"

// compact drops NaN values and remembers the row each survivor came from.
// Windows computed on the result skip nulls instead of turning null around them.
func compact(values []float64) ([]float64, []int) {
	vals := make([]float64, 0, len(values))
	rows := make([]int, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
		rows = append(rows, i)
	}
	return vals, rows
}

// scatter writes computed[k] back to rows[k] for k >= from; every other row is NaN.
func scatter(n int, rows []int, computed []float64, from int) []float64 {
	out := nanSeries(n)
	for k := from; k < len(computed) && k < len(rows); k++ {
		out[rows[k]] = computed[k]
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
