package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// ColumnMeans averages a frames x features matrix over frames. Rows shorter
// than the first row are rejected by returning nil.
func ColumnMeans(frames [][]float64) []float64 {
	if len(frames) == 0 {
		return nil
	}
	width := len(frames[0])
	sums := make([]float64, width)
	for _, row := range frames {
		if len(row) < width {
			return nil
		}
		floats.Add(sums, row[:width])
	}
	floats.Scale(1/float64(len(frames)), sums)
	return sums
}

// AllFinite reports whether every value is neither NaN nor infinite.
func AllFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
