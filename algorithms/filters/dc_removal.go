package filters

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RemoveDC returns a copy of signal with its mean subtracted.
func RemoveDC(signal []float64) []float64 {
	out := make([]float64, len(signal))
	if len(signal) == 0 {
		return out
	}
	copy(out, signal)
	floats.AddConst(-stat.Mean(signal, nil), out)
	return out
}
