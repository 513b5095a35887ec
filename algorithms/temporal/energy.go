package temporal

import (
	"math"
)

// Energy computes frame-wise root-mean-square energy
type Energy struct {
	frameSize int
	hopSize   int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize int) *Energy {
	return &Energy{
		frameSize: frameSize,
		hopSize:   hopSize,
	}
}

// ComputeRMS returns the RMS of every frame. With center set the signal is
// zero-padded by frameSize/2 on both sides so frames line up with a centred
// STFT using the same geometry.
func (e *Energy) ComputeRMS(signal []float64, center bool) []float64 {
	if e.frameSize <= 0 || e.hopSize <= 0 {
		return []float64{}
	}

	if center {
		pad := e.frameSize / 2
		padded := make([]float64, len(signal)+2*pad)
		copy(padded[pad:], signal)
		signal = padded
	}

	if len(signal) < e.frameSize {
		return []float64{}
	}

	numFrames := (len(signal)-e.frameSize)/e.hopSize + 1
	energies := make([]float64, numFrames)

	for i := range numFrames {
		start := i * e.hopSize
		sumSquares := 0.0
		for _, x := range signal[start : start+e.frameSize] {
			sumSquares += x * x
		}
		energies[i] = math.Sqrt(sumSquares / float64(e.frameSize))
	}

	return energies
}
