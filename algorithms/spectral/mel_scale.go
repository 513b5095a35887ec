package spectral

import (
	"math"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melLinearStep = 200.0 / 3
	melLogMinHz   = 1000.0
	melLogMinMel  = melLogMinHz / melLinearStep
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel converts frequency in Hz to the Slaney mel scale
func HzToMel(hz float64) float64 {
	if hz >= melLogMinHz {
		return melLogMinMel + math.Log(hz/melLogMinHz)/melLogStep
	}
	return hz / melLinearStep
}

// MelToHz converts a Slaney mel value back to Hz
func MelToHz(mel float64) float64 {
	if mel >= melLogMinMel {
		return melLogMinHz * math.Exp(melLogStep*(mel-melLogMinMel))
	}
	return mel * melLinearStep
}

// MelFilterBank is a bank of area-normalised triangular filters over the
// bins of an n-point FFT.
type MelFilterBank struct {
	weights [][]float64
}

// NewMelFilterBank builds numMels filters spanning [lowFreq, highFreq].
// highFreq <= 0 means Nyquist.
func NewMelFilterBank(sampleRate, fftSize, numMels int, lowFreq, highFreq float64) *MelFilterBank {
	if highFreq <= 0 {
		highFreq = float64(sampleRate) / 2
	}
	fftFreqs := BinFrequencies(sampleRate, fftSize)

	lowMel := HzToMel(lowFreq)
	highMel := HzToMel(highFreq)
	edges := make([]float64, numMels+2)
	for i := range edges {
		edges[i] = MelToHz(lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1))
	}

	weights := make([][]float64, numMels)
	for m := range numMels {
		weights[m] = make([]float64, len(fftFreqs))
		lowerWidth := edges[m+1] - edges[m]
		upperWidth := edges[m+2] - edges[m+1]
		norm := 2.0 / (edges[m+2] - edges[m])

		for k, f := range fftFreqs {
			lower := (f - edges[m]) / lowerWidth
			upper := (edges[m+2] - f) / upperWidth
			w := math.Max(0, math.Min(lower, upper))
			weights[m][k] = w * norm
		}
	}

	return &MelFilterBank{weights: weights}
}

// Size returns the number of filters.
func (mb *MelFilterBank) Size() int {
	return len(mb.weights)
}

// Apply projects one power spectrum onto the filter bank
func (mb *MelFilterBank) Apply(power []float64) []float64 {
	mel := make([]float64, len(mb.weights))
	for m, filter := range mb.weights {
		sum := 0.0
		for k := 0; k < len(filter) && k < len(power); k++ {
			sum += filter[k] * power[k]
		}
		mel[m] = sum
	}
	return mel
}

// ApplyFrames projects every frame of a power spectrogram
func (mb *MelFilterBank) ApplyFrames(power [][]float64) [][]float64 {
	out := make([][]float64, len(power))
	for t, frame := range power {
		out[t] = mb.Apply(frame)
	}
	return out
}
