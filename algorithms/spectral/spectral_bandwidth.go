package spectral

import (
	"math"
)

// SpectralBandwidth computes the second-order spread of a spectrum around its centroid
type SpectralBandwidth struct {
	sampleRate int
	freqBins   []float64
}

// NewSpectralBandwidth creates a new spectral bandwidth calculator
func NewSpectralBandwidth(sampleRate int) *SpectralBandwidth {
	return &SpectralBandwidth{
		sampleRate: sampleRate,
	}
}

// Compute calculates the bandwidth in Hz of one spectrum given its centroid
func (sb *SpectralBandwidth) Compute(spectrum []float64, centroid float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}
	sb.freqBins = frequenciesFor(sb.freqBins, len(spectrum), sb.sampleRate)

	numerator := 0.0
	denominator := 0.0
	for i, mag := range spectrum {
		diff := sb.freqBins[i] - centroid
		numerator += diff * diff * mag
		denominator += mag
	}

	if denominator == 0 {
		return 0
	}
	return math.Sqrt(numerator / denominator)
}

// ComputeFrames processes multiple frames with their corresponding centroids
func (sb *SpectralBandwidth) ComputeFrames(spectrogram [][]float64, centroids []float64) []float64 {
	if len(centroids) != len(spectrogram) {
		return []float64{}
	}

	bandwidths := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		bandwidths[t] = sb.Compute(spectrum, centroids[t])
	}
	return bandwidths
}
