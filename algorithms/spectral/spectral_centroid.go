package spectral

// SpectralCentroid computes the magnitude-weighted mean frequency of a spectrum
type SpectralCentroid struct {
	sampleRate int
	freqBins   []float64
}

// NewSpectralCentroid creates a new spectral centroid calculator
func NewSpectralCentroid(sampleRate int) *SpectralCentroid {
	return &SpectralCentroid{
		sampleRate: sampleRate,
	}
}

// Compute calculates the centroid in Hz of one magnitude spectrum.
// A silent frame has centroid 0.
func (sc *SpectralCentroid) Compute(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}
	sc.freqBins = frequenciesFor(sc.freqBins, len(spectrum), sc.sampleRate)

	numerator := 0.0
	denominator := 0.0
	for i, mag := range spectrum {
		numerator += sc.freqBins[i] * mag
		denominator += mag
	}

	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// ComputeFrames processes multiple frames
func (sc *SpectralCentroid) ComputeFrames(spectrogram [][]float64) []float64 {
	centroids := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		centroids[t] = sc.Compute(spectrum)
	}
	return centroids
}

// frequenciesFor returns cached bin frequencies for a spectrum of numBins,
// rebuilding them when the size changes.
func frequenciesFor(cached []float64, numBins, sampleRate int) []float64 {
	if len(cached) == numBins {
		return cached
	}
	if numBins < 2 {
		return make([]float64, numBins)
	}
	return BinFrequencies(sampleRate, (numBins-1)*2)
}
