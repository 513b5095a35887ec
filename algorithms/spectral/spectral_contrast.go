package spectral

import (
	"math"
	"slices"
)

// SpectralContrast measures, per octave sub-band, the level difference in dB
// between spectral peaks and valleys. numBands octave bands above minFreq plus
// the band below minFreq give numBands+1 values per frame.
type SpectralContrast struct {
	sampleRate int
	numBands   int
	minFreq    float64
	quantile   float64

	numBins int
	bands   []bandBins
}

type bandBins struct {
	bins   []int
	keep   int // number of leading bins from bins used for sorting
	sample int // peak/valley sample count
}

// NewSpectralContrast creates a contrast calculator with octave bands
// starting at 200 Hz and a 2% peak/valley quantile
func NewSpectralContrast(sampleRate int, numBands int) *SpectralContrast {
	return &SpectralContrast{
		sampleRate: sampleRate,
		numBands:   numBands,
		minFreq:    200.0,
		quantile:   0.02,
	}
}

// Outputs returns the number of values produced per frame.
func (sc *SpectralContrast) Outputs() int {
	return sc.numBands + 1
}

// Compute calculates spectral contrast for a single magnitude spectrum
func (sc *SpectralContrast) Compute(spectrum []float64) []float64 {
	if len(spectrum) == 0 {
		return []float64{}
	}
	if sc.numBins != len(spectrum) {
		sc.initializeBands(len(spectrum))
	}

	contrast := make([]float64, len(sc.bands))
	buf := make([]float64, 0, len(spectrum))

	for k, band := range sc.bands {
		if band.keep == 0 {
			continue
		}
		buf = buf[:0]
		for _, b := range band.bins[:band.keep] {
			buf = append(buf, spectrum[b])
		}
		slices.Sort(buf)

		n := min(band.sample, len(buf))
		valley := 0.0
		peak := 0.0
		for i := range n {
			valley += buf[i]
			peak += buf[len(buf)-1-i]
		}
		valley /= float64(n)
		peak /= float64(n)

		contrast[k] = powerToDB(peak) - powerToDB(valley)
	}

	return contrast
}

// ComputeFrames processes multiple frames
func (sc *SpectralContrast) ComputeFrames(spectrogram [][]float64) [][]float64 {
	contrasts := make([][]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		contrasts[t] = sc.Compute(spectrum)
	}
	return contrasts
}

// initializeBands assigns FFT bins to octave bands [0, f0], [f0, 2f0], ...
// Each band above the first borrows the bin just below its lower edge, the
// top band absorbs everything up to Nyquist, and all but the top band drop
// their last bin.
func (sc *SpectralContrast) initializeBands(numBins int) {
	sc.numBins = numBins
	freqs := BinFrequencies(sc.sampleRate, (numBins-1)*2)

	edges := make([]float64, sc.numBands+2)
	for i := 1; i < len(edges); i++ {
		edges[i] = sc.minFreq * math.Pow(2, float64(i-1))
	}

	sc.bands = make([]bandBins, sc.numBands+1)
	for k := range sc.bands {
		low, high := edges[k], edges[k+1]
		var bins []int
		for i, f := range freqs {
			if f >= low && f <= high {
				bins = append(bins, i)
			}
		}
		if len(bins) == 0 {
			continue
		}
		if k > 0 && bins[0] > 0 {
			bins = append([]int{bins[0] - 1}, bins...)
		}
		if k == sc.numBands {
			for i := bins[len(bins)-1] + 1; i < numBins; i++ {
				bins = append(bins, i)
			}
		}

		keep := len(bins)
		if k < sc.numBands && keep > 1 {
			keep--
		}

		sample := int(math.Round(sc.quantile * float64(len(bins))))
		sc.bands[k] = bandBins{bins: bins, keep: keep, sample: max(sample, 1)}
	}
}

func powerToDB(x float64) float64 {
	return 10 * math.Log10(math.Max(x, 1e-10))
}
