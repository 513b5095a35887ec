package chroma

import (
	"fmt"
	"math"
)

// ChromaSTFT folds a power spectrogram onto pitch classes.
//
// Each FFT bin contributes to nearby pitch classes through a Gaussian bump
// whose width follows the bin spacing in semitones, weighted by a second
// Gaussian over octaves centred on octave 5 (C5), so very low and very high
// bins count less. Bin 0 is C.
type ChromaSTFT struct {
	sampleRate int
	fftSize    int
	numChroma  int
	tuning     float64 // deviation from A440 in fractions of a bin
	centerOct  float64
	octWidth   float64

	filters [][]float64
}

// NewChromaSTFT creates a chroma filter bank for an fftSize-point STFT at
// A440 tuning.
func NewChromaSTFT(sampleRate, fftSize, numChroma int) (*ChromaSTFT, error) {
	if sampleRate <= 0 || fftSize <= 0 {
		return nil, fmt.Errorf("invalid chroma geometry: rate %d, fft %d", sampleRate, fftSize)
	}
	if numChroma <= 0 || numChroma%12 != 0 {
		return nil, fmt.Errorf("chroma bins must be a positive multiple of 12, got %d", numChroma)
	}

	cs := &ChromaSTFT{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		numChroma:  numChroma,
		centerOct:  5.0,
		octWidth:   2.0,
	}
	cs.buildFilters()
	return cs, nil
}

// Bins returns the number of pitch classes per frame.
func (cs *ChromaSTFT) Bins() int {
	return cs.numChroma
}

// Labels returns the pitch class names for 12-bin chroma.
func Labels() []string {
	return []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
}

// Compute maps one power spectrum to a chroma vector whose largest entry is 1.
// A silent frame maps to all zeros.
func (cs *ChromaSTFT) Compute(power []float64) []float64 {
	out := make([]float64, cs.numChroma)
	for c, filter := range cs.filters {
		sum := 0.0
		for k := 0; k < len(filter) && k < len(power); k++ {
			sum += filter[k] * power[k]
		}
		out[c] = sum
	}

	peak := 0.0
	for _, v := range out {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 1e-300 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}

// ComputeFrames processes every frame of a power spectrogram
func (cs *ChromaSTFT) ComputeFrames(power [][]float64) [][]float64 {
	out := make([][]float64, len(power))
	for t, frame := range power {
		out[t] = cs.Compute(frame)
	}
	return out
}

func (cs *ChromaSTFT) buildFilters() {
	n := cs.fftSize
	nc := float64(cs.numChroma)
	a440 := 440.0 * math.Pow(2, cs.tuning/nc)

	// fractional pitch-class position of every FFT bin; bin 0 is placed 1.5
	// octaves below bin 1
	frqBins := make([]float64, n)
	for i := 1; i < n; i++ {
		f := float64(i) * float64(cs.sampleRate) / float64(n)
		frqBins[i] = nc * math.Log2(f/(a440/16))
	}
	frqBins[0] = frqBins[1] - 1.5*nc

	binWidth := make([]float64, n)
	for i := 0; i < n-1; i++ {
		binWidth[i] = math.Max(frqBins[i+1]-frqBins[i], 1)
	}
	binWidth[n-1] = 1

	half := math.Round(nc / 2)
	wts := make([][]float64, cs.numChroma)
	for c := range wts {
		wts[c] = make([]float64, n)
		for i := range n {
			d := positiveMod(frqBins[i]-float64(c)+half+10*nc, nc) - half
			x := 2 * d / binWidth[i]
			wts[c][i] = math.Exp(-0.5 * x * x)
		}
	}

	// unit L2 norm per FFT bin, then octave weighting
	for i := range n {
		norm := 0.0
		for c := range wts {
			norm += wts[c][i] * wts[c][i]
		}
		norm = math.Sqrt(norm)
		octave := (frqBins[i]/nc - cs.centerOct) / cs.octWidth
		octWeight := math.Exp(-0.5 * octave * octave)
		for c := range wts {
			if norm > 0 {
				wts[c][i] /= norm
			}
			wts[c][i] *= octWeight
		}
	}

	// rotate so that row 0 is C rather than A
	shift := 3 * (cs.numChroma / 12)
	keep := n/2 + 1
	cs.filters = make([][]float64, cs.numChroma)
	for c := range cs.filters {
		cs.filters[c] = wts[(c+shift)%cs.numChroma][:keep:keep]
	}
}

func positiveMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
