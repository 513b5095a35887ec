package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-mood/algorithms/spectral"
	"github.com/RyanBlaney/sonido-mood/algorithms/windowing"
)

// TempoEstimation picks the global tempo from the autocorrelation tempogram of
// an onset envelope, weighted by a log-normal prior around a start tempo.
type TempoEstimation struct {
	sampleRate int
	hopSize    int
	startBPM   float64
	stdBPM     float64 // prior width in octaves
	maxBPM     float64
	winLength  int

	fft *spectral.FFT
}

// NewTempoEstimation creates a tempo estimator for onset envelopes computed
// with hopSize at sampleRate.
func NewTempoEstimation(sampleRate, hopSize int, startBPM float64) *TempoEstimation {
	return &TempoEstimation{
		sampleRate: sampleRate,
		hopSize:    hopSize,
		startBPM:   startBPM,
		stdBPM:     1.0,
		maxBPM:     320.0,
		winLength:  384,
		fft:        spectral.NewFFT(),
	}
}

// Estimate returns the tempo in BPM. A flat envelope carries no periodicity,
// so the prior alone decides and the result is the lag closest to startBPM.
// An empty envelope yields 0.
func (te *TempoEstimation) Estimate(onsetEnv []float64) float64 {
	if len(onsetEnv) == 0 {
		return 0
	}
	tg := te.meanTempogram(onsetEnv)

	best := -1
	bestScore := math.Inf(-1)
	for lag := 1; lag < len(tg); lag++ {
		bpm := te.lagToBPM(lag)
		if bpm > te.maxBPM {
			continue
		}
		z := (math.Log2(bpm) - math.Log2(te.startBPM)) / te.stdBPM
		score := math.Log1p(1e6*tg[lag]) - 0.5*z*z
		if score > bestScore {
			bestScore = score
			best = lag
		}
	}

	if best < 0 {
		return 0
	}
	return te.lagToBPM(best)
}

func (te *TempoEstimation) lagToBPM(lag int) float64 {
	return 60.0 * float64(te.sampleRate) / (float64(te.hopSize) * float64(lag))
}

// meanTempogram frames the zero-padded envelope into Hann-windowed windows
// centred on every frame, autocorrelates each, normalises each by its peak
// and averages across frames.
func (te *TempoEstimation) meanTempogram(env []float64) []float64 {
	win := te.winLength
	mean := make([]float64, win)
	if len(env) == 0 {
		return mean
	}

	half := win / 2
	padded := make([]float64, len(env)+2*half)
	copy(padded[half:], env)

	hann := windowing.NewHann(win, false)
	frame := make([]float64, win)
	for t := range env {
		copy(frame, padded[t:t+win])
		_ = hann.ApplyInPlace(frame)

		ac := te.autocorrelate(frame)
		peak := 0.0
		for _, v := range ac {
			peak = math.Max(peak, math.Abs(v))
		}
		if peak == 0 {
			continue
		}
		for lag, v := range ac {
			mean[lag] += v / peak
		}
	}

	for i := range mean {
		mean[i] /= float64(len(env))
	}
	return mean
}

// autocorrelate returns the linear autocorrelation of x for lags [0, len(x))
// via a zero-padded FFT.
func (te *TempoEstimation) autocorrelate(x []float64) []float64 {
	n := len(x)
	padded := make([]float64, 2*n)
	copy(padded, x)

	spectrum := te.fft.Compute(padded)
	for i, c := range spectrum {
		p := real(c)*real(c) + imag(c)*imag(c)
		spectrum[i] = complex(p, 0)
	}

	inv := te.fft.Inverse(spectrum)
	out := make([]float64, n)
	for i := range out {
		out[i] = real(inv[i])
	}
	return out
}
