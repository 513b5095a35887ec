package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"
)

// Window is applied to each frame before the FFT.
type Window interface {
	ApplyInPlace(signal []float64) error
}

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft    *FFT
	window Window
}

// Spectrogram is a magnitude spectrogram, frames x bins.
type Spectrogram struct {
	Magnitude  [][]float64
	Frames     int
	Bins       int
	SampleRate int
	WindowSize int
	HopSize    int
}

// NewSTFT creates an STFT that applies window to every frame. A nil window
// means rectangular framing.
func NewSTFT(window Window) *STFT {
	return &STFT{
		fft:    NewFFT(),
		window: window,
	}
}

// Compute frames signal into windowSize-long frames spaced hopSize apart and
// transforms each frame in parallel. With center set the signal is padded by
// windowSize/2 on both sides (reflection when the signal is long enough,
// zeros otherwise) so frame t is centred on sample t*hopSize.
func (s *STFT) Compute(signal []float64, windowSize, hopSize, sampleRate int, center bool) (*Spectrogram, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	if center {
		signal = padCenter(signal, windowSize/2)
	}

	if len(signal) < windowSize {
		return nil, fmt.Errorf("signal too short for window size %d: %d samples", windowSize, len(signal))
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
	}

	jobs := make(chan int, numFrames)
	errs := make(chan error, 1)

	var wg sync.WaitGroup
	for range workerCount(numFrames) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			frame := make([]float64, windowSize)
			for t := range jobs {
				start := t * hopSize
				copy(frame, signal[start:start+windowSize])

				if s.window != nil {
					if err := s.window.ApplyInPlace(frame); err != nil {
						select {
						case errs <- fmt.Errorf("frame %d: %w", t, err):
						default:
						}
						continue
					}
				}

				spectrum := s.fft.Compute(frame)
				for k := range freqBins {
					magnitude[t][k] = cmplx.Abs(spectrum[k])
				}
			}
		}()
	}

	for t := range numFrames {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}

	return &Spectrogram{
		Magnitude:  magnitude,
		Frames:     numFrames,
		Bins:       freqBins,
		SampleRate: sampleRate,
		WindowSize: windowSize,
		HopSize:    hopSize,
	}, nil
}

// Frequencies returns the centre frequency of every bin.
func (sp *Spectrogram) Frequencies() []float64 {
	return BinFrequencies(sp.SampleRate, sp.WindowSize)
}

// Power returns the squared magnitudes as a new matrix.
func (sp *Spectrogram) Power() [][]float64 {
	power := make([][]float64, sp.Frames)
	for t, frame := range sp.Magnitude {
		power[t] = make([]float64, len(frame))
		for k, mag := range frame {
			power[t][k] = mag * mag
		}
	}
	return power
}

func padCenter(signal []float64, pad int) []float64 {
	n := len(signal)
	out := make([]float64, n+2*pad)
	copy(out[pad:], signal)
	if n <= pad {
		return out
	}
	for i := range pad {
		out[pad-1-i] = signal[i+1]
		out[pad+n+i] = signal[n-2-i]
	}
	return out
}

func workerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// small jobs are not worth fanning out
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}
	if numFrames < 1000 {
		return min(numCPU, 8)
	}
	return numCPU
}
