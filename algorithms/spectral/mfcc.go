package spectral

import (
	"fmt"
	"math"
)

// MFCC computes Mel-Frequency Cepstral Coefficients from a log-mel
// spectrogram using an orthonormal DCT-II.
type MFCC struct {
	numCoefficients int
	numMels         int
	dctMatrix       [][]float64
}

// NewMFCC creates an MFCC transform for numMels log-mel bands
func NewMFCC(numCoefficients, numMels int) (*MFCC, error) {
	if numCoefficients <= 0 {
		return nil, fmt.Errorf("invalid coefficient count: %d", numCoefficients)
	}
	if numMels < numCoefficients {
		return nil, fmt.Errorf("need at least %d mel bands, got %d", numCoefficients, numMels)
	}

	m := &MFCC{
		numCoefficients: numCoefficients,
		numMels:         numMels,
	}
	m.createDCTMatrix()
	return m, nil
}

// Compute transforms one log-mel frame
func (m *MFCC) Compute(logMel []float64) ([]float64, error) {
	if len(logMel) != m.numMels {
		return nil, fmt.Errorf("expected %d mel bands, got %d", m.numMels, len(logMel))
	}

	coeffs := make([]float64, m.numCoefficients)
	for k, row := range m.dctMatrix {
		sum := 0.0
		for n, x := range logMel {
			sum += x * row[n]
		}
		coeffs[k] = sum
	}
	return coeffs, nil
}

// ComputeFrames transforms every frame of a log-mel spectrogram
func (m *MFCC) ComputeFrames(logMel [][]float64) ([][]float64, error) {
	out := make([][]float64, len(logMel))
	for t, frame := range logMel {
		c, err := m.Compute(frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", t, err)
		}
		out[t] = c
	}
	return out, nil
}

func (m *MFCC) createDCTMatrix() {
	n := float64(m.numMels)
	m.dctMatrix = make([][]float64, m.numCoefficients)

	for k := range m.numCoefficients {
		m.dctMatrix[k] = make([]float64, m.numMels)
		scale := math.Sqrt(2.0 / n)
		if k == 0 {
			scale = math.Sqrt(1.0 / n)
		}
		for i := range m.numMels {
			m.dctMatrix[k][i] = scale * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/n)
		}
	}
}
