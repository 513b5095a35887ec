package chroma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-mood/algorithms/spectral"
)

func TestChromaPicksPitchClass(t *testing.T) {
	const rate, fftSize = 22050, 2048
	cs, err := NewChromaSTFT(rate, fftSize, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, cs.Bins())

	freqs := spectral.BinFrequencies(rate, fftSize)
	nearest := func(hz float64) int {
		best := 0
		for i, f := range freqs {
			if abs(f-hz) < abs(freqs[best]-hz) {
				best = i
			}
		}
		return best
	}

	tests := []struct {
		name string
		hz   float64
		want int
	}{
		{"A4", 440, 9},
		{"C5", 523.25, 0},
		{"E5", 659.26, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			power := make([]float64, len(freqs))
			power[nearest(tt.hz)] = 1
			c := cs.Compute(power)
			require.Len(t, c, 12)

			best := 0
			for i, v := range c {
				if v > c[best] {
					best = i
				}
			}
			assert.Equal(t, tt.want, best, Labels()[best])
			assert.InDelta(t, 1.0, c[best], 1e-12)
		})
	}
}

func TestChromaSilentFrame(t *testing.T) {
	cs, err := NewChromaSTFT(22050, 2048, 12)
	require.NoError(t, err)
	for _, v := range cs.Compute(make([]float64, 1025)) {
		assert.Equal(t, 0.0, v)
	}
}

func TestChromaRejectsBadGeometry(t *testing.T) {
	_, err := NewChromaSTFT(22050, 2048, 7)
	assert.Error(t, err)
	_, err = NewChromaSTFT(0, 2048, 12)
	assert.Error(t, err)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
