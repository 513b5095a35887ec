package spectral

import (
	"math"
)

// PowerToDB converts a power spectrogram to decibels relative to 1.0, with
// a floor of amin and values clipped to topDB below the global maximum.
// topDB <= 0 disables clipping.
func PowerToDB(power [][]float64, amin, topDB float64) [][]float64 {
	out := make([][]float64, len(power))
	peak := math.Inf(-1)
	for t, frame := range power {
		out[t] = make([]float64, len(frame))
		for k, p := range frame {
			db := 10 * math.Log10(math.Max(p, amin))
			out[t][k] = db
			peak = math.Max(peak, db)
		}
	}

	if topDB <= 0 {
		return out
	}

	floor := peak - topDB
	for _, frame := range out {
		for k, db := range frame {
			if db < floor {
				frame[k] = floor
			}
		}
	}
	return out
}
