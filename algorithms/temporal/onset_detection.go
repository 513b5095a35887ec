package temporal

// OnsetStrength computes a spectral-flux onset envelope from a log-power
// (dB) mel spectrogram laid out frames x bands: the mean over bands of the
// positive frame-to-frame increase. The envelope is shifted so that frame t
// of the result lines up with frame t of the spectrogram; centerPad is the
// number of leading frames introduced by centred framing (fftSize/(2*hop)).
func OnsetStrength(logMel [][]float64, lag, centerPad int) []float64 {
	frames := len(logMel)
	if frames == 0 {
		return []float64{}
	}
	if lag < 1 {
		lag = 1
	}

	env := make([]float64, frames)
	pad := lag + centerPad
	for t := lag; t < frames; t++ {
		cur, prev := logMel[t], logMel[t-lag]
		sum := 0.0
		for b := range cur {
			if d := cur[b] - prev[b]; d > 0 {
				sum += d
			}
		}
		idx := t - lag + pad
		if idx < frames && len(cur) > 0 {
			env[idx] = sum / float64(len(cur))
		}
	}
	return env
}
