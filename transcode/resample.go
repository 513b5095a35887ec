package transcode

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

func qualityPreset(quality string) resampling.QualitySpec {
	switch quality {
	case "low":
		return resampling.QualitySpec{Preset: resampling.QualityLow}
	case "medium":
		return resampling.QualitySpec{Preset: resampling.QualityMedium}
	default:
		return resampling.QualitySpec{Preset: resampling.QualityHigh}
	}
}

// Resample converts a mono signal from one sample rate to another.
func Resample(samples []float64, from, to int, quality string) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", from, to)
	}
	if from == to || len(samples) == 0 {
		return samples, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    qualityPreset(quality),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := r.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	return out, nil
}
