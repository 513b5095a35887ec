// Package extractor turns a decoded mono signal into the genre-layout feature
// vector and a small statistics summary.
package extractor

import (
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-mood/algorithms/chroma"
	"github.com/RyanBlaney/sonido-mood/algorithms/common"
	"github.com/RyanBlaney/sonido-mood/algorithms/filters"
	"github.com/RyanBlaney/sonido-mood/algorithms/spectral"
	"github.com/RyanBlaney/sonido-mood/algorithms/temporal"
	"github.com/RyanBlaney/sonido-mood/algorithms/windowing"
	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/logging"
	"github.com/RyanBlaney/sonido-mood/schema"
)

const (
	dbFloor = 1e-10
	topDB   = 80.0
)

// Result is the output of one extraction.
type Result struct {
	Vector schema.Vector
	Stats  Stats
}

// Extractor computes feature vectors. It holds no per-call state and may be
// shared between goroutines.
type Extractor struct {
	cfg    config.AnalysisConfig
	schema *schema.Schema
	logger logging.Logger
}

// New creates an extractor writing vectors laid out by s.
func New(cfg config.AnalysisConfig, s *schema.Schema) *Extractor {
	return &Extractor{
		cfg:    cfg,
		schema: s,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
}

// Extract analyses samples recorded at sampleRate and returns a vector of
// exactly the genre length. observer may be nil.
func (e *Extractor) Extract(samples []float64, sampleRate int, observer Observer) (*Result, error) {
	logger := e.logger.WithFields(logging.Fields{
		"function":    "Extract",
		"samples":     len(samples),
		"sample_rate": sampleRate,
	})

	if len(samples) == 0 {
		return nil, &ExtractionError{Stage: "input", Err: errors.New("empty signal")}
	}
	if sampleRate <= 0 {
		return nil, &ExtractionError{Stage: "input", Err: fmt.Errorf("invalid sample rate %d", sampleRate)}
	}
	if !common.AllFinite(samples) {
		return nil, &ExtractionError{Stage: "input", Err: errors.New("signal contains NaN or Inf samples")}
	}

	signal := filters.RemoveDC(samples)
	Notify(observer, CheckpointLoaded, logger)

	win, hop := e.cfg.WindowSize, e.cfg.HopSize
	stft := spectral.NewSTFT(windowing.NewHann(win, false))
	spec, err := stft.Compute(signal, win, hop, sampleRate, true)
	if err != nil {
		return nil, &ExtractionError{Stage: "analysis", Err: fmt.Errorf("stft: %w", err)}
	}
	power := spec.Power()

	melBank := spectral.NewMelFilterBank(sampleRate, win, e.cfg.MelBands, 0, 0)
	logMel := spectral.PowerToDB(melBank.ApplyFrames(power), dbFloor, topDB)

	onset := temporal.OnsetStrength(logMel, 1, win/(2*hop))
	tempo := temporal.NewTempoEstimation(sampleRate, hop, e.cfg.StartBPM).Estimate(onset)
	Notify(observer, CheckpointTempo, logger)

	centroids := spectral.NewSpectralCentroid(sampleRate).ComputeFrames(spec.Magnitude)
	bandwidths := spectral.NewSpectralBandwidth(sampleRate).ComputeFrames(spec.Magnitude, centroids)
	contrast := spectral.NewSpectralContrast(sampleRate, e.cfg.ContrastBands).ComputeFrames(spec.Magnitude)
	rolloffs := spectral.NewSpectralRolloff(sampleRate).ComputeFrames(spec.Magnitude, e.cfg.RolloffPercent)
	Notify(observer, CheckpointSpectral, logger)

	mfcc, err := spectral.NewMFCC(e.cfg.MFCCCoefficients, e.cfg.MelBands)
	if err != nil {
		return nil, &ExtractionError{Stage: "analysis", Err: fmt.Errorf("mfcc: %w", err)}
	}
	cepstra, err := mfcc.ComputeFrames(logMel)
	if err != nil {
		return nil, &ExtractionError{Stage: "analysis", Err: fmt.Errorf("mfcc: %w", err)}
	}

	chromaSTFT, err := chroma.NewChromaSTFT(sampleRate, win, e.cfg.ChromaBins)
	if err != nil {
		return nil, &ExtractionError{Stage: "analysis", Err: fmt.Errorf("chroma: %w", err)}
	}
	chromagram := chromaSTFT.ComputeFrames(power)

	rms := temporal.NewEnergy(win, hop).ComputeRMS(signal, true)

	stats := Stats{
		TempoBPM:            tempo,
		SpectralCentroidHz:  common.Mean(centroids),
		SpectralBandwidthHz: common.Mean(bandwidths),
		RMSEnergy:           common.Mean(rms),
		Duration:            time.Duration(float64(len(samples)) / float64(sampleRate) * float64(time.Second)),
		Frames:              spec.Frames,
	}

	segments := []struct {
		name   string
		values []float64
	}{
		{schema.Tempo, []float64{stats.TempoBPM}},
		{schema.SpectralCentroid, []float64{stats.SpectralCentroidHz}},
		{schema.SpectralBandwidth, []float64{stats.SpectralBandwidthHz}},
		{schema.SpectralContrast, common.ColumnMeans(contrast)},
		{schema.SpectralRolloff, []float64{common.Mean(rolloffs)}},
		{schema.Chroma, common.ColumnMeans(chromagram)},
		{schema.MFCC, common.ColumnMeans(cepstra)},
		{schema.RMSEnergy, []float64{stats.RMSEnergy}},
	}

	values := make([]float64, e.schema.GenreTotal())
	for _, seg := range segments {
		r, err := e.schema.Slice(seg.name)
		if err != nil {
			return nil, &ExtractionError{Stage: "assemble", Err: err}
		}
		fitted, err := fitWidth(seg.name, seg.values, r.Width())
		if err != nil {
			return nil, &ExtractionError{Stage: "assemble", Err: err}
		}
		copy(values[r.Start:r.End], fitted)
	}

	if !common.AllFinite(values) {
		return nil, &ExtractionError{Stage: "assemble", Err: errors.New("non-finite statistic in feature vector")}
	}

	vector := schema.NewVector(values)
	if err := e.schema.ValidateGenre(vector); err != nil {
		return nil, &ExtractionError{Stage: "assemble", Err: err}
	}
	Notify(observer, CheckpointAssembled, logger)

	logger.Debug("Features extracted", logging.Fields{
		"frames":   spec.Frames,
		"tempo":    stats.TempoBPM,
		"centroid": stats.SpectralCentroidHz,
	})

	return &Result{Vector: vector, Stats: stats}, nil
}

// fitWidth selects the leading width values of an analysis. Spectral
// contrast yields bands+1 values and chroma twelve, while the layout keeps
// six and five; an analysis shorter than its slot is an error.
func fitWidth(name string, values []float64, width int) ([]float64, error) {
	if len(values) < width {
		return nil, fmt.Errorf("%s analysis produced %d values, layout needs %d", name, len(values), width)
	}
	return values[:width], nil
}
