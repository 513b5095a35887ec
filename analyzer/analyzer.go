// Package analyzer runs the full pipeline for one audio file: decode,
// extract features, classify the genre, regress and label the mood.
package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/extractor"
	"github.com/RyanBlaney/sonido-mood/inference"
	"github.com/RyanBlaney/sonido-mood/logging"
	"github.com/RyanBlaney/sonido-mood/schema"
	"github.com/RyanBlaney/sonido-mood/transcode"
)

// Analyzer is safe for concurrent use once built.
type Analyzer struct {
	schema    *schema.Schema
	registry  *artifact.Registry
	decoder   *transcode.Decoder
	extractor *extractor.Extractor
	logger    logging.Logger
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithLogger replaces the package default logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New builds an analyzer whose extractor and models share the registry's
// schema.
func New(cfg *config.Config, registry *artifact.Registry, opts ...Option) *Analyzer {
	a := &Analyzer{
		schema:   registry.Schema(),
		registry: registry,
		logger:   logging.WithFields(logging.Fields{"component": "analyzer"}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.decoder = transcode.NewDecoder(cfg.Audio, a.logger)
	a.extractor = extractor.New(cfg.Analysis, a.schema)
	return a
}

// Analyze decodes path and runs both models over its features. observer
// may be nil; it sees the extractor checkpoints and then 100 once the mood
// is labelled.
func (a *Analyzer) Analyze(ctx context.Context, path string, observer extractor.Observer) (*Report, error) {
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Analyze",
		"path":     path,
	})
	start := time.Now()

	audio, err := a.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, &extractor.ExtractionError{Path: path, Stage: "decode", Err: err}
	}

	tags, err := transcode.ReadTags(path)
	if err != nil {
		logger.Warn("Could not read tags", logging.Fields{"error": err.Error()})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := a.extractor.Extract(audio.Samples, audio.SampleRate, observer)
	if err != nil {
		var ee *extractor.ExtractionError
		if errors.As(err, &ee) && ee.Path == "" {
			ee.Path = path
		}
		return nil, err
	}

	genre, err := a.predictGenre(result.Vector)
	if err != nil {
		return nil, err
	}
	mood, err := a.predictMood(result.Vector)
	if err != nil {
		return nil, err
	}
	extractor.Notify(observer, extractor.CheckpointComplete, logger)

	report := &Report{
		Path:       path,
		Tags:       tags,
		Stats:      result.Stats,
		Genre:      genre,
		Mood:       mood,
		Features:   result.Vector.Values(),
		AnalyzedAt: time.Now().UTC(),
	}

	logger.Info("Analysis complete", logging.Fields{
		"genre":   genre.Label,
		"mood":    mood.Label,
		"elapsed": time.Since(start).Seconds(),
	})
	return report, nil
}

func (a *Analyzer) predictGenre(v schema.Vector) (inference.GenrePrediction, error) {
	pair, err := a.registry.Genre()
	if err != nil {
		return inference.GenrePrediction{}, err
	}
	return inference.NewGenreClassifier(a.schema, pair.Scaler, pair.Classifier()).Predict(v)
}

func (a *Analyzer) predictMood(v schema.Vector) (inference.MoodPrediction, error) {
	pair, err := a.registry.Mood()
	if err != nil {
		return inference.MoodPrediction{}, err
	}
	score, err := inference.NewMoodRegressor(a.schema, pair.Scaler, pair.Regressor()).Predict(v)
	if err != nil {
		return inference.MoodPrediction{}, err
	}
	return inference.Predict(score), nil
}
