package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/extractor"
	"github.com/RyanBlaney/sonido-mood/logging"
	"github.com/RyanBlaney/sonido-mood/schema"
	"github.com/RyanBlaney/sonido-mood/transcode"
)

// FeatureFunc computes the genre-length feature vector of one file.
type FeatureFunc func(ctx context.Context, path string) (schema.Vector, error)

// FileFeatures decodes and extracts a file with the given components.
func FileFeatures(dec *transcode.Decoder, ex *extractor.Extractor) FeatureFunc {
	return func(ctx context.Context, path string) (schema.Vector, error) {
		audio, err := dec.DecodeFile(ctx, path)
		if err != nil {
			return schema.Vector{}, &extractor.ExtractionError{Path: path, Stage: "decode", Err: err}
		}
		res, err := ex.Extract(audio.Samples, audio.SampleRate, nil)
		if err != nil {
			return schema.Vector{}, err
		}
		return res.Vector, nil
	}
}

// PrepareOptions controls dataset preparation.
type PrepareOptions struct {
	Schema  *schema.Schema
	Workers int
	// Progress, if set, is called after every file with the number of
	// files finished so far. It may be called from several goroutines.
	Progress func(done, total int)
	Logger   logging.Logger
}

func (o *PrepareOptions) defaults() {
	if o.Schema == nil {
		o.Schema = schema.Default()
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = logging.WithFields(logging.Fields{"component": "dataset_prepare"})
	}
}

// PrepareGenre extracts features for every manifest entry. Missing or
// undecodable files are skipped with a warning; rows keep manifest order.
func PrepareGenre(ctx context.Context, entries []GenreEntry, features FeatureFunc, opts PrepareOptions) (*Dataset, error) {
	opts.defaults()
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	vectors, err := extractAll(ctx, paths, features, opts)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Kind: artifact.KindGenre, SchemaHash: opts.Schema.Hash()}
	for i, v := range vectors {
		if v == nil {
			continue
		}
		ds.X = append(ds.X, v.Values())
		ds.Labels = append(ds.Labels, entries[i].Genre)
		ds.Paths = append(ds.Paths, entries[i].Path)
	}
	return finish(ds, len(entries), opts.Logger)
}

// PrepareMood extracts features for every manifest entry and appends the
// annotated valence and arousal to each row.
func PrepareMood(ctx context.Context, entries []MoodEntry, features FeatureFunc, opts PrepareOptions) (*Dataset, error) {
	opts.defaults()
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	vectors, err := extractAll(ctx, paths, features, opts)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Kind: artifact.KindMood, SchemaHash: opts.Schema.Hash()}
	for i, v := range vectors {
		if v == nil {
			continue
		}
		row, err := opts.Schema.WithMood(*v, entries[i].Valence, entries[i].Arousal)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entries[i].Path, err)
		}
		ds.X = append(ds.X, row.Values())
		ds.Paths = append(ds.Paths, entries[i].Path)
	}
	return finish(ds, len(entries), opts.Logger)
}

func finish(ds *Dataset, total int, logger logging.Logger) (*Dataset, error) {
	logger.Info("Dataset prepared", logging.Fields{
		"kind":    ds.Kind,
		"rows":    ds.Len(),
		"skipped": total - ds.Len(),
	})
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return ds, nil
}

// extractAll runs features over paths with bounded parallelism. Failed
// files leave a nil slot.
func extractAll(ctx context.Context, paths []string, features FeatureFunc, opts PrepareOptions) ([]*schema.Vector, error) {
	out := make([]*schema.Vector, len(paths))
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer func() {
				if opts.Progress != nil {
					opts.Progress(int(done.Add(1)), len(paths))
				}
			}()

			if _, err := os.Stat(path); err != nil {
				opts.Logger.Warn("File does not exist", logging.Fields{"path": path})
				return nil
			}
			v, err := features(ctx, path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				opts.Logger.Warn("Skipping file", logging.Fields{"path": path, "error": err.Error()})
				return nil
			}
			out[i] = &v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
