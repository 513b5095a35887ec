package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/extractor"
	"github.com/RyanBlaney/sonido-mood/logging"
	"github.com/RyanBlaney/sonido-mood/schema"
	"github.com/RyanBlaney/sonido-mood/training"
	"github.com/RyanBlaney/sonido-mood/transcode"
)

func newDatasetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build and inspect training datasets",
	}
	cmd.AddCommand(newDatasetPrepareCommand(a), newDatasetInspectCommand(a))
	return cmd
}

func newDatasetPrepareCommand(a *app) *cobra.Command {
	var (
		manifest   string
		out        string
		workers    int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "prepare genre|mood",
		Short: "Extract features for every file of a manifest",
		Long: `Extract features for every file listed in a CSV manifest and write the
result as a dataset bundle.

Genre manifests have the columns path,genre. Mood manifests have the
columns path,valence,arousal. Relative paths are resolved against the
manifest's directory; files that are missing or cannot be decoded are
skipped with a warning.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(artifact.KindGenre), string(artifact.KindMood)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := artifact.ParseKind(args[0])
			if err != nil {
				return err
			}
			if workers < 1 {
				workers = a.cfg.Training.Workers
			}

			f, dir, err := training.OpenManifest(manifest)
			if err != nil {
				return err
			}
			defer f.Close()

			s := schema.Default()
			logger := logging.WithFields(logging.Fields{"command": "dataset prepare", "kind": string(kind)})
			features := training.FileFeatures(
				transcode.NewDecoder(a.cfg.Audio, logger),
				extractor.New(a.cfg.Analysis, s),
			)

			progress := newProgress(cmd.ErrOrStderr(), !noProgress)
			opts := training.PrepareOptions{Schema: s, Workers: workers, Logger: logger}
			ds, total, err := prepare(cmd.Context(), kind, f, dir, features, opts, progress)
			progress.Wait()
			if err != nil {
				return err
			}
			if ds == nil {
				return errors.New("no dataset was produced")
			}

			if err := ds.Save(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d files to %s\n", ds.Len(), total, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "CSV manifest of labelled audio files")
	cmd.Flags().StringVarP(&out, "out", "o", "", "dataset bundle to write")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel extractions (default: training.workers)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func prepare(ctx context.Context, kind artifact.Kind, manifest io.Reader, dir string,
	features training.FeatureFunc, opts training.PrepareOptions, progress *mpb.Progress) (*training.Dataset, int, error) {
	switch kind {
	case artifact.KindGenre:
		entries, err := training.ReadGenreManifest(manifest, dir)
		if err != nil {
			return nil, 0, err
		}
		bar := countBar(progress, "Extracting", len(entries))
		opts.Progress = func(int, int) { bar.Increment() }
		ds, err := training.PrepareGenre(ctx, entries, features, opts)
		finishBar(bar, err)
		return ds, len(entries), err
	default:
		entries, err := training.ReadMoodManifest(manifest, dir)
		if err != nil {
			return nil, 0, err
		}
		bar := countBar(progress, "Extracting", len(entries))
		opts.Progress = func(int, int) { bar.Increment() }
		ds, err := training.PrepareMood(ctx, entries, features, opts)
		finishBar(bar, err)
		return ds, len(entries), err
	}
}

func newDatasetInspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <bundle>",
		Short: "Summarise a dataset bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := training.LoadDataset(args[0])
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("dataset %s does not exist", args[0])
				}
				return err
			}
			s := schema.Default()
			if ds.SchemaHash != s.Hash() {
				logging.Warn("Dataset was built for a different feature schema", logging.Fields{
					"dataset": ds.SchemaHash,
					"running": s.Hash(),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), training.Inspect(ds, s).Text())
			return nil
		},
	}
}
