package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/logging"
	"github.com/RyanBlaney/sonido-mood/schema"
	"github.com/RyanBlaney/sonido-mood/training"
)

func newTrainCommand(a *app) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:       "train genre|mood",
		Short:     "Fit a scaler and model from a dataset bundle",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(artifact.KindGenre), string(artifact.KindMood)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := artifact.ParseKind(args[0])
			if err != nil {
				return err
			}
			ds, err := training.LoadDataset(data)
			if err != nil {
				return err
			}

			s := schema.Default()
			reg := a.registry()
			logger := logging.WithFields(logging.Fields{"command": "train", "kind": string(kind)})
			logger.Info("Training", logging.Fields{"rows": ds.Len(), "dataset": data})

			var (
				pair    *artifact.Pair
				summary string
			)
			switch kind {
			case artifact.KindGenre:
				var report training.GenreReport
				pair, report, err = training.TrainGenre(cmd.Context(), ds, s, a.cfg.Training)
				summary = genreSummary(report)
			default:
				var report training.MoodReport
				pair, report, err = training.TrainMood(cmd.Context(), ds, s, a.cfg.Training)
				summary = moodSummary(report)
			}
			if err != nil {
				return err
			}
			if err := reg.Put(pair); err != nil {
				return err
			}

			paths := reg.Paths(kind)
			out := cmd.OutOrStdout()
			fmt.Fprint(out, summary)
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Run:"), pair.RunID)
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Scaler:"), paths.Scaler)
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Model:"), paths.Model)
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "dataset bundle written by `dataset prepare`")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func genreSummary(r training.GenreReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Classes: %s\n", strings.Join(r.Classes, ", "))
	fmt.Fprintf(&b, "Train: %d rows, accuracy %.3f\n", r.TrainSize, r.TrainAccuracy)
	fmt.Fprintf(&b, "Test:  %d rows, accuracy %s\n", r.TestSize, metric(r.TestAccuracy))
	return b.String()
}

func moodSummary(r training.MoodReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Iterations: %d, final loss %.5f\n", r.Iterations, r.FinalLoss)
	fmt.Fprintf(&b, "Train: %d rows, RMSE %.4f\n", r.TrainSize, r.TrainRMSE)
	fmt.Fprintf(&b, "Test:  %d rows, RMSE %s\n", r.TestSize, metric(r.TestRMSE))
	return b.String()
}

func metric(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
