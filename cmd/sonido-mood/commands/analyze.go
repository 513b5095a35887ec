package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-mood/analyzer"
	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/extractor"
	"github.com/RyanBlaney/sonido-mood/logging"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var (
		save       bool
		asJSON     bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Predict the genre and mood of audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.WithFields(logging.Fields{"command": "analyze"})

			an := analyzer.New(a.cfg, a.registry())
			progress := newProgress(cmd.ErrOrStderr(), !noProgress && !asJSON)

			var (
				reports []*analyzer.Report
				errs    []error
			)
			for _, path := range args {
				bar := percentBar(progress, filepath.Base(path))
				report, err := an.Analyze(ctx, path, extractor.ObserverFunc(func(c extractor.Checkpoint) {
					bar.SetCurrent(int64(c))
				}))
				if err != nil {
					bar.Abort(false)
					errs = append(errs, explain(path, err))
					if ctx.Err() != nil {
						break
					}
					continue
				}
				reports = append(reports, report)
			}
			progress.Wait()

			if save && len(reports) > 0 {
				if err := a.saveReports(cmd, reports); err != nil {
					return err
				}
				logger.Info("Saved reports", logging.Fields{"count": len(reports)})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, reports); err != nil {
					return err
				}
			} else {
				for i, r := range reports {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintln(out, titleStyle.Render(r.Path))
					fmt.Fprint(out, r.Text())
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the reports in the history database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reports as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bars")
	return cmd
}

func (a *app) saveReports(cmd *cobra.Command, reports []*analyzer.Report) error {
	if a.cfg.Store.Dir == "" {
		logging.Warn("store.dir is not set; history is kept in memory and lost on exit")
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	for _, r := range reports {
		if err := st.Put(cmd.Context(), r); err != nil {
			return err
		}
	}
	return nil
}

// explain adds a hint to errors a user can fix from the command line.
func explain(path string, err error) error {
	var missing *artifact.MissingError
	if errors.As(err, &missing) {
		return fmt.Errorf("%s: %w (train one with `sonido-mood train %s --data <bundle>`)", path, err, missing.Kind)
	}
	return fmt.Errorf("%s: %w", path, err)
}
