package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-mood/store"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		asJSON bool
		del    bool
	)

	cmd := &cobra.Command{
		Use:   "history [path]",
		Short: "List stored analysis reports, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if del {
					return errors.New("--delete needs a path")
				}
				reports, err := st.List(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, reports)
				}
				if len(reports) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("No stored reports."))
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PATH\tGENRE\tMOOD\tANALYZED")
				for _, r := range reports {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Path, r.Genre.Label, r.Mood.Label, r.AnalyzedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			}

			path := args[0]
			if del {
				if err := st.Delete(ctx, path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %s\n", path)
				return nil
			}
			report, err := st.Get(ctx, path)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no stored report for %s", path)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(out, report)
			}
			fmt.Fprintln(out, titleStyle.Render(report.Path))
			fmt.Fprint(out, report.Text())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&del, "delete", false, "remove the stored report for path")
	return cmd
}
