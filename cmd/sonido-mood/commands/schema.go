package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-mood/schema"
)

func newSchemaCommand(_ *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the feature vector layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := schema.Default()
			out := cmd.OutOrStdout()

			if asJSON {
				return printJSON(out, struct {
					Hash     string             `json:"hash"`
					Genre    int                `json:"genre_length"`
					Mood     int                `json:"mood_length"`
					Segments []schema.Placement `json:"segments"`
					Names    []string           `json:"names"`
				}{s.Hash(), s.GenreTotal(), s.MoodTotal(), s.Segments(), s.Names()})
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GROUP\tSEGMENT\tSTART\tEND\tWIDTH")
			for _, p := range s.Segments() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", p.Group, p.Name, p.Start, p.End, p.Segment.Width)
			}
			fmt.Fprintln(w, "\nINDEX\tFEATURE")
			for i, name := range s.Names() {
				fmt.Fprintf(w, "%d\t%s\n", i, name)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nGenre length: %d\nMood length: %d\nTotal: %d\nHash: %s\n",
				s.GenreTotal(), s.MoodTotal(), s.TotalLength(), s.Hash())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
