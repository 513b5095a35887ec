package training

import (
	"fmt"
	"slices"
	"strings"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/schema"
)

// previewRows is how many leading rows a Summary keeps.
const previewRows = 5

// Summary describes the shape and supervision of a dataset.
type Summary struct {
	Kind       artifact.Kind
	Rows       int
	Width      int
	SchemaHash string
	Preview    [][]float64

	// genre datasets
	ClassCounts map[string]int

	// mood datasets
	ValenceRange [2]float64
	ArousalRange [2]float64
}

// Inspect summarises ds.
func Inspect(ds *Dataset, s *schema.Schema) Summary {
	sum := Summary{
		Kind:       ds.Kind,
		Rows:       ds.Len(),
		Width:      ds.Width(),
		SchemaHash: ds.SchemaHash,
		Preview:    ds.X[:min(previewRows, ds.Len())],
	}

	switch ds.Kind {
	case artifact.KindGenre:
		sum.ClassCounts = make(map[string]int)
		for _, l := range ds.Labels {
			sum.ClassCounts[l]++
		}
	case artifact.KindMood:
		if ds.Width() != s.TotalLength() || ds.Len() == 0 {
			break
		}
		targets := ds.Targets(s)
		sum.ValenceRange = [2]float64{targets[0][0], targets[0][0]}
		sum.ArousalRange = [2]float64{targets[0][1], targets[0][1]}
		for _, t := range targets[1:] {
			sum.ValenceRange[0] = min(sum.ValenceRange[0], t[0])
			sum.ValenceRange[1] = max(sum.ValenceRange[1], t[0])
			sum.ArousalRange[0] = min(sum.ArousalRange[0], t[1])
			sum.ArousalRange[1] = max(sum.ArousalRange[1], t[1])
		}
	}
	return sum
}

// Text renders the summary for the terminal.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kind: %s\n", s.Kind)
	fmt.Fprintf(&b, "Shape of X: (%d, %d)\n", s.Rows, s.Width)
	fmt.Fprintf(&b, "Schema: %s\n", s.SchemaHash)

	if len(s.Preview) > 0 {
		b.WriteString("\nFirst few rows of X:\n")
		for _, row := range s.Preview {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprintf("%.3g", v)
			}
			fmt.Fprintf(&b, "[%s]\n", strings.Join(cells, " "))
		}
	}

	switch s.Kind {
	case artifact.KindGenre:
		names := make([]string, 0, len(s.ClassCounts))
		for name := range s.ClassCounts {
			names = append(names, name)
		}
		slices.Sort(names)
		fmt.Fprintf(&b, "\nClasses (%d):\n", len(names))
		for _, name := range names {
			fmt.Fprintf(&b, "%s: %d\n", name, s.ClassCounts[name])
		}
	case artifact.KindMood:
		fmt.Fprintf(&b, "\nValence range: %.3f .. %.3f\n", s.ValenceRange[0], s.ValenceRange[1])
		fmt.Fprintf(&b, "Arousal range: %.3f .. %.3f\n", s.ArousalRange[0], s.ArousalRange[1])
	}
	return b.String()
}
