// Package training builds feature datasets from labelled audio and fits
// the genre and mood artifact pairs from them.
package training

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/schema"
)

// ErrEmptyDataset is returned when a dataset has no rows to train on.
var ErrEmptyDataset = errors.New("dataset is empty")

// Dataset is a feature matrix plus its supervision. Genre rows have the
// genre length and a label each; mood rows have the combined length with
// valence and arousal in the mood slice.
type Dataset struct {
	Kind       artifact.Kind `msgpack:"kind"`
	SchemaHash string        `msgpack:"schema_hash"`
	X          [][]float64   `msgpack:"x"`
	Labels     []string      `msgpack:"labels,omitempty"`
	Paths      []string      `msgpack:"paths,omitempty"`
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.X) }

// Width returns the row length, or 0 for an empty dataset.
func (d *Dataset) Width() int {
	if len(d.X) == 0 {
		return 0
	}
	return len(d.X[0])
}

// Validate checks the dataset against s.
func (d *Dataset) Validate(s *schema.Schema) error {
	if !d.Kind.IsValid() {
		return fmt.Errorf("dataset has invalid kind %q", d.Kind)
	}
	if d.SchemaHash != s.Hash() {
		return fmt.Errorf("dataset was built for schema %s, running %s", d.SchemaHash, s.Hash())
	}
	if len(d.X) == 0 {
		return ErrEmptyDataset
	}

	want := s.GenreTotal()
	if d.Kind == artifact.KindMood {
		want = s.TotalLength()
	}
	for i, row := range d.X {
		if len(row) != want {
			return fmt.Errorf("row %d: %w", i, &schema.MismatchError{Component: "dataset", Expected: want, Actual: len(row)})
		}
	}
	if d.Kind == artifact.KindGenre && len(d.Labels) != len(d.X) {
		return fmt.Errorf("dataset has %d rows but %d labels", len(d.X), len(d.Labels))
	}
	if len(d.Paths) != 0 && len(d.Paths) != len(d.X) {
		return fmt.Errorf("dataset has %d rows but %d paths", len(d.X), len(d.Paths))
	}
	return nil
}

// Inputs returns the genre slice of every row.
func (d *Dataset) Inputs(s *schema.Schema) [][]float64 {
	out := make([][]float64, len(d.X))
	for i, row := range d.X {
		out[i] = row[:s.GenreTotal()]
	}
	return out
}

// Targets returns the valence/arousal pair of every mood row.
func (d *Dataset) Targets(s *schema.Schema) [][]float64 {
	r := s.MoodRange()
	out := make([][]float64, len(d.X))
	for i, row := range d.X {
		out[i] = row[r.Start:r.End]
	}
	return out
}

// Save writes the dataset as msgpack.
func (d *Dataset) Save(path string) error {
	data, err := msgpack.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadDataset reads a dataset written by Save.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Dataset
	if err := msgpack.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &d, nil
}
