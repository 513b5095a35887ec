package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardises each feature to zero mean and unit variance using the
// population statistics of the training set. Features with zero variance
// keep a scale of 1 so they pass through centred but unscaled.
type Scaler struct {
	Mean    []float64 `msgpack:"mean"`
	Var     []float64 `msgpack:"var"`
	Scale   []float64 `msgpack:"scale"`
	Samples int       `msgpack:"samples"`
}

// FitScaler learns per-feature mean and variance from the rows of X.
func FitScaler(X [][]float64) (*Scaler, error) {
	width, err := checkMatrix("scaler", X)
	if err != nil {
		return nil, err
	}

	s := &Scaler{
		Mean:    make([]float64, width),
		Var:     make([]float64, width),
		Scale:   make([]float64, width),
		Samples: len(X),
	}

	column := make([]float64, len(X))
	for j := range width {
		for i, row := range X {
			column[i] = row[j]
		}
		mean, variance := stat.PopMeanVariance(column, nil)
		s.Mean[j] = mean
		s.Var[j] = variance
		s.Scale[j] = scaleFor(variance)
	}
	return s, nil
}

// machine epsilon for float64
const epsilon = 2.220446049250313e-16

func scaleFor(variance float64) float64 {
	sd := math.Sqrt(variance)
	if sd < 10*epsilon {
		return 1
	}
	return sd
}

// Features returns the expected input width.
func (s *Scaler) Features() int { return len(s.Mean) }

// Transform returns (x - mean) / scale as a new slice.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if err := checkWidth("scaler", len(s.Mean), x); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// TransformAll applies Transform to every row.
func (s *Scaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		t, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// Validate checks internal consistency after decoding.
func (s *Scaler) Validate() error {
	n := len(s.Mean)
	if n == 0 {
		return fmt.Errorf("scaler has no features")
	}
	if len(s.Scale) != n || len(s.Var) != n {
		return fmt.Errorf("scaler arrays disagree: mean %d, var %d, scale %d", n, len(s.Var), len(s.Scale))
	}
	for i, sc := range s.Scale {
		if sc == 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return fmt.Errorf("scaler feature %d has invalid scale %v", i, sc)
		}
	}
	return nil
}
