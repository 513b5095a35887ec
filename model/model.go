// Package model holds the numeric models behind inference: a standard
// scaler, a random-forest classifier and a multi-layer perceptron regressor.
// Every model checks the width of its input and reports a
// schema.MismatchError when it disagrees.
package model

import (
	"github.com/RyanBlaney/sonido-mood/schema"
)

// Classifier yields a probability for each of its classes.
type Classifier interface {
	// Classes returns the class names in the model's native order.
	Classes() []string
	// Features returns the expected input width.
	Features() int
	// PredictProba returns one probability per class, in Classes order.
	PredictProba(x []float64) ([]float64, error)
}

// Regressor maps an input vector to a fixed number of outputs.
type Regressor interface {
	Features() int
	Outputs() int
	Predict(x []float64) ([]float64, error)
}

func checkWidth(component string, want int, x []float64) error {
	if len(x) != want {
		return &schema.MismatchError{Component: component, Expected: want, Actual: len(x)}
	}
	return nil
}

func checkMatrix(component string, X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, &FitError{Model: component, Reason: "no samples"}
	}
	width := len(X[0])
	if width == 0 {
		return 0, &FitError{Model: component, Reason: "samples have no features"}
	}
	for _, row := range X {
		if err := checkWidth(component, width, row); err != nil {
			return 0, err
		}
	}
	return width, nil
}

// FitError reports training input that cannot produce a model.
type FitError struct {
	Model  string
	Reason string
}

func (e *FitError) Error() string {
	return "fit " + e.Model + ": " + e.Reason
}
