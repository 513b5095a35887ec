// Package inference runs trained artifact pairs over feature vectors.
package inference

import (
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-mood/model"
	"github.com/RyanBlaney/sonido-mood/schema"
)

// TopGenres is how many ranked genres a prediction carries.
const TopGenres = 3

// GenreScore is one class and its probability.
type GenreScore struct {
	Genre       string  `json:"genre" msgpack:"genre"`
	Probability float64 `json:"probability" msgpack:"probability"`
}

// GenrePrediction is the most likely genre and the best few candidates.
type GenrePrediction struct {
	Label  string       `json:"label" msgpack:"label"`
	Ranked []GenreScore `json:"ranked" msgpack:"ranked"`
}

// GenreClassifier standardises the genre slice of a vector and classifies
// it.
type GenreClassifier struct {
	schema     *schema.Schema
	scaler     *model.Scaler
	classifier model.Classifier
}

func NewGenreClassifier(s *schema.Schema, scaler *model.Scaler, classifier model.Classifier) *GenreClassifier {
	return &GenreClassifier{schema: s, scaler: scaler, classifier: classifier}
}

// Predict classifies v. Vectors longer than the genre layout, such as
// mood-annotated ones, are truncated to the genre slice.
func (g *GenreClassifier) Predict(v schema.Vector) (GenrePrediction, error) {
	genre, err := g.schema.GenreSlice(v)
	if err != nil {
		return GenrePrediction{}, err
	}
	scaled, err := g.scaler.Transform(genre.Values())
	if err != nil {
		return GenrePrediction{}, err
	}
	proba, err := g.classifier.PredictProba(scaled)
	if err != nil {
		return GenrePrediction{}, err
	}

	classes := g.classifier.Classes()
	if len(classes) == 0 || len(classes) != len(proba) {
		return GenrePrediction{}, fmt.Errorf("classifier returned %d probabilities for %d classes", len(proba), len(classes))
	}

	ranked := TopK(classes, proba, TopGenres)
	return GenrePrediction{Label: ranked[0].Genre, Ranked: ranked}, nil
}

// TopK returns the k most probable classes, highest first. Equal
// probabilities keep the order of classes.
func TopK(classes []string, proba []float64, k int) []GenreScore {
	scores := make([]GenreScore, len(classes))
	for i, c := range classes {
		scores[i] = GenreScore{Genre: c, Probability: proba[i]}
	}
	slices.SortStableFunc(scores, func(a, b GenreScore) int {
		switch {
		case a.Probability > b.Probability:
			return -1
		case a.Probability < b.Probability:
			return 1
		}
		return 0
	})
	return scores[:min(k, len(scores))]
}
