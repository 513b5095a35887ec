package inference

import (
	"fmt"

	"github.com/RyanBlaney/sonido-mood/model"
	"github.com/RyanBlaney/sonido-mood/schema"
)

// Mood is one of the four valence/arousal quadrants.
type Mood string

const (
	HappyExcited Mood = "Happy/Excited"
	CalmRelaxed  Mood = "Calm/Relaxed"
	AngryTense   Mood = "Angry/Tense"
	SadDepressed Mood = "Sad/Depressed"
)

// quadrantThreshold splits each axis; values equal to it fall on the low
// side.
const quadrantThreshold = 0.5

// Label maps a valence/arousal point to its quadrant.
func Label(valence, arousal float64) Mood {
	highV := valence > quadrantThreshold
	highA := arousal > quadrantThreshold
	switch {
	case highV && highA:
		return HappyExcited
	case highV:
		return CalmRelaxed
	case highA:
		return AngryTense
	default:
		return SadDepressed
	}
}

// MoodScore is the regressor output. The fields are named so callers never
// depend on output order.
type MoodScore struct {
	Valence float64 `json:"valence" msgpack:"valence"`
	Arousal float64 `json:"arousal" msgpack:"arousal"`
}

// MoodPrediction is a score with its quadrant label.
type MoodPrediction struct {
	MoodScore
	Label Mood `json:"label" msgpack:"label"`
}

// Predict labels a score.
func Predict(score MoodScore) MoodPrediction {
	return MoodPrediction{MoodScore: score, Label: Label(score.Valence, score.Arousal)}
}

// MoodRegressor standardises a genre-length vector and regresses valence
// and arousal from it.
type MoodRegressor struct {
	schema    *schema.Schema
	scaler    *model.Scaler
	regressor model.Regressor
}

func NewMoodRegressor(s *schema.Schema, scaler *model.Scaler, regressor model.Regressor) *MoodRegressor {
	return &MoodRegressor{schema: s, scaler: scaler, regressor: regressor}
}

// Predict requires v to be exactly the genre length.
func (m *MoodRegressor) Predict(v schema.Vector) (MoodScore, error) {
	if v.Len() != m.schema.GenreTotal() {
		return MoodScore{}, &schema.MismatchError{Component: "mood regressor", Expected: m.schema.GenreTotal(), Actual: v.Len()}
	}
	scaled, err := m.scaler.Transform(v.Values())
	if err != nil {
		return MoodScore{}, err
	}
	out, err := m.regressor.Predict(scaled)
	if err != nil {
		return MoodScore{}, err
	}
	if len(out) != m.schema.MoodTotal() {
		return MoodScore{}, fmt.Errorf("regressor returned %d outputs, want %d", len(out), m.schema.MoodTotal())
	}
	return MoodScore{Valence: out[0], Arousal: out[1]}, nil
}
