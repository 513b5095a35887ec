package artifact

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-mood/model"
	"github.com/RyanBlaney/sonido-mood/schema"
)

// Pair is a scaler and the model trained on its output. Genre pairs carry
// a Forest, mood pairs an MLP.
type Pair struct {
	Kind       Kind
	RunID      string
	SchemaHash string
	CreatedAt  time.Time

	Scaler *model.Scaler
	Forest *model.RandomForest
	MLP    *model.MLP
}

// NewGenrePair stamps a freshly trained genre scaler and forest with a new
// run id.
func NewGenrePair(s *schema.Schema, scaler *model.Scaler, forest *model.RandomForest) *Pair {
	return &Pair{
		Kind:       KindGenre,
		RunID:      uuid.NewString(),
		SchemaHash: s.Hash(),
		CreatedAt:  time.Now().UTC(),
		Scaler:     scaler,
		Forest:     forest,
	}
}

// NewMoodPair stamps a freshly trained mood scaler and regressor with a new
// run id.
func NewMoodPair(s *schema.Schema, scaler *model.Scaler, mlp *model.MLP) *Pair {
	return &Pair{
		Kind:       KindMood,
		RunID:      uuid.NewString(),
		SchemaHash: s.Hash(),
		CreatedAt:  time.Now().UTC(),
		Scaler:     scaler,
		MLP:        mlp,
	}
}

// Classifier returns the genre model.
func (p *Pair) Classifier() model.Classifier { return p.Forest }

// Regressor returns the mood model.
func (p *Pair) Regressor() model.Regressor { return p.MLP }

func (p *Pair) modelType() string {
	if p.Kind == KindGenre {
		return ModelRandomForest
	}
	return ModelMLP
}

// Validate checks that both halves are present, internally consistent and
// shaped for s: both take the genre-length vector, the genre model has at
// least one class and the mood model yields exactly the mood outputs.
func (p *Pair) Validate(s *schema.Schema) error {
	if !p.Kind.IsValid() {
		return fmt.Errorf("invalid kind %q", p.Kind)
	}
	if p.Scaler == nil {
		return fmt.Errorf("%s pair has no scaler", p.Kind)
	}
	if err := p.Scaler.Validate(); err != nil {
		return err
	}
	if p.Scaler.Features() != s.GenreTotal() {
		return &schema.MismatchError{Component: string(p.Kind) + " scaler", Expected: s.GenreTotal(), Actual: p.Scaler.Features()}
	}

	switch p.Kind {
	case KindGenre:
		if p.Forest == nil {
			return fmt.Errorf("genre pair has no classifier")
		}
		if err := p.Forest.Validate(); err != nil {
			return err
		}
		if p.Forest.Features() != s.GenreTotal() {
			return &schema.MismatchError{Component: "genre classifier", Expected: s.GenreTotal(), Actual: p.Forest.Features()}
		}
	case KindMood:
		if p.MLP == nil {
			return fmt.Errorf("mood pair has no regressor")
		}
		if err := p.MLP.Validate(); err != nil {
			return err
		}
		if p.MLP.Features() != s.GenreTotal() {
			return &schema.MismatchError{Component: "mood regressor", Expected: s.GenreTotal(), Actual: p.MLP.Features()}
		}
		if p.MLP.Outputs() != s.MoodTotal() {
			return &schema.MismatchError{Component: "mood regressor outputs", Expected: s.MoodTotal(), Actual: p.MLP.Outputs()}
		}
	}
	return nil
}
