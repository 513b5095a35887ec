package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-mood/model"
	"github.com/RyanBlaney/sonido-mood/schema"
)

type fixedClassifier struct {
	classes []string
	proba   []float64
	seen    []float64
}

func (f *fixedClassifier) Classes() []string { return f.classes }
func (f *fixedClassifier) Features() int     { return schema.GenreTotal }
func (f *fixedClassifier) PredictProba(x []float64) ([]float64, error) {
	f.seen = x
	return f.proba, nil
}

type fixedRegressor struct {
	out  []float64
	seen []float64
}

func (f *fixedRegressor) Features() int { return schema.GenreTotal }
func (f *fixedRegressor) Outputs() int  { return len(f.out) }
func (f *fixedRegressor) Predict(x []float64) ([]float64, error) {
	f.seen = x
	return f.out, nil
}

// identityScaler leaves vectors unchanged.
func identityScaler(width int) *model.Scaler {
	s := &model.Scaler{
		Mean:  make([]float64, width),
		Var:   make([]float64, width),
		Scale: make([]float64, width),
	}
	for i := range s.Scale {
		s.Scale[i] = 1
		s.Var[i] = 1
	}
	return s
}

func ramp(n int) schema.Vector {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	return schema.NewVector(values)
}

func TestGenrePredict(t *testing.T) {
	s := schema.Default()
	clf := &fixedClassifier{classes: []string{"A", "B", "C"}, proba: []float64{0.5, 0.3, 0.2}}
	g := NewGenreClassifier(s, identityScaler(s.GenreTotal()), clf)

	got, err := g.Predict(ramp(s.GenreTotal()))
	require.NoError(t, err)
	assert.Equal(t, "A", got.Label)
	assert.Equal(t, []GenreScore{{"A", 0.5}, {"B", 0.3}, {"C", 0.2}}, got.Ranked)
}

func TestGenrePredictTruncatesMoodTail(t *testing.T) {
	s := schema.Default()
	clf := &fixedClassifier{classes: []string{"A", "B"}, proba: []float64{0.1, 0.9}}
	g := NewGenreClassifier(s, identityScaler(s.GenreTotal()), clf)

	got, err := g.Predict(ramp(s.TotalLength()))
	require.NoError(t, err)
	assert.Equal(t, "B", got.Label)
	assert.Len(t, got.Ranked, 2)
	assert.Len(t, clf.seen, s.GenreTotal())
	assert.Equal(t, float64(s.GenreTotal()-1), clf.seen[len(clf.seen)-1])

	_, err = g.Predict(ramp(10))
	assert.ErrorIs(t, err, schema.ErrMismatch)
}

func TestTopK(t *testing.T) {
	tests := []struct {
		name    string
		classes []string
		proba   []float64
		want    []string
	}{
		{"ordered", []string{"a", "b", "c", "d"}, []float64{0.1, 0.4, 0.3, 0.2}, []string{"b", "c", "d"}},
		{"ties keep class order", []string{"a", "b", "c", "d"}, []float64{0.25, 0.25, 0.25, 0.25}, []string{"a", "b", "c"}},
		{"fewer than k", []string{"x", "y"}, []float64{0.2, 0.8}, []string{"y", "x"}},
		{"single", []string{"only"}, []float64{1}, []string{"only"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := TopK(tt.classes, tt.proba, TopGenres)
			require.Len(t, ranked, min(TopGenres, len(tt.classes)))
			var names []string
			for i, r := range ranked {
				names = append(names, r.Genre)
				if i > 0 {
					assert.GreaterOrEqual(t, ranked[i-1].Probability, r.Probability)
				}
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestGenrePredictRejectsBadClassifier(t *testing.T) {
	s := schema.Default()
	clf := &fixedClassifier{classes: []string{"A", "B"}, proba: []float64{1}}
	_, err := NewGenreClassifier(s, identityScaler(s.GenreTotal()), clf).Predict(ramp(s.GenreTotal()))
	assert.Error(t, err)

	empty := &fixedClassifier{}
	_, err = NewGenreClassifier(s, identityScaler(s.GenreTotal()), empty).Predict(ramp(s.GenreTotal()))
	assert.Error(t, err)
}

func TestMoodPredict(t *testing.T) {
	s := schema.Default()
	reg := &fixedRegressor{out: []float64{0.7, 0.2}}
	m := NewMoodRegressor(s, identityScaler(s.GenreTotal()), reg)

	score, err := m.Predict(ramp(s.GenreTotal()))
	require.NoError(t, err)
	assert.Equal(t, MoodScore{Valence: 0.7, Arousal: 0.2}, score)
	assert.Equal(t, CalmRelaxed, Predict(score).Label)
}

func TestMoodPredictRequiresGenreLength(t *testing.T) {
	s := schema.Default()
	m := NewMoodRegressor(s, identityScaler(s.GenreTotal()), &fixedRegressor{out: []float64{0, 0}})

	for _, n := range []int{27, 29, 30} {
		_, err := m.Predict(ramp(n))
		var mismatch *schema.MismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 28, mismatch.Expected)
		assert.Equal(t, n, mismatch.Actual)
	}

	bad := NewMoodRegressor(s, identityScaler(s.GenreTotal()), &fixedRegressor{out: []float64{1}})
	_, err := bad.Predict(ramp(s.GenreTotal()))
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		valence, arousal float64
		want             Mood
	}{
		{0.9, 0.9, HappyExcited},
		{0.9, 0.1, CalmRelaxed},
		{0.1, 0.9, AngryTense},
		{0.1, 0.1, SadDepressed},
		{0.51, 0.5, CalmRelaxed},
		{0.51, 0.51, HappyExcited},
		{0.5, 0.51, AngryTense},
		{0.5, 0.5, SadDepressed},
		{0.5, 0.6, AngryTense},
		{-3, 7, AngryTense},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.valence, tt.arousal), "label(%v, %v)", tt.valence, tt.arousal)
	}
}
