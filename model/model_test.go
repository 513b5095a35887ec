package model

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-mood/schema"
)

func TestScaler(t *testing.T) {
	X := [][]float64{
		{1, 10, 5},
		{3, 10, 5},
		{5, 10, 5},
	}
	s, err := FitScaler(X)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Features())
	assert.Equal(t, 3, s.Samples)
	assert.InDeltaSlice(t, []float64{3, 10, 5}, s.Mean, 1e-12)
	assert.InDelta(t, 8.0/3.0, s.Var[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant feature keeps unit scale")

	out, err := s.Transform([]float64{3, 12, 5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 2, 0}, out, 1e-12)

	all, err := s.TransformAll(X)
	require.NoError(t, err)
	assert.InDelta(t, -math.Sqrt(1.5), all[0][0], 1e-12)

	_, err = s.Transform([]float64{1, 2})
	var mismatch *schema.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Actual)

	require.NoError(t, s.Validate())
	s.Scale[2] = 0
	assert.Error(t, s.Validate())
}

func TestFitScalerRejectsBadInput(t *testing.T) {
	_, err := FitScaler(nil)
	var fitErr *FitError
	assert.ErrorAs(t, err, &fitErr)

	_, err = FitScaler([][]float64{{1, 2}, {1}})
	assert.ErrorIs(t, err, schema.ErrMismatch)
}

// blobs returns three well separated clusters in 4 dimensions.
func blobs(perClass int, seed uint64) ([][]float64, []string) {
	rng := rand.New(rand.NewPCG(seed, 1))
	centres := map[string][]float64{
		"rock":  {5, 0, 0, 1},
		"jazz":  {0, 5, 0, 1},
		"blues": {0, 0, 5, 1},
	}
	var X [][]float64
	var y []string
	for _, label := range []string{"rock", "jazz", "blues"} {
		for range perClass {
			row := make([]float64, 4)
			for j, c := range centres[label] {
				row[j] = c + rng.NormFloat64()*0.3
			}
			X = append(X, row)
			y = append(y, label)
		}
	}
	return X, y
}

func TestForestSeparatesClusters(t *testing.T) {
	X, y := blobs(30, 7)
	p := DefaultForestParams()
	p.Trees = 20

	f, err := FitForest(context.Background(), X, y, p)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	assert.Equal(t, []string{"blues", "jazz", "rock"}, f.Classes())
	assert.Equal(t, 4, f.Features())

	tests := []struct {
		x    []float64
		want string
	}{
		{[]float64{5, 0, 0, 1}, "rock"},
		{[]float64{0, 5, 0, 1}, "jazz"},
		{[]float64{0, 0, 5, 1}, "blues"},
	}
	for _, tt := range tests {
		proba, err := f.PredictProba(tt.x)
		require.NoError(t, err)
		sum := 0.0
		for _, p := range proba {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)

		got, err := f.Predict(tt.x)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestForestIsDeterministic(t *testing.T) {
	X, y := blobs(15, 3)
	p := DefaultForestParams()
	p.Trees = 10

	a, err := FitForest(context.Background(), X, y, p)
	require.NoError(t, err)
	p.Workers = 1
	b, err := FitForest(context.Background(), X, y, p)
	require.NoError(t, err)
	assert.Equal(t, a, b, "worker count must not change the result")

	p.Seed = 99
	c, err := FitForest(context.Background(), X, y, p)
	require.NoError(t, err)
	assert.NotEqual(t, a.Trees, c.Trees)
}

func TestForestRespectsMaxDepth(t *testing.T) {
	X, y := blobs(20, 5)
	p := DefaultForestParams()
	p.Trees = 5
	p.MaxDepth = 1

	f, err := FitForest(context.Background(), X, y, p)
	require.NoError(t, err)
	for _, tree := range f.Trees {
		assert.LessOrEqual(t, len(tree.Nodes), 3)
	}
}

func TestForestErrors(t *testing.T) {
	ctx := context.Background()
	X, y := blobs(5, 1)

	_, err := FitForest(ctx, X, y[:3], DefaultForestParams())
	var fitErr *FitError
	assert.ErrorAs(t, err, &fitErr)

	p := DefaultForestParams()
	p.Trees = 0
	_, err = FitForest(ctx, X, y, p)
	assert.ErrorAs(t, err, &fitErr)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = FitForest(cancelled, X, y, DefaultForestParams())
	assert.ErrorIs(t, err, context.Canceled)

	p.Trees = 2
	f, err := FitForest(ctx, X, y, p)
	require.NoError(t, err)
	_, err = f.PredictProba([]float64{1, 2, 3})
	assert.True(t, errors.Is(err, schema.ErrMismatch))

	f.Trees[0].Nodes[0].Left = 0
	if f.Trees[0].Nodes[0].Feature >= 0 {
		assert.Error(t, f.Validate())
	}
	assert.Error(t, (&RandomForest{NFeatures: 4}).Validate())
}

func TestMLPLearnsConstantTarget(t *testing.T) {
	X, _ := blobs(20, 11)
	Y := make([][]float64, len(X))
	for i := range Y {
		Y[i] = []float64{0.5, -0.25}
	}

	p := DefaultMLPParams()
	p.Hidden = []int{16}
	p.BatchSize = 10
	p.LearningRate = 0.01
	p.Epochs = 300
	p.NoChange = 0

	m, err := FitMLP(context.Background(), X, Y, p)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, 4, m.Features())
	assert.Equal(t, 2, m.Outputs())
	require.NotEmpty(t, m.LossCurve)
	assert.Less(t, m.LossCurve[len(m.LossCurve)-1], m.LossCurve[0])
	assert.Equal(t, len(m.LossCurve), m.Iterations)

	out, err := m.Predict(X[0])
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out[0], 0.1)
	assert.InDelta(t, -0.25, out[1], 0.1)

	_, err = m.Predict([]float64{1})
	assert.ErrorIs(t, err, schema.ErrMismatch)
}

func TestMLPIsDeterministic(t *testing.T) {
	X, _ := blobs(5, 2)
	Y := make([][]float64, len(X))
	for i, row := range X {
		Y[i] = []float64{row[0] / 5, row[1] / 5}
	}
	p := DefaultMLPParams()
	p.Hidden = []int{8, 4}
	p.Epochs = 20

	a, err := FitMLP(context.Background(), X, Y, p)
	require.NoError(t, err)
	b, err := FitMLP(context.Background(), X, Y, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	require.Len(t, a.Layers, 3)
	assert.Equal(t, 8, a.Layers[0].Out)
	assert.Equal(t, 4, a.Layers[1].Out)
}

func TestMLPErrors(t *testing.T) {
	ctx := context.Background()
	X := [][]float64{{1, 2}, {3, 4}}

	_, err := FitMLP(ctx, X, [][]float64{{1}}, DefaultMLPParams())
	var fitErr *FitError
	assert.ErrorAs(t, err, &fitErr)

	p := DefaultMLPParams()
	p.Hidden = []int{0}
	_, err = FitMLP(ctx, X, [][]float64{{1}, {2}}, p)
	assert.ErrorAs(t, err, &fitErr)

	bad := &MLP{Layers: []Layer{{In: 2, Out: 3, Weights: make([]float64, 6), Bias: make([]float64, 3)}, {In: 4, Out: 1, Weights: make([]float64, 4), Bias: make([]float64, 1)}}}
	assert.Error(t, bad.Validate())
	assert.Error(t, (&MLP{}).Validate())
}
