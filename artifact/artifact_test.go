package artifact

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/model"
	"github.com/RyanBlaney/sonido-mood/schema"
)

func trainingRows(n, width int) [][]float64 {
	rng := rand.New(rand.NewPCG(1, 2))
	X := make([][]float64, n)
	for i := range X {
		X[i] = make([]float64, width)
		for j := range X[i] {
			X[i][j] = rng.NormFloat64()
		}
		X[i][0] += float64(i % 2 * 4)
	}
	return X
}

func genrePair(t *testing.T, s *schema.Schema) *Pair {
	t.Helper()
	X := trainingRows(20, s.GenreTotal())
	y := make([]string, len(X))
	for i := range y {
		y[i] = []string{"pop", "metal"}[i%2]
	}
	scaler, err := model.FitScaler(X)
	require.NoError(t, err)
	p := model.DefaultForestParams()
	p.Trees = 3
	forest, err := model.FitForest(context.Background(), X, y, p)
	require.NoError(t, err)
	return NewGenrePair(s, scaler, forest)
}

func moodPair(t *testing.T, s *schema.Schema) *Pair {
	t.Helper()
	X := trainingRows(10, s.GenreTotal())
	Y := make([][]float64, len(X))
	for i := range Y {
		Y[i] = []float64{0.1, -0.1}
	}
	scaler, err := model.FitScaler(X)
	require.NoError(t, err)
	p := model.DefaultMLPParams()
	p.Hidden = []int{4}
	p.Epochs = 2
	mlp, err := model.FitMLP(context.Background(), X, Y, p)
	require.NoError(t, err)
	return NewMoodPair(s, scaler, mlp)
}

func testPaths(t *testing.T, kind Kind) Paths {
	cfg := config.Default().Artifacts
	cfg.Dir = t.TempDir()
	return PathsFor(cfg, kind)
}

func TestSaveLoadGenre(t *testing.T) {
	s := schema.Default()
	pair := genrePair(t, s)
	paths := testPaths(t, KindGenre)
	assert.Equal(t, "genre_scaler.msgpack", filepath.Base(paths.Scaler))

	require.NoError(t, Save(pair, paths, s))

	got, err := Load(KindGenre, paths, s)
	require.NoError(t, err)
	assert.Equal(t, pair.RunID, got.RunID)
	assert.True(t, pair.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, pair.Scaler, got.Scaler)
	assert.Equal(t, pair.Forest.Classes(), got.Forest.Classes())
	assert.Nil(t, got.MLP)

	x := trainingRows(1, s.GenreTotal())[0]
	want, err := pair.Classifier().PredictProba(x)
	require.NoError(t, err)
	have, err := got.Classifier().PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, want, have)

	desc, err := Inspect(paths.Model)
	require.NoError(t, err)
	assert.Equal(t, KindGenre, desc.Kind)
	assert.Equal(t, RoleModel, desc.Role)
	assert.Equal(t, ModelRandomForest, desc.ModelType)
	assert.Equal(t, s.Hash(), desc.SchemaHash)
	assert.Equal(t, 28, desc.Features)
}

func TestSaveLoadMood(t *testing.T) {
	s := schema.Default()
	pair := moodPair(t, s)
	paths := testPaths(t, KindMood)
	require.NoError(t, Save(pair, paths, s))

	got, err := Load(KindMood, paths, s)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Regressor().Outputs())

	x := trainingRows(1, s.GenreTotal())[0]
	want, _ := pair.Regressor().Predict(x)
	have, err := got.Regressor().Predict(x)
	require.NoError(t, err)
	assert.Equal(t, want, have)
}

func TestLoadMissing(t *testing.T) {
	s := schema.Default()
	_, err := Load(KindGenre, testPaths(t, KindGenre), s)
	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.ErrorIs(t, err, ErrMissing)
	assert.Equal(t, KindGenre, missing.Kind)

	// a scaler alone is still missing its model
	pair := genrePair(t, s)
	paths := testPaths(t, KindGenre)
	require.NoError(t, Save(pair, paths, s))
	require.NoError(t, os.Remove(paths.Model))
	_, err = Load(KindGenre, paths, s)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestLoadCorrupt(t *testing.T) {
	s := schema.Default()
	paths := testPaths(t, KindGenre)
	require.NoError(t, Save(genrePair(t, s), paths, s))
	require.NoError(t, os.WriteFile(paths.Model, []byte("not msgpack at all"), 0644))

	_, err := Load(KindGenre, paths, s)
	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, paths.Model, corrupt.Path)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.NotErrorIs(t, err, ErrPairMismatch)
}

func TestLoadDetectsMixedPairs(t *testing.T) {
	s := schema.Default()
	genrePaths := testPaths(t, KindGenre)
	moodPaths := testPaths(t, KindMood)
	require.NoError(t, Save(genrePair(t, s), genrePaths, s))
	require.NoError(t, Save(moodPair(t, s), moodPaths, s))

	t.Run("genre scaler with mood model", func(t *testing.T) {
		_, err := Load(KindGenre, Paths{Scaler: genrePaths.Scaler, Model: moodPaths.Model}, s)
		assert.ErrorIs(t, err, ErrPairMismatch)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("halves of different runs", func(t *testing.T) {
		other := testPaths(t, KindGenre)
		require.NoError(t, Save(genrePair(t, s), other, s))
		_, err := Load(KindGenre, Paths{Scaler: genrePaths.Scaler, Model: other.Model}, s)
		assert.ErrorIs(t, err, ErrPairMismatch)
	})

	t.Run("swapped roles", func(t *testing.T) {
		_, err := Load(KindGenre, Paths{Scaler: genrePaths.Model, Model: genrePaths.Scaler}, s)
		assert.ErrorIs(t, err, ErrPairMismatch)
	})
}

func TestSaveRejectsInvalidPair(t *testing.T) {
	s := schema.Default()
	pair := genrePair(t, s)
	pair.Forest = nil
	assert.Error(t, Save(pair, testPaths(t, KindGenre), s))

	narrow, err := model.FitScaler([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	pair = genrePair(t, s)
	pair.Scaler = narrow
	err = Save(pair, testPaths(t, KindGenre), s)
	assert.ErrorIs(t, err, schema.ErrMismatch)
}

func TestRegistryCachesPairs(t *testing.T) {
	s := schema.Default()
	cfg := config.Default().Artifacts
	cfg.Dir = t.TempDir()
	reg := NewRegistry(cfg, s)
	assert.Same(t, s, reg.Schema())

	_, err := reg.Genre()
	assert.ErrorIs(t, err, ErrMissing)

	pair := genrePair(t, s)
	require.NoError(t, Save(pair, reg.Paths(KindGenre), s))

	first, err := reg.Genre()
	require.NoError(t, err)
	assert.Equal(t, pair.RunID, first.RunID)

	require.NoError(t, os.RemoveAll(cfg.Dir))
	second, err := reg.Genre()
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = reg.Reload(KindGenre)
	assert.ErrorIs(t, err, ErrMissing)

	mood := moodPair(t, s)
	require.NoError(t, reg.Put(mood))
	got, err := reg.Mood()
	require.NoError(t, err)
	assert.Same(t, mood, got)

	fresh := NewRegistry(cfg, s)
	loaded, err := fresh.Mood()
	require.NoError(t, err)
	assert.Equal(t, mood.RunID, loaded.RunID)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("mood")
	require.NoError(t, err)
	assert.Equal(t, KindMood, k)

	_, err = ParseKind("tempo")
	assert.Error(t, err)
}
