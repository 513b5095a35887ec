package training

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/logging"
	"github.com/RyanBlaney/sonido-mood/schema"
)

func TestReadGenreManifest(t *testing.T) {
	in := "path,genre\n" +
		"a.mp3,Rock\n" +
		"# comment\n" +
		"/abs/b.wav, Jazz\n"
	entries, err := ReadGenreManifest(strings.NewReader(in), "/data")
	require.NoError(t, err)
	assert.Equal(t, []GenreEntry{
		{Path: filepath.Join("/data", "a.mp3"), Genre: "Rock"},
		{Path: "/abs/b.wav", Genre: "Jazz"},
	}, entries)

	_, err = ReadGenreManifest(strings.NewReader("a.mp3\n"), "")
	assert.Error(t, err)
	_, err = ReadGenreManifest(strings.NewReader("a.mp3,\n"), "")
	assert.Error(t, err)
}

func TestReadMoodManifest(t *testing.T) {
	in := "path,valence,arousal\nsong.mp3,0.6,0.25\n"
	entries, err := ReadMoodManifest(strings.NewReader(in), "")
	require.NoError(t, err)
	assert.Equal(t, []MoodEntry{{Path: "song.mp3", Valence: 0.6, Arousal: 0.25}}, entries)

	_, err = ReadMoodManifest(strings.NewReader("song.mp3,high,0.2\n"), "")
	assert.Error(t, err)
}

// touch creates empty files so preparation finds them.
func touch(t *testing.T, dir string, names ...string) []string {
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(paths[i], nil, 0644))
	}
	return paths
}

// fakeFeatures derives a deterministic vector from the file name length and
// fails for names containing "bad".
func fakeFeatures(s *schema.Schema) FeatureFunc {
	return func(_ context.Context, path string) (schema.Vector, error) {
		if strings.Contains(path, "bad") {
			return schema.Vector{}, errors.New("cannot decode")
		}
		values := make([]float64, s.GenreTotal())
		for i := range values {
			values[i] = float64(len(filepath.Base(path)) + i)
		}
		return schema.NewVector(values), nil
	}
}

func TestPrepareGenreSkipsFailures(t *testing.T) {
	s := schema.Default()
	dir := t.TempDir()
	paths := touch(t, dir, "one.wav", "bad.wav", "three33.wav")
	entries := []GenreEntry{
		{Path: paths[0], Genre: "rock"},
		{Path: paths[1], Genre: "jazz"},
		{Path: filepath.Join(dir, "missing.wav"), Genre: "pop"},
		{Path: paths[2], Genre: "folk"},
	}

	var mu sync.Mutex
	var calls []int
	ds, err := PrepareGenre(context.Background(), entries, fakeFeatures(s), PrepareOptions{
		Schema:  s,
		Workers: 3,
		Logger:  &logging.NoOpLogger{},
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 4, total)
			calls = append(calls, done)
		},
	})
	require.NoError(t, err)
	require.NoError(t, ds.Validate(s))

	assert.Equal(t, []string{"rock", "folk"}, ds.Labels)
	assert.Equal(t, []string{paths[0], paths[2]}, ds.Paths)
	assert.Equal(t, float64(len("one.wav")), ds.X[0][0])
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, calls)
}

func TestPrepareMoodAppendsTargets(t *testing.T) {
	s := schema.Default()
	paths := touch(t, t.TempDir(), "a.wav")
	ds, err := PrepareMood(context.Background(), []MoodEntry{{Path: paths[0], Valence: 0.7, Arousal: 0.1}},
		fakeFeatures(s), PrepareOptions{Schema: s, Logger: &logging.NoOpLogger{}})
	require.NoError(t, err)
	require.NoError(t, ds.Validate(s))

	assert.Equal(t, 30, ds.Width())
	assert.Equal(t, [][]float64{{0.7, 0.1}}, ds.Targets(s))
	assert.Len(t, ds.Inputs(s)[0], 28)
}

func TestPrepareEmpty(t *testing.T) {
	s := schema.Default()
	_, err := PrepareGenre(context.Background(), []GenreEntry{{Path: "/nowhere.wav", Genre: "x"}},
		fakeFeatures(s), PrepareOptions{Schema: s, Logger: &logging.NoOpLogger{}})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestPrepareCancelled(t *testing.T) {
	s := schema.Default()
	paths := touch(t, t.TempDir(), "a.wav", "b.wav")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PrepareGenre(ctx, []GenreEntry{{paths[0], "x"}, {paths[1], "y"}},
		fakeFeatures(s), PrepareOptions{Schema: s, Logger: &logging.NoOpLogger{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplit(t *testing.T) {
	train, test := Split(10, 0.2, 42)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, append(append([]int{}, train...), test...))

	again, _ := Split(10, 0.2, 42)
	assert.Equal(t, train, again)

	train, test = Split(1, 0.2, 42)
	assert.Len(t, train, 1)
	assert.Empty(t, test)
}

func genreDataset(s *schema.Schema, perClass int) *Dataset {
	rng := rand.New(rand.NewPCG(9, 9))
	ds := &Dataset{Kind: artifact.KindGenre, SchemaHash: s.Hash()}
	for c, label := range []string{"classical", "metal"} {
		for range perClass {
			row := make([]float64, s.GenreTotal())
			for j := range row {
				row[j] = rng.NormFloat64() + float64(c)*10
			}
			ds.X = append(ds.X, row)
			ds.Labels = append(ds.Labels, label)
		}
	}
	return ds
}

func smallTraining() config.TrainingConfig {
	cfg := config.Default().Training
	cfg.Trees = 10
	cfg.HiddenLayers = []int{8}
	cfg.Epochs = 20
	return cfg
}

func TestTrainGenre(t *testing.T) {
	s := schema.Default()
	pair, report, err := TrainGenre(context.Background(), genreDataset(s, 20), s, smallTraining())
	require.NoError(t, err)
	require.NoError(t, pair.Validate(s))

	assert.Equal(t, []string{"classical", "metal"}, report.Classes)
	assert.Equal(t, 32, report.TrainSize)
	assert.Equal(t, 8, report.TestSize)
	assert.Equal(t, 1.0, report.TrainAccuracy)
	assert.Equal(t, 1.0, report.TestAccuracy)

	_, _, err = TrainGenre(context.Background(), &Dataset{Kind: artifact.KindMood, SchemaHash: s.Hash()}, s, smallTraining())
	assert.Error(t, err)
}

func TestTrainMood(t *testing.T) {
	s := schema.Default()
	rng := rand.New(rand.NewPCG(3, 3))
	ds := &Dataset{Kind: artifact.KindMood, SchemaHash: s.Hash()}
	for range 30 {
		row := make([]float64, s.TotalLength())
		for j := range s.GenreTotal() {
			row[j] = rng.NormFloat64()
		}
		row[28], row[29] = 0.5, 0.4
		ds.X = append(ds.X, row)
	}

	pair, report, err := TrainMood(context.Background(), ds, s, smallTraining())
	require.NoError(t, err)
	require.NoError(t, pair.Validate(s))
	assert.Equal(t, 24, report.TrainSize)
	assert.Equal(t, 6, report.TestSize)
	assert.Positive(t, report.Iterations)
	assert.False(t, math.IsNaN(report.TestRMSE))
}

func TestDatasetSaveLoadAndInspect(t *testing.T) {
	s := schema.Default()
	ds := genreDataset(s, 3)
	path := filepath.Join(t.TempDir(), "sets", "genre.msgpack")
	require.NoError(t, ds.Save(path))

	loaded, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, ds, loaded)

	sum := Inspect(loaded, s)
	assert.Equal(t, 6, sum.Rows)
	assert.Equal(t, 28, sum.Width)
	assert.Len(t, sum.Preview, 5)
	assert.Equal(t, map[string]int{"classical": 3, "metal": 3}, sum.ClassCounts)
	assert.Contains(t, sum.Text(), "Shape of X: (6, 28)")
	assert.Contains(t, sum.Text(), "metal: 3")
}

func TestDatasetValidate(t *testing.T) {
	s := schema.Default()
	ds := genreDataset(s, 2)
	require.NoError(t, ds.Validate(s))

	ds.X[1] = ds.X[1][:10]
	assert.ErrorIs(t, ds.Validate(s), schema.ErrMismatch)

	ds = genreDataset(s, 2)
	ds.SchemaHash = "stale"
	assert.Error(t, ds.Validate(s))

	ds = genreDataset(s, 2)
	ds.Labels = ds.Labels[:1]
	assert.Error(t, ds.Validate(s))

	assert.ErrorIs(t, (&Dataset{Kind: artifact.KindGenre, SchemaHash: s.Hash()}).Validate(s), ErrEmptyDataset)
}
