package training

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/model"
	"github.com/RyanBlaney/sonido-mood/schema"
)

// ForestParams maps the training configuration onto the forest.
func ForestParams(cfg config.TrainingConfig) model.ForestParams {
	return model.ForestParams{
		Trees:       cfg.Trees,
		MaxDepth:    cfg.MaxDepth,
		MinLeafSize: cfg.MinLeafSize,
		Seed:        cfg.Seed,
		Workers:     cfg.Workers,
	}
}

// MLPParams maps the training configuration onto the regressor.
func MLPParams(cfg config.TrainingConfig) model.MLPParams {
	p := model.DefaultMLPParams()
	p.Hidden = cfg.HiddenLayers
	p.Epochs = cfg.Epochs
	p.BatchSize = cfg.BatchSize
	p.LearningRate = cfg.LearningRate
	p.L2 = cfg.L2
	p.Seed = cfg.Seed
	return p
}

// Split shuffles n row indices with seed and holds out
// ceil(n*testFraction) of them for testing. At least one row always stays
// in the training set.
func Split(n int, testFraction float64, seed uint64) (train, test []int) {
	order := rand.New(rand.NewPCG(seed, 0)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFraction))
	nTest = max(0, min(nTest, n-1))
	return order[nTest:], order[:nTest]
}

func pick[T any](rows []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

// GenreReport summarises a genre training run.
type GenreReport struct {
	Classes       []string
	TrainSize     int
	TestSize      int
	TrainAccuracy float64
	TestAccuracy  float64 // NaN without a test split
}

// TrainGenre fits a scaler and forest on the training split of ds.
func TrainGenre(ctx context.Context, ds *Dataset, s *schema.Schema, cfg config.TrainingConfig) (*artifact.Pair, GenreReport, error) {
	if err := ds.Validate(s); err != nil {
		return nil, GenreReport{}, err
	}
	if ds.Kind != artifact.KindGenre {
		return nil, GenreReport{}, fmt.Errorf("cannot train a genre model from a %s dataset", ds.Kind)
	}

	trainIdx, testIdx := Split(ds.Len(), cfg.TestFraction, cfg.Seed)
	X := ds.Inputs(s)
	trainX, trainY := pick(X, trainIdx), pick(ds.Labels, trainIdx)
	testX, testY := pick(X, testIdx), pick(ds.Labels, testIdx)

	scaler, err := model.FitScaler(trainX)
	if err != nil {
		return nil, GenreReport{}, err
	}
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		return nil, GenreReport{}, err
	}
	forest, err := model.FitForest(ctx, scaledTrain, trainY, ForestParams(cfg))
	if err != nil {
		return nil, GenreReport{}, err
	}

	report := GenreReport{
		Classes:      forest.Classes(),
		TrainSize:    len(trainIdx),
		TestSize:     len(testIdx),
		TestAccuracy: math.NaN(),
	}
	if report.TrainAccuracy, err = accuracy(forest, scaledTrain, trainY); err != nil {
		return nil, GenreReport{}, err
	}
	if len(testIdx) > 0 {
		scaledTest, err := scaler.TransformAll(testX)
		if err != nil {
			return nil, GenreReport{}, err
		}
		if report.TestAccuracy, err = accuracy(forest, scaledTest, testY); err != nil {
			return nil, GenreReport{}, err
		}
	}
	return artifact.NewGenrePair(s, scaler, forest), report, nil
}

func accuracy(f *model.RandomForest, X [][]float64, y []string) (float64, error) {
	correct := 0
	for i, x := range X {
		got, err := f.Predict(x)
		if err != nil {
			return 0, err
		}
		if got == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X)), nil
}

// MoodReport summarises a mood training run.
type MoodReport struct {
	TrainSize  int
	TestSize   int
	Iterations int
	FinalLoss  float64
	TrainRMSE  float64
	TestRMSE   float64 // NaN without a test split
}

// TrainMood fits a scaler and regressor mapping the genre slice of each row
// onto its valence and arousal.
func TrainMood(ctx context.Context, ds *Dataset, s *schema.Schema, cfg config.TrainingConfig) (*artifact.Pair, MoodReport, error) {
	if err := ds.Validate(s); err != nil {
		return nil, MoodReport{}, err
	}
	if ds.Kind != artifact.KindMood {
		return nil, MoodReport{}, fmt.Errorf("cannot train a mood model from a %s dataset", ds.Kind)
	}

	trainIdx, testIdx := Split(ds.Len(), cfg.TestFraction, cfg.Seed)
	X, Y := ds.Inputs(s), ds.Targets(s)
	trainX, trainY := pick(X, trainIdx), pick(Y, trainIdx)

	scaler, err := model.FitScaler(trainX)
	if err != nil {
		return nil, MoodReport{}, err
	}
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		return nil, MoodReport{}, err
	}
	mlp, err := model.FitMLP(ctx, scaledTrain, trainY, MLPParams(cfg))
	if err != nil {
		return nil, MoodReport{}, err
	}

	report := MoodReport{
		TrainSize:  len(trainIdx),
		TestSize:   len(testIdx),
		Iterations: mlp.Iterations,
		FinalLoss:  mlp.LossCurve[len(mlp.LossCurve)-1],
		TestRMSE:   math.NaN(),
	}
	if report.TrainRMSE, err = rmse(mlp, scaledTrain, trainY); err != nil {
		return nil, MoodReport{}, err
	}
	if len(testIdx) > 0 {
		scaledTest, err := scaler.TransformAll(pick(X, testIdx))
		if err != nil {
			return nil, MoodReport{}, err
		}
		if report.TestRMSE, err = rmse(mlp, scaledTest, pick(Y, testIdx)); err != nil {
			return nil, MoodReport{}, err
		}
	}
	return artifact.NewMoodPair(s, scaler, mlp), report, nil
}

func rmse(m *model.MLP, X, Y [][]float64) (float64, error) {
	sum, n := 0.0, 0
	for i, x := range X {
		out, err := m.Predict(x)
		if err != nil {
			return 0, err
		}
		for j, v := range out {
			d := v - Y[i][j]
			sum += d * d
			n++
		}
	}
	return math.Sqrt(sum / float64(n)), nil
}
