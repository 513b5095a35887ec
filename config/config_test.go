package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 22050, cfg.Audio.SampleRate)
	assert.Equal(t, 2048, cfg.Analysis.WindowSize)
	assert.Equal(t, 512, cfg.Analysis.HopSize)
	assert.Equal(t, []int{100, 50}, cfg.Training.HiddenLayers)
	assert.Equal(t, uint64(42), cfg.Training.Seed)
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonido.yaml")
	doc := `
audio:
  max_duration_seconds: 120
analysis:
  hop_size: 256
artifacts:
  dir: /var/lib/sonido
training:
  trees: 10
  hidden_layers: [32]
log:
  level: debug
  color: false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Analysis.HopSize)
	assert.Equal(t, 2048, cfg.Analysis.WindowSize, "unset keys keep defaults")
	assert.Equal(t, "/var/lib/sonido", cfg.Artifacts.Dir)
	assert.Equal(t, "genre_model.msgpack", cfg.Artifacts.GenreModel)
	assert.Equal(t, 10, cfg.Training.Trees)
	assert.Equal(t, []int{32}, cfg.Training.HiddenLayers)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NotNil(t, cfg.Log.Color)
	assert.False(t, *cfg.Log.Color)
	assert.Equal(t, "2m0s", cfg.Audio.MaxDuration().String())
	assert.Equal(t, "/var/lib/sonido/mood_model.msgpack", cfg.Artifacts.ArtifactPath(cfg.Artifacts.MoodModel))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"negative rate", "audio:\n  sample_rate: -1\n"},
		{"hop above window", "analysis:\n  hop_size: 4096\n"},
		{"rolloff out of range", "analysis:\n  rolloff_percent: 1.5\n"},
		{"chroma not multiple of 12", "analysis:\n  chroma_bins: 10\n"},
		{"too few mel bands", "analysis:\n  mel_bands: 4\n"},
		{"contrast narrower than layout", "analysis:\n  contrast_bands: 4\n"},
		{"mfcc narrower than layout", "analysis:\n  mfcc_coefficients: 11\n"},
		{"bad quality", "audio:\n  resample_quality: ultra\n"},
		{"test fraction", "training:\n  test_fraction: 1\n"},
		{"zero hidden", "training:\n  hidden_layers: [0]\n"},
		{"malformed", "audio: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidateAcceptsLayoutMinimum(t *testing.T) {
	cfg := Default()
	cfg.Analysis.ContrastBands = 5
	cfg.Analysis.MFCCCoefficients = 12
	assert.NoError(t, cfg.Validate())

	cfg.Analysis.MFCCCoefficients = 11
	assert.ErrorContains(t, cfg.Validate(), "analysis.mfcc_coefficients")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "c.yaml")
	cfg := Default()
	cfg.Store.Dir = "history"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "history", loaded.Store.Dir)
	assert.Equal(t, cfg.Analysis, loaded.Analysis)
}
