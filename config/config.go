// Package config holds the YAML configuration shared by every component.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/RyanBlaney/sonido-mood/schema"
)

// Config is the root configuration. It is loaded once and treated as
// read-only afterwards.
type Config struct {
	Audio     AudioConfig     `yaml:"audio" json:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis" json:"analysis"`
	Artifacts ArtifactsConfig `yaml:"artifacts" json:"artifacts"`
	Training  TrainingConfig  `yaml:"training" json:"training"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// AudioConfig controls decoding.
type AudioConfig struct {
	SampleRate         int     `yaml:"sample_rate" json:"sample_rate"`
	MaxDurationSeconds float64 `yaml:"max_duration_seconds" json:"max_duration_seconds"` // 0 = whole file
	ResampleQuality    string  `yaml:"resample_quality" json:"resample_quality"`         // low, medium, high
	FFmpegPath         string  `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath        string  `yaml:"ffprobe_path" json:"ffprobe_path"`
	TimeoutSeconds     float64 `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// MaxDuration returns MaxDurationSeconds as a duration.
func (a AudioConfig) MaxDuration() time.Duration {
	return time.Duration(a.MaxDurationSeconds * float64(time.Second))
}

// Timeout returns TimeoutSeconds as a duration.
func (a AudioConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds * float64(time.Second))
}

// AnalysisConfig controls the feature extractor.
type AnalysisConfig struct {
	WindowSize       int     `yaml:"window_size" json:"window_size"`
	HopSize          int     `yaml:"hop_size" json:"hop_size"`
	RolloffPercent   float64 `yaml:"rolloff_percent" json:"rolloff_percent"`
	ContrastBands    int     `yaml:"contrast_bands" json:"contrast_bands"`
	ChromaBins       int     `yaml:"chroma_bins" json:"chroma_bins"`
	MFCCCoefficients int     `yaml:"mfcc_coefficients" json:"mfcc_coefficients"`
	MelBands         int     `yaml:"mel_bands" json:"mel_bands"`
	StartBPM         float64 `yaml:"start_bpm" json:"start_bpm"`
}

// ArtifactsConfig names the directory and files of the trained pairs.
type ArtifactsConfig struct {
	Dir         string `yaml:"dir" json:"dir"`
	GenreScaler string `yaml:"genre_scaler" json:"genre_scaler"`
	GenreModel  string `yaml:"genre_model" json:"genre_model"`
	MoodScaler  string `yaml:"mood_scaler" json:"mood_scaler"`
	MoodModel   string `yaml:"mood_model" json:"mood_model"`
}

// TrainingConfig holds the fitting parameters of both models.
type TrainingConfig struct {
	Seed         uint64  `yaml:"seed" json:"seed"`
	TestFraction float64 `yaml:"test_fraction" json:"test_fraction"`
	Workers      int     `yaml:"workers" json:"workers"`

	Trees       int `yaml:"trees" json:"trees"`
	MaxDepth    int `yaml:"max_depth" json:"max_depth"` // 0 = unlimited
	MinLeafSize int `yaml:"min_leaf_size" json:"min_leaf_size"`

	HiddenLayers []int   `yaml:"hidden_layers" json:"hidden_layers"`
	Epochs       int     `yaml:"epochs" json:"epochs"`
	BatchSize    int     `yaml:"batch_size" json:"batch_size"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	L2           float64 `yaml:"l2" json:"l2"`
}

// StoreConfig locates the analysis history database. An empty Dir keeps the
// history in memory only.
type StoreConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// LogConfig controls the default logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	Color *bool  `yaml:"color,omitempty" json:"color,omitempty"` // nil = detect terminal
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      22050,
			ResampleQuality: "high",
			FFmpegPath:      "ffmpeg",
			FFprobePath:     "ffprobe",
			TimeoutSeconds:  60,
		},
		Analysis: AnalysisConfig{
			WindowSize:       2048,
			HopSize:          512,
			RolloffPercent:   0.85,
			ContrastBands:    6,
			ChromaBins:       12,
			MFCCCoefficients: 12,
			MelBands:         128,
			StartBPM:         120,
		},
		Artifacts: ArtifactsConfig{
			Dir:         "artifacts",
			GenreScaler: "genre_scaler.msgpack",
			GenreModel:  "genre_model.msgpack",
			MoodScaler:  "mood_scaler.msgpack",
			MoodModel:   "mood_model.msgpack",
		},
		Training: TrainingConfig{
			Seed:         42,
			TestFraction: 0.2,
			Workers:      4,
			Trees:        100,
			MinLeafSize:  1,
			HiddenLayers: []int{100, 50},
			Epochs:       200,
			BatchSize:    200,
			LearningRate: 0.001,
			L2:           0.0001,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults; any other read or parse failure is returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// checkSlots rejects analysis settings that yield fewer values than the
// feature layout reserves for them. Contrast yields bands+1 values.
func checkSlots(an AnalysisConfig) error {
	s := schema.Default()
	for _, slot := range []struct {
		setting string
		segment string
		values  int
	}{
		{"analysis.contrast_bands", schema.SpectralContrast, an.ContrastBands + 1},
		{"analysis.chroma_bins", schema.Chroma, an.ChromaBins},
		{"analysis.mfcc_coefficients", schema.MFCC, an.MFCCCoefficients},
	} {
		r, err := s.Slice(slot.segment)
		if err != nil {
			return err
		}
		if slot.values < r.Width() {
			return fmt.Errorf("%s yields %d %s values, the feature layout needs %d", slot.setting, slot.values, slot.segment, r.Width())
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	a := c.Audio
	switch {
	case a.SampleRate <= 0:
		return fmt.Errorf("audio.sample_rate must be positive, got %d", a.SampleRate)
	case a.MaxDurationSeconds < 0:
		return fmt.Errorf("audio.max_duration_seconds must not be negative")
	case a.ResampleQuality != "low" && a.ResampleQuality != "medium" && a.ResampleQuality != "high":
		return fmt.Errorf("audio.resample_quality must be low, medium or high, got %q", a.ResampleQuality)
	}

	an := c.Analysis
	switch {
	case an.WindowSize <= 0 || an.HopSize <= 0:
		return fmt.Errorf("analysis.window_size and analysis.hop_size must be positive")
	case an.HopSize > an.WindowSize:
		return fmt.Errorf("analysis.hop_size (%d) exceeds window_size (%d)", an.HopSize, an.WindowSize)
	case an.RolloffPercent <= 0 || an.RolloffPercent >= 1:
		return fmt.Errorf("analysis.rolloff_percent must be in (0, 1), got %g", an.RolloffPercent)
	case an.ContrastBands < 1:
		return fmt.Errorf("analysis.contrast_bands must be at least 1")
	case an.ChromaBins < 12 || an.ChromaBins%12 != 0:
		return fmt.Errorf("analysis.chroma_bins must be a multiple of 12, got %d", an.ChromaBins)
	case an.MFCCCoefficients < 1 || an.MelBands < an.MFCCCoefficients:
		return fmt.Errorf("analysis.mel_bands (%d) must be at least mfcc_coefficients (%d)", an.MelBands, an.MFCCCoefficients)
	case an.StartBPM <= 0:
		return fmt.Errorf("analysis.start_bpm must be positive")
	}
	if err := checkSlots(an); err != nil {
		return err
	}

	ar := c.Artifacts
	if ar.GenreScaler == "" || ar.GenreModel == "" || ar.MoodScaler == "" || ar.MoodModel == "" {
		return fmt.Errorf("artifacts: all four file names are required")
	}

	t := c.Training
	switch {
	case t.TestFraction < 0 || t.TestFraction >= 1:
		return fmt.Errorf("training.test_fraction must be in [0, 1), got %g", t.TestFraction)
	case t.Workers < 1:
		return fmt.Errorf("training.workers must be at least 1")
	case t.Trees < 1:
		return fmt.Errorf("training.trees must be at least 1")
	case t.MaxDepth < 0 || t.MinLeafSize < 1:
		return fmt.Errorf("training.max_depth must be >= 0 and min_leaf_size >= 1")
	case len(t.HiddenLayers) == 0:
		return fmt.Errorf("training.hidden_layers must not be empty")
	case t.Epochs < 1 || t.BatchSize < 1 || t.LearningRate <= 0 || t.L2 < 0:
		return fmt.Errorf("training: epochs, batch_size and learning_rate must be positive")
	}
	for _, h := range t.HiddenLayers {
		if h < 1 {
			return fmt.Errorf("training.hidden_layers entries must be positive, got %d", h)
		}
	}

	return nil
}

// ArtifactPath joins the artifact directory and a file name.
func (a ArtifactsConfig) ArtifactPath(name string) string {
	return filepath.Join(a.Dir, name)
}
