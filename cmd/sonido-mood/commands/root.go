// Package commands implements the sonido-mood command line.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-mood/artifact"
	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/logging"
	"github.com/RyanBlaney/sonido-mood/schema"
	"github.com/RyanBlaney/sonido-mood/store"
)

const defaultConfigPath = "sonido-mood.yaml"

// app is the state shared by all commands of one invocation.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

func (a *app) registry() *artifact.Registry {
	return artifact.NewRegistry(a.cfg.Artifacts, schema.Default())
}

func (a *app) openStore() (*store.Badger, error) {
	return store.Open(a.cfg.Store)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sonido-mood",
		Short: "Genre and mood analysis for audio files",
		Long: `sonido-mood extracts audio features, classifies the genre and estimates
the valence/arousal mood of music files.

Commands:
  analyze   Analyse audio files with the trained models
  dataset   Build and inspect training datasets from labelled audio
  train     Fit the genre or mood models from a dataset
  history   Show stored analysis reports
  schema    Print the feature vector layout

Examples:
  sonido-mood dataset prepare genre --manifest fma.csv --out genre.msgpack
  sonido-mood train genre --data genre.msgpack
  sonido-mood analyze --save song.mp3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath, "configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newAnalyzeCommand(a),
		newDatasetCommand(a),
		newTrainCommand(a),
		newHistoryCommand(a),
		newSchemaCommand(a),
	)
	return root
}

// setup loads the configuration and installs the global logger.
func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	name := cfg.Log.Level
	if a.logLevel != "" {
		name = a.logLevel
	}
	level, err := logging.ParseLevel(name)
	if err != nil {
		return err
	}

	logger := logging.NewDefaultLoggerWithWriters(stderr, stderr)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	color := false
	if f, ok := stderr.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}
	if cfg.Log.Color != nil {
		color = *cfg.Log.Color
	}
	if color {
		logging.EnableColors()
	} else {
		logging.DisableColors()
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
