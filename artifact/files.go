package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/model"
	"github.com/RyanBlaney/sonido-mood/schema"
)

// Paths locates the two files of a pair.
type Paths struct {
	Scaler string
	Model  string
}

// PathsFor returns the configured file locations for kind.
func PathsFor(cfg config.ArtifactsConfig, kind Kind) Paths {
	if kind == KindMood {
		return Paths{Scaler: cfg.ArtifactPath(cfg.MoodScaler), Model: cfg.ArtifactPath(cfg.MoodModel)}
	}
	return Paths{Scaler: cfg.ArtifactPath(cfg.GenreScaler), Model: cfg.ArtifactPath(cfg.GenreModel)}
}

type scalerFile struct {
	Descriptor Descriptor    `msgpack:"descriptor"`
	Scaler     *model.Scaler `msgpack:"scaler"`
}

type modelFile struct {
	Descriptor Descriptor          `msgpack:"descriptor"`
	Forest     *model.RandomForest `msgpack:"forest,omitempty"`
	MLP        *model.MLP          `msgpack:"mlp,omitempty"`
}

// Save validates pair against s and writes both files. Each file is written
// to a temporary sibling and renamed into place.
func Save(pair *Pair, paths Paths, s *schema.Schema) error {
	if err := pair.Validate(s); err != nil {
		return fmt.Errorf("save %s pair: %w", pair.Kind, err)
	}
	if pair.SchemaHash != s.Hash() {
		return fmt.Errorf("save %s pair: %w: trained for schema %s, running %s",
			pair.Kind, ErrPairMismatch, pair.SchemaHash, s.Hash())
	}

	base := Descriptor{
		Kind:       pair.Kind,
		RunID:      pair.RunID,
		SchemaHash: pair.SchemaHash,
		Features:   pair.Scaler.Features(),
		CreatedAt:  pair.CreatedAt,
	}

	sd := base
	sd.Role = RoleScaler
	sd.ModelType = ModelStandardScaler
	if err := writeFile(paths.Scaler, scalerFile{Descriptor: sd, Scaler: pair.Scaler}); err != nil {
		return err
	}

	md := base
	md.Role = RoleModel
	md.ModelType = pair.modelType()
	return writeFile(paths.Model, modelFile{Descriptor: md, Forest: pair.Forest, MLP: pair.MLP})
}

func writeFile(path string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads and cross-checks the pair of kind at paths. Absent files give
// a MissingError; undecodable or inconsistent files a CorruptError, which
// also matches ErrPairMismatch when the two halves do not belong together.
func Load(kind Kind, paths Paths, s *schema.Schema) (*Pair, error) {
	var sf scalerFile
	if err := readFile(kind, paths.Scaler, &sf); err != nil {
		return nil, err
	}
	var mf modelFile
	if err := readFile(kind, paths.Model, &mf); err != nil {
		return nil, err
	}

	mismatch := func(path, format string, args ...any) error {
		return &CorruptError{Kind: kind, Path: path, Err: fmt.Errorf("%w: "+format, append([]any{ErrPairMismatch}, args...)...)}
	}

	sd, md := sf.Descriptor, mf.Descriptor
	switch {
	case sd.Role != RoleScaler:
		return nil, mismatch(paths.Scaler, "expected a scaler, found a %s", sd.Role)
	case md.Role != RoleModel:
		return nil, mismatch(paths.Model, "expected a model, found a %s", md.Role)
	case sd.Kind != kind:
		return nil, mismatch(paths.Scaler, "scaler was trained for %s", sd.Kind)
	case md.Kind != kind:
		return nil, mismatch(paths.Model, "model was trained for %s", md.Kind)
	case sd.RunID != md.RunID:
		return nil, mismatch(paths.Model, "scaler run %s, model run %s", sd.RunID, md.RunID)
	case md.SchemaHash != s.Hash():
		return nil, mismatch(paths.Model, "trained for schema %s, running %s", md.SchemaHash, s.Hash())
	}

	pair := &Pair{
		Kind:       kind,
		RunID:      md.RunID,
		SchemaHash: md.SchemaHash,
		CreatedAt:  md.CreatedAt,
		Scaler:     sf.Scaler,
		Forest:     mf.Forest,
		MLP:        mf.MLP,
	}
	if err := pair.Validate(s); err != nil {
		return nil, &CorruptError{Kind: kind, Path: paths.Model, Err: err}
	}
	return pair, nil
}

func readFile(kind Kind, path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &MissingError{Kind: kind, Path: path}
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return &CorruptError{Kind: kind, Path: path, Err: err}
	}
	return nil
}

// Inspect reads the descriptor of a single artifact file.
func Inspect(path string) (Descriptor, error) {
	var head struct {
		Descriptor Descriptor `msgpack:"descriptor"`
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	if err := msgpack.Unmarshal(data, &head); err != nil {
		return Descriptor{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return head.Descriptor, nil
}
