package artifact

import (
	"fmt"
	"sync"

	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/logging"
	"github.com/RyanBlaney/sonido-mood/schema"
)

// Registry loads pairs on first use and keeps them for the life of the
// process. Failed loads are not cached.
type Registry struct {
	cfg    config.ArtifactsConfig
	schema *schema.Schema
	logger logging.Logger

	mu    sync.Mutex
	pairs map[Kind]*Pair
}

func NewRegistry(cfg config.ArtifactsConfig, s *schema.Schema) *Registry {
	return &Registry{
		cfg:    cfg,
		schema: s,
		logger: logging.WithFields(logging.Fields{"component": "artifact_registry"}),
		pairs:  make(map[Kind]*Pair),
	}
}

// Schema returns the layout the registry validates pairs against.
func (r *Registry) Schema() *schema.Schema { return r.schema }

// Paths returns where the registry looks for kind.
func (r *Registry) Paths(kind Kind) Paths { return PathsFor(r.cfg, kind) }

func (r *Registry) Genre() (*Pair, error) { return r.Get(KindGenre) }

func (r *Registry) Mood() (*Pair, error) { return r.Get(KindMood) }

// Get returns the cached pair of kind, loading it if needed.
func (r *Registry) Get(kind Kind) (*Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pairs[kind]; ok {
		return p, nil
	}
	return r.load(kind)
}

// Reload drops any cached pair of kind and loads it again.
func (r *Registry) Reload(kind Kind) (*Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pairs, kind)
	return r.load(kind)
}

// Put saves pair to the configured paths and caches it.
func (r *Registry) Put(pair *Pair) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := Save(pair, r.Paths(pair.Kind), r.schema); err != nil {
		return err
	}
	r.pairs[pair.Kind] = pair
	r.logger.Info("Saved artifact pair", logging.Fields{
		"kind":   pair.Kind,
		"run_id": pair.RunID,
	})
	return nil
}

func (r *Registry) load(kind Kind) (*Pair, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid artifact kind %q", kind)
	}
	paths := r.Paths(kind)
	p, err := Load(kind, paths, r.schema)
	if err != nil {
		return nil, err
	}
	r.pairs[kind] = p
	r.logger.Debug("Loaded artifact pair", logging.Fields{
		"kind":   kind,
		"run_id": p.RunID,
		"scaler": paths.Scaler,
		"model":  paths.Model,
	})
	return p, nil
}
