package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing is matched by every MissingError.
	ErrMissing = errors.New("artifact missing")
	// ErrCorrupt is matched by every CorruptError.
	ErrCorrupt = errors.New("artifact corrupt")
	// ErrPairMismatch means the scaler and model files were not produced by
	// the same training run, or not for the running feature schema.
	ErrPairMismatch = errors.New("artifact pair mismatch")
)

// MissingError reports an artifact file that does not exist.
type MissingError struct {
	Kind Kind
	Path string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s artifact not found at %s", e.Kind, e.Path)
}

func (e *MissingError) Unwrap() error { return ErrMissing }

// CorruptError reports an artifact file that exists but cannot be used.
type CorruptError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s artifact %s is unusable: %v", e.Kind, e.Path, e.Err)
}

func (e *CorruptError) Unwrap() []error { return []error{ErrCorrupt, e.Err} }
