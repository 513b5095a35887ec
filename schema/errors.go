package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrMismatch is matched by every MismatchError.
	ErrMismatch = errors.New("schema mismatch")

	// ErrConfig is matched by every ConfigError.
	ErrConfig = errors.New("invalid schema configuration")
)

// MismatchError reports a feature vector whose length disagrees with what a
// component was built for.
type MismatchError struct {
	Component string
	Expected  int
	Actual    int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: feature vector length mismatch: expected %d, got %d",
		e.Component, e.Expected, e.Actual)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// ConfigError reports a layout that cannot be turned into a schema.
type ConfigError struct {
	Layout string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("schema layout %q: %s", e.Layout, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }
