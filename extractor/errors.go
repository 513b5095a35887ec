package extractor

import (
	"errors"
	"fmt"
)

// ErrExtraction is matched by every ExtractionError.
var ErrExtraction = errors.New("feature extraction failed")

// ExtractionError reports a signal that could not be turned into a feature
// vector. Stage names the step that failed: decode, input, analysis or
// assemble.
type ExtractionError struct {
	Path  string
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("extract features from %s: %s: %v", e.Path, e.Stage, e.Err)
	}
	return fmt.Sprintf("extract features: %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}
