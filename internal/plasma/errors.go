package plasma

import (
	"errors"
	"fmt"
)

// Domain errors for sampling runs.
var (
	// ErrConfiguration is the parent of every fatal parameter or state mismatch.
	ErrConfiguration = errors.New("plasma: invalid run configuration")

	// ErrNoPriorRun indicates a resume was requested but nothing is persisted under the run id.
	ErrNoPriorRun = fmt.Errorf("%w: no prior run to resume", ErrConfiguration)

	// ErrHistogramMismatch indicates histogram geometry differs from the one fixed at creation.
	ErrHistogramMismatch = fmt.Errorf("%w: histogram parameters differ from persisted ones", ErrConfiguration)

	// ErrNumericDegeneracy indicates a non-finite energy difference, caused by coincident points.
	ErrNumericDegeneracy = errors.New("plasma: non-finite energy difference (coincident points)")
)

// ConfigError reports which parameter made a run unusable.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("plasma: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
