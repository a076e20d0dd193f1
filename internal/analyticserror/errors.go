// Package analyticserror defines the error kinds returned by the analytics engine.
package analyticserror

import (
	"errors"
	"fmt"
)

// DataError represents a malformed transaction record rejected at the boundary.
type DataError struct {
	Record int // zero-based position in the input, -1 when unknown
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	msg := fmt.Sprintf("invalid record %d: %s='%s': %s", e.Record, e.Field, e.Value, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// TrainingError is returned when a model cannot be built from the examples.
type TrainingError struct {
	Examples int
	Labels   int
	Reason   string
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training failed with %d examples over %d labels: %s",
		e.Examples, e.Labels, e.Reason)
}

// ModelError marks TrainingError and ModelLoadError.
func (e *TrainingError) ModelError() {}

// ModelLoadError is returned when a persisted model cannot be used.
type ModelLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ModelLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot load model '%s': %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot load model '%s': %s", e.Path, e.Reason)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// ModelError marks TrainingError and ModelLoadError.
func (e *ModelLoadError) ModelError() {}

// IsModelError reports whether err wraps a TrainingError or a ModelLoadError.
func IsModelError(err error) bool {
	var marker interface{ ModelError() }
	return errors.As(err, &marker)
}

// InsufficientHistoryError signals that a module needs more history than is
// available. Most modules return a degraded result instead.
type InsufficientHistoryError struct {
	Module string
	Have   int
	Need   int
	Unit   string
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: insufficient history: have %d %s, need %d",
		e.Module, e.Have, e.Unit, e.Need)
}

// ConfigError represents an invalid threshold, window or option.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s='%s': %s", e.Field, e.Value, e.Reason)
}
