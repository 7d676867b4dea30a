package model

import (
	"errors"
	"fmt"
)

// ConfigError represents malformed or inconsistent pipeline configuration.
// It is fatal at load time and aborts before any stage runs.
//
// Causes include:
//   - Unknown dataset name
//   - Unrecognized country in any skip list or override key
//   - Malformed override date
//   - Empty override metric list
type ConfigError struct {
	Dataset string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Dataset != "" && e.Field != "" {
		return fmt.Sprintf("config: %s (dataset=%s, field=%s)", e.Message, e.Dataset, e.Field)
	}
	if e.Dataset != "" {
		return fmt.Sprintf("config: %s (dataset=%s)", e.Message, e.Dataset)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

// IsConfigError returns true if the error is a ConfigError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// FetchError represents one country's source being unreachable or
// returning unparsable data. It is recorded per country in the run
// report and never aborts the dataset run.
type FetchError struct {
	Country string
	Source  string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("fetch %s from %s: %v", e.Country, e.Source, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Country, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError returns true if the error is a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ExportError represents the external sink rejecting the final table.
// It is fatal for the dataset's run and propagated to the caller.
type ExportError struct {
	Dataset string
	Path    string
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Dataset, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// IsExportError returns true if the error is an ExportError.
func IsExportError(err error) bool {
	var ee *ExportError
	return errors.As(err, &ee)
}
