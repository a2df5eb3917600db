// SPDX-License-Identifier: GPL-3.0-or-later

package measurement

import "fmt"

// LoadError indicates that we could not load an artifact.
type LoadError struct {
	// Path is the artifact path.
	Path string

	// Message describes the problem.
	Message string

	// Cause is the optional underlying error.
	Cause error
}

// Error implements error.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("measurement: %s: %s: %s", e.Path, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("measurement: %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates that an artifact does not
// conform to the schema we depend on.
type ValidationError struct {
	// Path is the offending field path.
	Path string

	// Message describes the expectation.
	Message string

	// Actual is the raw JSON we found or "<missing>".
	Actual string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("measurement: %s: %s, got %s", e.Path, e.Message, e.Actual)
}
