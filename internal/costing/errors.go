package costing

import (
	"fmt"
	"strings"
)

// FieldError represents a single validation failure on one input field
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// ValidationError is returned when a SimulationInput is malformed. It is a
// caller error and is never retried.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid simulation input"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid simulation input: " + strings.Join(parts, "; ")
}

// FieldNames returns the json names of the offending fields
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

// Retryable reports false
func (e *ValidationError) Retryable() bool {
	return false
}

// PTMismatchError signals that project_total is not the sum of its cost
// components. It is critical and never corrected silently.
type PTMismatchError struct {
	ProjectTotal float64
	ComponentSum float64
	Difference   float64
}

func (e *PTMismatchError) Error() string {
	return fmt.Sprintf("project total mismatch: project_total=%.2f components=%.2f difference=%.2f",
		e.ProjectTotal, e.ComponentSum, e.Difference)
}

// Retryable reports false
func (e *PTMismatchError) Retryable() bool {
	return false
}

// Critical reports true; mismatches are logged at the highest severity
func (e *PTMismatchError) Critical() bool {
	return true
}
