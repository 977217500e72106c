package schema

import (
	"fmt"
	"strings"
)

// FieldError is a single validation failure at one field path.
type FieldError struct {
	// Path locates the offending field, e.g. "payload.locator" or
	// "actor.module".
	Path string
	// Message describes the failure.
	Message string
	// Value is the offending value, nil when the field was absent.
	Value any
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Result carries the outcome of validating one event. Errors preserves the
// order in which problems were found: envelope fields first, then actor,
// then payload fields in schema order.
type Result struct {
	Valid  bool
	Errors []FieldError
}

// OK returns a passing result.
func OK() Result {
	return Result{Valid: true}
}

// Fail returns a single-error result.
func Fail(path, message string, value any) Result {
	return Result{
		Valid:  false,
		Errors: []FieldError{{Path: path, Message: message, Value: value}},
	}
}

// Merge combines another result into this one, concatenating errors.
func (r Result) Merge(other Result) Result {
	if other.Valid {
		return r
	}
	return Result{
		Valid:  false,
		Errors: append(r.Errors, other.Errors...),
	}
}

// Summary joins all errors into one line, for error messages and logs.
func (r Result) Summary() string {
	if r.Valid {
		return "valid"
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}
