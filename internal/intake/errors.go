package intake

import "fmt"

// ValidationError reports a malformed submission. Nothing external has been
// touched when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Kind classifies the error for the transport layer.
func (e *ValidationError) Kind() string { return "validation" }

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
