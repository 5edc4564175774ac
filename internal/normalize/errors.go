package normalize

import (
	"fmt"
)

// ShapeError is returned when a payload matches none of the supported shapes.
// Keys lists the payload's top-level keys to help diagnose what the server sent.
type ShapeError struct {
	Resource string
	Keys     []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid payload (/%s): could not locate list; top-level keys: %q", e.Resource, e.Keys)
}

// ValidationError is returned when a record that passed screening still fails
// strict validation. Screening is meant to make this unreachable.
type ValidationError struct {
	Resource string
	ID       string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record %q: %v", e.Resource, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
