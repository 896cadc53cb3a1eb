package scene

import "fmt"

// ValidationError reports malformed or out-of-range caller input. The
// operation that returned it had no effect on the document.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotFoundError reports a reference to a canvas, element, or animation
// that does not exist or was already removed.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}
