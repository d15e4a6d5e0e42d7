package registration

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mbolis/event-registration/database"
)

// ValidationError is missing or malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError names an unknown id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// StoreError wraps a persistence failure. Op is the dotted code logged at the boundary.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// translate maps database errors into the service taxonomy.
func translate(err error, op, kind, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return &StoreError{Op: op, Err: err}
}
