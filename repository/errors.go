package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a run, item or script does not exist.
var ErrNotFound = errors.New("not found")

// IntegrityError is a repository constraint violation, most commonly a
// duplicate (run_item, metric_name) pair. These indicate a programming
// error in the caller rather than bad user input.
type IntegrityError struct {
	Constraint string
	Cause      error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation (%s): %v", e.Constraint, e.Cause)
}

func (e *IntegrityError) Unwrap() error {
	return e.Cause
}

// wrapWriteError classifies driver errors: constraint violations become
// IntegrityErrors, everything else passes through.
func wrapWriteError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &IntegrityError{Constraint: "unique", Cause: err}
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &IntegrityError{Constraint: "foreign key", Cause: err}
	case strings.Contains(msg, "CHECK constraint failed"):
		return &IntegrityError{Constraint: "check", Cause: err}
	default:
		return err
	}
}
