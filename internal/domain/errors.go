package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches any *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a duplicate active membership or an illegal state change.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument signals malformed input or a cross-aggregate mismatch.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnavailable signals that the identity service could not give a definitive answer.
	ErrUnavailable = errors.New("identity service unavailable")
)

// NotFoundError reports a referenced aggregate or user that does not exist.
type NotFoundError struct {
	Kind  string
	Key   string
	Value string
}

// NotFound builds a NotFoundError, e.g. NotFound("Team", "id", teamID).
func NotFound(kind, key, value string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key, Value: value}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with the given input data %s : '%s'", e.Kind, e.Key, e.Value)
}

// Is lets errors.Is(err, ErrNotFound) match regardless of kind.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFoundKind reports whether err is a NotFoundError for the given kind.
func IsNotFoundKind(err error, kind string) bool {
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return false
	}
	return nf.Kind == kind
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
