package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity, action or resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates a uniqueness invariant would be violated.
	ErrDuplicate = errors.New("resource already exists")
	// ErrRelationConflict indicates a deletion blocked by an existing relation.
	ErrRelationConflict = errors.New("resource is still related to other resources")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the caller may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInternal indicates an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// Error is a domain error of a given kind with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

// Unwrap exposes the kind so errors.Is works against the sentinels above.
func (e *Error) Unwrap() error { return e.Kind }

// NotFound builds an ErrNotFound with message.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Duplicate builds an ErrDuplicate with message.
func Duplicate(format string, args ...any) error {
	return &Error{Kind: ErrDuplicate, Message: fmt.Sprintf(format, args...)}
}

// RelationConflict builds an ErrRelationConflict with message.
func RelationConflict(format string, args ...any) error {
	return &Error{Kind: ErrRelationConflict, Message: fmt.Sprintf(format, args...)}
}

// UserSafeMessage returns a message that can be shown to API clients.
// Errors that are not domain errors collapse to a generic text.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Error()
	}
	for _, kind := range []error{ErrNotFound, ErrDuplicate, ErrRelationConflict, ErrInvalidCredentials, ErrForbidden} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "An internal server error occurred"
}
