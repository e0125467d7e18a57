// Package apperr is the error taxonomy shared by the managers and the HTTP
// layer. Managers return *Error values; handlers turn them into status codes
// and user-facing messages with Status and Public.
package apperr

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindBlocked
	KindNotFound
	KindConflict
	KindRateLimited
	KindUnauthorized
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBlocked:
		return "moderation_blocked"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

const genericMessage = "Unexpected error, please try again."

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Blocked(msg string) error {
	return &Error{Kind: KindBlocked, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func RateLimited(msg string) error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Dependency wraps a store or classifier failure. The cause keeps its stack
// for the operator log; callers only ever see the generic message.
func Dependency(err error, op string) error {
	return &Error{Kind: KindDependency, Message: op, Err: errors.WithStack(err)}
}

// KindOf returns the kind of the first *Error in the chain, or
// KindDependency for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindBlocked:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Public is the message safe to show to an anonymous visitor.
func Public(err error) string {
	var e *Error
	if !stderrors.As(err, &e) || e.Kind == KindDependency {
		return genericMessage
	}
	return e.Message
}
