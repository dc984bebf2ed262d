package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for boundary handling.
type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindForbidden
	KindNotFound
	KindCardBlocked
	KindConflict
	KindValidation
	KindInternal
)

// AppError is the error type surfaced at request boundaries. Handlers map it
// to an HTTP status via StatusCode and render Message to the client; the
// wrapped Err stays in the logs only.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to its HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindCardBlocked, KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Is lets errors.Is match two AppErrors by kind so services can compare
// against the exported sentinels below without caring about messages.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthenticated = &AppError{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrForbidden       = &AppError{Kind: KindForbidden, Message: "insufficient privileges"}
	ErrCardBlocked     = &AppError{Kind: KindCardBlocked, Message: "card is blocked, verification required"}
)

func Unauthenticated(message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NotFound(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// CardBlocked is returned when a visit is attempted against a blocked card.
// The message is deliberately specific so front-line staff see the
// remediation path (reverify) instead of a generic failure.
func CardBlocked() *AppError {
	return &AppError{Kind: KindCardBlocked, Message: "card is blocked, verification required"}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Kind: KindConflict, Message: message, Err: err}
}

func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: err}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *AppError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}
