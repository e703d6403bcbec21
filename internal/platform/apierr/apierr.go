package apierr

import (
	"fmt"
	"net/http"

	"github.com/yungbote/northwind-slim-backend/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromAggregate converts an aggregate failure into an API error, choosing
// the HTTP status from its code. Errors without a code become 500s.
func FromAggregate(err error) *Error {
	if err == nil {
		return nil
	}
	code := aggregates.CodeOf(err)
	switch code {
	case aggregates.CodeValidation:
		return New(http.StatusBadRequest, string(code), err)
	case aggregates.CodeNotFound:
		return New(http.StatusNotFound, string(code), err)
	case aggregates.CodeConflict:
		return New(http.StatusConflict, string(code), err)
	case aggregates.CodePreconditionFailed:
		return New(http.StatusPreconditionFailed, string(code), err)
	case aggregates.CodeInvariantViolation:
		return New(http.StatusUnprocessableEntity, string(code), err)
	case aggregates.CodeRetryable:
		return New(http.StatusServiceUnavailable, string(code), err)
	default:
		return New(http.StatusInternalServerError, string(aggregates.CodeInternal), err)
	}
}
