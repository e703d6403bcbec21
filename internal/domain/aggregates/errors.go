package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes failure semantics for graph writes and reads.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is the canonical aggregate error. Entity and Key are set when the
// failure can be pinned to a single row (e.g. a stale Product row version).
type Error struct {
	Code    ErrorCode
	Op      string
	Entity  string
	Key     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if op := strings.TrimSpace(e.Op); op != "" {
		b.WriteString(op)
	}
	if e.Entity != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.Entity)
		if e.Key != "" {
			b.WriteString("(" + e.Key + ")")
		}
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(msg)
	}
	if b.Len() == 0 {
		return string(e.Code)
	}
	return fmt.Sprintf("%s (%s)", b.String(), e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// NewEntityError builds an aggregate error that names the offending row.
func NewEntityError(code ErrorCode, op, entity, key, message string) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Entity:  entity,
		Key:     key,
		Message: strings.TrimSpace(message),
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}
