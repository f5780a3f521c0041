package services

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable reason for a rejected transition. Callers
// use it to pick an HTTP status and to compose user-facing messages; only
// CodeConcurrencyConflict is worth retrying.
type ErrorCode string

const (
	CodeNotFound            ErrorCode = "not_found"
	CodePermissionDenied    ErrorCode = "permission_denied"
	CodeInvalidTransition   ErrorCode = "invalid_transition"
	CodeInvalidTarget       ErrorCode = "invalid_target"
	CodeCapacityExceeded    ErrorCode = "capacity_exceeded"
	CodeAlreadyApplied      ErrorCode = "already_applied"
	CodeAlreadyExists       ErrorCode = "already_exists"
	CodeConcurrencyConflict ErrorCode = "concurrency_conflict"
	CodeConsistencyDrift    ErrorCode = "consistency_drift"
)

// DomainError carries an error code across the service boundary.
// BlockingProjects is populated by the role-change gatekeeper so callers can
// tell the user which projects stand in the way.
type DomainError struct {
	Code             ErrorCode
	Message          string
	BlockingProjects []uint
}

func (e *DomainError) Error() string {
	return e.Message
}

func newError(code ErrorCode, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errNotFound(format string, args ...interface{}) *DomainError {
	return newError(CodeNotFound, format, args...)
}

func errPermissionDenied(format string, args ...interface{}) *DomainError {
	return newError(CodePermissionDenied, format, args...)
}

func errInvalidTransition(format string, args ...interface{}) *DomainError {
	return newError(CodeInvalidTransition, format, args...)
}

func errInvalidTarget(format string, args ...interface{}) *DomainError {
	return newError(CodeInvalidTarget, format, args...)
}

func errCapacityExceeded(format string, args ...interface{}) *DomainError {
	return newError(CodeCapacityExceeded, format, args...)
}

func errAlreadyApplied(format string, args ...interface{}) *DomainError {
	return newError(CodeAlreadyApplied, format, args...)
}

func errAlreadyExists(format string, args ...interface{}) *DomainError {
	return newError(CodeAlreadyExists, format, args...)
}

// CodeOf extracts the domain error code, or "" for non-domain errors.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
