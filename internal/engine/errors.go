package engine

import (
	"errors"
	"fmt"
)

// Error represents a failure detected at the engine boundary.
//
// Engine errors include:
//   - Not found: a delete request matched no rows, or named an unknown
//     entity type or field
//   - Serialization failure: a row value could not be captured into the
//     snapshot document; the delete aborts before any row is removed
//   - Expired: the operation id is absent from the Operation Store,
//     whether through real expiry or an invalid id
//   - Partial restore failure: a row failed to save during undo; the
//     whole undo transaction is rolled back and the snapshot preserved
//   - Policy violation: an orphan-policy rule references an entity pair
//     or field not present in the registry
//
// Error includes structured fields for diagnostics; Err carries the
// underlying cause for errors.Is/As chains.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EntityType identifies the affected entity, when known.
	EntityType string

	// Op names the engine operation that failed ("deleteById", "undo", ...).
	Op string

	// OperationID identifies the affected snapshot (undo errors).
	OperationID string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates no rows matched a delete request, or the
	// request named an unregistered entity type or unknown field.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeSerialization indicates a row value could not be captured
	// into the snapshot format.
	ErrCodeSerialization ErrorCode = "SERIALIZATION_FAILURE"

	// ErrCodeExpired indicates the operation id was not in the Operation
	// Store, through real expiry or an invalid id.
	ErrCodeExpired ErrorCode = "EXPIRED"

	// ErrCodePartialRestore indicates a row save failed during undo.
	ErrCodePartialRestore ErrorCode = "PARTIAL_RESTORE_FAILURE"

	// ErrCodePolicyViolation indicates an orphan-policy rule references
	// an entity pair or field missing from the registry.
	ErrCodePolicyViolation ErrorCode = "POLICY_VIOLATION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.EntityType != "" && e.Op != "":
		return fmt.Sprintf("%s: %s (entity=%s, op=%s)", e.Code, e.Message, e.EntityType, e.Op)
	case e.OperationID != "" && e.Op != "":
		return fmt.Sprintf("%s: %s (operation=%s, op=%s)", e.Code, e.Message, e.OperationID, e.Op)
	case e.Op != "":
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause so errors.Is/As see through the
// taxonomy wrapper.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeNotFound
	}
	return false
}

// IsSerializationFailure returns true if the error is a serialization
// failure. Uses errors.As to handle wrapped errors.
func IsSerializationFailure(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeSerialization
	}
	return false
}

// IsExpired returns true if the error is an expired-operation error.
// Uses errors.As to handle wrapped errors.
func IsExpired(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeExpired
	}
	return false
}

// IsPartialRestoreFailure returns true if the error is a partial restore
// failure. Uses errors.As to handle wrapped errors.
func IsPartialRestoreFailure(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodePartialRestore
	}
	return false
}

// IsPolicyViolation returns true if the error is a policy configuration
// error. Uses errors.As to handle wrapped errors.
func IsPolicyViolation(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodePolicyViolation
	}
	return false
}

// NewNotFoundError creates an Error for a delete request that matched
// nothing, or named an unknown entity type or field.
func NewNotFoundError(op, entityType, message string) *Error {
	return &Error{
		Code:       ErrCodeNotFound,
		Message:    message,
		EntityType: entityType,
		Op:         op,
	}
}

// NewSerializationError creates an Error for a row value that could not
// be captured into the snapshot document.
func NewSerializationError(op, entityType string, err error) *Error {
	return &Error{
		Code:       ErrCodeSerialization,
		Message:    "row value cannot be captured into snapshot",
		EntityType: entityType,
		Op:         op,
		Err:        err,
	}
}

// NewExpiredError creates an Error for an operation id absent from the
// Operation Store.
func NewExpiredError(operationID string) *Error {
	return &Error{
		Code:        ErrCodeExpired,
		Message:     "operation not found or expired",
		Op:          "undo",
		OperationID: operationID,
	}
}

// NewPartialRestoreError creates an Error for a row save that failed
// during undo. The undo transaction is rolled back; the snapshot stays
// in the Operation Store for retry.
func NewPartialRestoreError(operationID, entityType string, err error) *Error {
	return &Error{
		Code:        ErrCodePartialRestore,
		Message:     "row save failed during restore; undo aborted, snapshot preserved",
		EntityType:  entityType,
		Op:          "undo",
		OperationID: operationID,
		Err:         err,
	}
}

// NewPolicyViolationError creates an Error for an orphan-policy rule
// that references an entity pair or field missing from the registry.
func NewPolicyViolationError(entityType, message string) *Error {
	return &Error{
		Code:       ErrCodePolicyViolation,
		Message:    message,
		EntityType: entityType,
	}
}
