package payload

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the class of an Error. The identifiers are stable and
// part of the wire format.
type ErrorKind string

const (
	KindMissingData        ErrorKind = "MissingData"        // a precondition on existing data failed
	KindInvalidDataType    ErrorKind = "InvalidDataType"    // stored data has the wrong type
	KindInvalidValueType   ErrorKind = "InvalidValueType"   // a supplied value has the wrong type
	KindInvalidCount       ErrorKind = "InvalidCount"       // a requested count cannot be satisfied
	KindMissingValue       ErrorKind = "MissingValue"       // a required option was not supplied
	KindMissingName        ErrorKind = "MissingName"        // a store was created without a name
	KindInvalidProvider    ErrorKind = "InvalidProvider"    // a store was created without a usable provider
	KindMiddlewareNotFound ErrorKind = "MiddlewareNotFound" // a middleware lookup by name failed
	KindInvalidOption      ErrorKind = "InvalidOption"      // an option is unknown or out of range
	KindProviderError      ErrorKind = "ProviderError"      // the backend failed
	KindInternalError      ErrorKind = "InternalError"      // a payload could not be processed at all
)

// Error is the error type set on payloads and returned by the store.
// Backends may use their own kinds for backend failures (e.g. "SQLiteError").
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Method  Method    `json:"method,omitempty"`
	Message string    `json:"message"`
}

// NewError creates a new Error
func NewError(kind ErrorKind, method Method, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Method:  method,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Method, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is an *Error of the same kind. This lets the
// sentinels below match any error of their kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Sentinels for use with errors.Is
var (
	ErrMissingData        = &Error{Kind: KindMissingData}
	ErrInvalidDataType    = &Error{Kind: KindInvalidDataType}
	ErrInvalidValueType   = &Error{Kind: KindInvalidValueType}
	ErrInvalidCount       = &Error{Kind: KindInvalidCount}
	ErrMissingValue       = &Error{Kind: KindMissingValue}
	ErrMissingName        = &Error{Kind: KindMissingName}
	ErrInvalidProvider    = &Error{Kind: KindInvalidProvider}
	ErrMiddlewareNotFound = &Error{Kind: KindMiddlewareNotFound}
	ErrInvalidOption      = &Error{Kind: KindInvalidOption}
	ErrProviderError      = &Error{Kind: KindProviderError}
)
