// Package errors defines the coded errors shared by the graph engine, the
// backend client, the API server and the CLI.
//
// Codes group by prefix: INVALID_* and MALFORMED_* for rejected input,
// *_NOT_FOUND and UNKNOWN_* for missing things, NETWORK_*, RATE_LIMITED and
// LOOKUP_FAILED for remote calls. The API turns a code into an HTTP status
// and the client turns it back, so a caller sees the same code on either
// side of the wire.
//
//	if errors.Is(err, errors.ErrCodeUnknownNode) {
//	    // the graph was replaced before the tap arrived
//	}
//
// [Explain] adds a remediation hint for the terminal.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidPackage   Code = "INVALID_PACKAGE"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeMalformedPayload Code = "MALFORMED_PAYLOAD"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeUnknownNode     Code = "UNKNOWN_NODE"

	// Network errors
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeTimeout      Code = "TIMEOUT"
	ErrCodeRateLimited  Code = "RATE_LIMITED"
	ErrCodeLookupFailed Code = "LOOKUP_FAILED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
	// ErrCodeNotMounted means a graph was accepted and installed but the
	// rendering engine could not show it.
	ErrCodeNotMounted Code = "NOT_MOUNTED"
)

// Error carries a Code, a message for people and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error renders "CODE: message: cause". A coded cause contributes only its
// messages, so a chain reads as one sentence with the outermost code.
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.text()
}

func (e *Error) text() string {
	if e.Cause == nil {
		return e.Message
	}
	if inner, ok := e.Cause.(*Error); ok {
		return e.Message + ": " + inner.text()
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without its code,
// or err.Error() for other errors. API error bodies use it.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

var hints = map[Code]string{
	ErrCodeNetwork:          `is the backend running? start one with "nodemedic serve" or pass --api-url`,
	ErrCodeTimeout:          "the backend took too long; try a smaller --depth",
	ErrCodeRateLimited:      "set GITHUB_TOKEN for a higher GitHub rate limit, or retry later",
	ErrCodePackageNotFound:  "check the spelling; scoped packages are written @scope/name",
	ErrCodeMalformedPayload: `graph files need a "nodes" array; "npm ls --json --all" output works too`,
	ErrCodeLookupFailed:     `build a local index with "nodemedic index build" and pass --local`,
}

// Hint returns a remediation for code, or "".
func Hint(code Code) string { return hints[code] }

// Explain is the terminal rendering of err: the user message, and the
// hint for its code on a second line when there is one.
func Explain(err error) string {
	msg := UserMessage(err)
	if h := Hint(GetCode(err)); h != "" {
		return msg + "\n  hint: " + h
	}
	return msg
}
