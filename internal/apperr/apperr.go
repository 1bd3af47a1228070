package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable identifier for a failure mode. Codes are part of the
// HTTP and MCP error payloads and must not be renamed.
type Code string

const (
	// MalformedInput indicates a raw artifact or request body that cannot be decoded.
	MalformedInput Code = "MALFORMED_INPUT"
	// InvalidArgument indicates a parameter outside its accepted range or shape.
	InvalidArgument Code = "INVALID_ARGUMENT"
	// LLMParseFailure indicates an LLM response that does not contain the expected JSON.
	LLMParseFailure Code = "LLM_PARSE_FAILURE"
	// UpstreamFailure indicates the LLM call itself failed.
	UpstreamFailure Code = "UPSTREAM_FAILURE"
	// StoreUnavailable indicates the TOC or vector backend cannot be reached.
	StoreUnavailable Code = "STORE_UNAVAILABLE"
	// DuplicateRecord indicates a uniqueness violation on (repo, path, hash).
	DuplicateRecord Code = "DUPLICATE_RECORD"
	// NotFound indicates that none of the requested items exist.
	NotFound Code = "NOT_FOUND"
	// Internal indicates an unexpected failure.
	Internal Code = "INTERNAL_ERROR"
)

// Error carries a Code alongside a human readable message and an optional
// underlying cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// New creates an Error. cause may be nil.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Newf creates an Error without a cause using a format string.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, apperr.New(apperr.NotFound, "", nil)) style checks work.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithDetails attaches structured details to the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or Internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a code onto the status used by the HTTP surface.
func HTTPStatus(code Code) int {
	switch code {
	case MalformedInput, InvalidArgument, LLMParseFailure:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case DuplicateRecord:
		return http.StatusConflict
	case StoreUnavailable:
		return http.StatusServiceUnavailable
	case UpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
