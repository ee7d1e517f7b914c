package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	// CodeConflict covers duplicate or already-decided requests (bids, refunds).
	CodeConflict Code = "CONFLICT"
	// CodeScopedConflict is a conflict inside the caller's own scope, e.g. a duplicate cart line.
	CodeScopedConflict Code = "SCOPED_CONFLICT"
	// CodeStateConflict is a disallowed state transition or an ineligible refund.
	CodeStateConflict      Code = "STATE_CONFLICT"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
	CodeGatewayError       Code = "PAYMENT_GATEWAY_ERROR"
	CodeGatewayUnavailable Code = "PAYMENT_GATEWAY_UNAVAILABLE"
)

// Metadata is the HTTP rendering of a Code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	terminal  = false
	retryable = true
	opaque    = false
	detailed  = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:         {http.StatusBadRequest, terminal, "validation failed", detailed},
	CodeUnauthorized:       {http.StatusUnauthorized, terminal, "authentication required", opaque},
	CodeForbidden:          {http.StatusForbidden, terminal, "access denied", opaque},
	CodeNotFound:           {http.StatusNotFound, terminal, "resource not found", opaque},
	CodeConflict:           {http.StatusBadRequest, terminal, "conflict detected", opaque},
	CodeScopedConflict:     {http.StatusUnauthorized, terminal, "request conflicts with existing resource", opaque},
	CodeStateConflict:      {http.StatusForbidden, terminal, "state transition disallowed", detailed},
	CodeIdempotency:        {http.StatusConflict, terminal, "idempotency key reused", detailed},
	CodeRateLimit:          {http.StatusTooManyRequests, terminal, "rate limit exceeded", opaque},
	CodeInternal:           {http.StatusInternalServerError, retryable, "internal server error", opaque},
	CodeDependency:         {http.StatusServiceUnavailable, retryable, "dependency unavailable", detailed},
	CodeGatewayError:       {http.StatusBadGateway, terminal, "payment provider rejected the request", detailed},
	CodeGatewayUnavailable: {http.StatusServiceUnavailable, retryable, "payment provider unavailable", opaque},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded application error. The code decides the HTTP status;
// message is safe to show callers; cause is only logged.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf reports the code of err, CodeInternal when err is not coded.
func CodeOf(err error) Code {
	return As(err).Code()
}
