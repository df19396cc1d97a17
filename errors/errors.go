package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError carries a machine-readable code next to the message so callers
// can branch on the kind of failure and retry policies can read Retryable.
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// WithDetails merges details, overwriting existing keys.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// New derives Retryable from the code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Retryable: IsRetryableCode(code)}
}

func Wrap(cause error, code ErrorCode, message string) *AppError {
	return New(code, message).WithCause(cause)
}

func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed, "unable to connect to "+service).WithDetail("service", service)
}

func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, operation+" timed out").WithDetail("operation", operation)
}

// NotFound omits the id detail when id is empty.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, resource+" not found").WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

func InvalidConfig(reason string) *AppError {
	return New(ErrCodeInvalidConfig, reason)
}

// InvalidRecord reports a record that could not be decoded. line is its
// 1-based position in the stream, or 0 when unknown.
func InvalidRecord(line int, reason string) *AppError {
	e := New(ErrCodeInvalidRecord, "invalid record: "+reason)
	if line > 0 {
		e.WithDetail("line", line)
	}
	return e
}

func SourceFailed(cause error) *AppError {
	return Wrap(cause, ErrCodeSourceFailed, "source failed")
}

func TransformFailed(worker int, cause error) *AppError {
	return Wrap(cause, ErrCodeTransformFailed, "transform failed").WithDetail("worker", worker)
}

func SinkFailed(cause error) *AppError {
	return Wrap(cause, ErrCodeSinkFailed, "sink failed")
}

func Internal(cause error) *AppError {
	return Wrap(cause, ErrCodeInternal, "internal error")
}

func DatabaseError(cause error) *AppError {
	return Wrap(cause, ErrCodeDatabaseError, "database operation failed")
}

func ExternalServiceError(service string, cause error) *AppError {
	return Wrap(cause, ErrCodeExternalService, service+" request failed").WithDetail("service", service)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// IsRetryable is false for errors that are not AppErrors.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}

func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
