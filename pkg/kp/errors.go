package kp

import (
	"errors"
	"net/http"
)

// Error is the client facing error. Message is safe to return; Err keeps the
// underlying cause for logs only.
type Error struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func NewError(statusCode int, code, message string, err error) *Error {
	return &Error{Code: code, Message: message, StatusCode: statusCode, Err: err}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Json() map[string]string {
	return map[string]string{"code": e.Code, "message": e.Message}
}

var ErrInternal = &Error{
	Code:       "internal_error",
	Message:    "internal server error",
	StatusCode: http.StatusInternalServerError,
}

// AsError classifies err; anything that is not an *Error becomes ErrInternal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:       ErrInternal.Code,
		Message:    ErrInternal.Message,
		StatusCode: ErrInternal.StatusCode,
		Err:        err,
	}
}
