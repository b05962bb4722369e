package response

import (
	"fmt"
	"net/http"
)

const (
	CodeBadRequest    = http.StatusBadRequest
	CodeUnauthorized  = http.StatusUnauthorized
	CodeNotFound      = http.StatusNotFound
	CodeConflict      = http.StatusConflict
	CodeInternal      = http.StatusInternalServerError
	CodeBadGateway    = http.StatusBadGateway
	CodeUnprocessable = http.StatusUnprocessableEntity
)

// Error holds an error code, message and error itself
type Error struct {
	Code     int
	Message  interface{}
	Internal error
}

func NewError(code int, message interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap builds an Error whose message is taken from err and keeps err as the cause.
func Wrap(code int, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Internal: err}
}

func (e *Error) SetInternal(err error) *Error {
	e.Internal = err
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %v", e.Code, e.Message)
}

// Unwrap exposes the internal error to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Internal
}
