package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application error that maps directly to an HTTP response.
// The Message/Status pair is what the API returns to the caller.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return e.Message
}

// Validation reports malformed or missing input (400).
func Validation(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

// NotFound reports a missing record or dangling reference (404).
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Status: http.StatusNotFound}
}

// Conflict reports a uniqueness violation (409).
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Status: http.StatusConflict}
}

// Internal is the generic 500 returned when nothing more specific applies.
// The message is fixed so internal details never leak to the caller.
func Internal() *Error {
	return &Error{Message: "Internal Server Error", Status: http.StatusInternalServerError}
}

// From converts any error into an *Error, falling back to Internal()
// for errors that carry no status of their own.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal()
}
