// Package serviceerr defines the errors surfaced by the public API together
// with their wire codes and HTTP status mapping.
package serviceerr

import (
	"errors"
	"net/http"
)

// Code is an error code in the style of RFC6749 section 5.2.
type Code string

const (
	CodeInvalidRequest         Code = "invalid_request"
	CodeUnauthorized           Code = "unauthorized"
	CodeNotFound               Code = "not_found"
	CodeServerError            Code = "server_error"
	CodeTemporarilyUnavailable Code = "temporarily_unavailable"
	CodeProviderRejected       Code = "provider_rejected"
	CodeUnknown                Code = "unknown"
)

// Error is an error with a code and an optional human readable description.
type Error struct {
	Err         Code
	Description string
}

var (
	ErrInvalidRequest      = &Error{Err: CodeInvalidRequest}
	ErrUnauthorized        = &Error{Err: CodeUnauthorized, Description: "no valid session"}
	ErrNotFound            = &Error{Err: CodeNotFound, Description: "not found"}
	ErrServerError         = &Error{Err: CodeServerError, Description: "internal server error"}
	ErrProviderUnavailable = &Error{Err: CodeTemporarilyUnavailable, Description: "auth provider is temporarily unavailable"}
	ErrProviderRejected    = &Error{Err: CodeProviderRejected, Description: "auth provider rejected the request"}
	ErrUnknown             = &Error{Err: CodeUnknown, Description: "unknown error"}
)

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// HTTPStatus returns the HTTP status code the error is reported with.
func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	case CodeProviderRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As returns the first *Error in err's chain, or ErrUnknown.
func As(err error) *Error {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	return ErrUnknown
}
