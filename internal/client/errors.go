package client

import (
	"errors"
	"fmt"
)

var (
	// ErrRefreshFailed covers a server rejection or an unreachable server
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrMalformedResponse covers a success status with an unusable body
	ErrMalformedResponse = errors.New("malformed token response")

	// ErrMissingRefreshToken is returned before any I/O when no refresh token is available
	ErrMissingRefreshToken = errors.New("refresh token is required")
)

// RefreshError describes a failed exchange. Its message is the server's
// detail text when one was provided, so it can be shown to users as is.
type RefreshError struct {
	// Kind is ErrRefreshFailed or ErrMalformedResponse
	Kind error

	// StatusCode is 0 when no response was received
	StatusCode int

	// Code is the server's machine-readable error, e.g. "invalid_grant"
	Code string

	Message string

	// Err is the underlying transport or decode error, if any
	Err error
}

func (e *RefreshError) Error() string {
	return e.Message
}

// Is matches the error kind so callers can use errors.Is(err, ErrRefreshFailed)
func (e *RefreshError) Is(target error) bool {
	return target == e.Kind
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// errorBody is the error shape returned by the API server
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func rejected(status int, body *errorBody) *RefreshError {
	e := &RefreshError{
		Kind:       ErrRefreshFailed,
		StatusCode: status,
		Message:    fmt.Sprintf("token refresh failed with status %d", status),
	}
	if body == nil {
		return e
	}
	e.Code = body.Error
	switch {
	case body.Detail != "":
		e.Message = body.Detail
	case body.Error != "":
		e.Message = body.Error
	}
	return e
}

func unreachable(err error) *RefreshError {
	return &RefreshError{Kind: ErrRefreshFailed, Message: err.Error(), Err: err}
}

func malformed(status int, reason string, err error) *RefreshError {
	return &RefreshError{
		Kind:       ErrMalformedResponse,
		StatusCode: status,
		Message:    "malformed token response: " + reason,
		Err:        err,
	}
}
