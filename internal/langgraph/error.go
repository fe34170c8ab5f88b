// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package langgraph

import (
	"errors"
)

var (
	ErrInvalidURL         = errors.New("invalid server url")
	errUnauthorized       = errors.New("invalid credentials or insufficient permissions")
	errNotFound           = errors.New("resource not found")
	errUnexpectedResponse = errors.New("unexpected error")
)

// SDKError wraps every error returned by Client calls.
type SDKError struct {
	// StatusCode is the HTTP status returned by the server, zero for transport errors.
	StatusCode int

	err error
}

func (e *SDKError) Error() string {
	return "langgraph: " + e.err.Error()
}

func (e *SDKError) Unwrap() error {
	return e.err
}

func (e *SDKError) Is(target error) bool {
	sdkErr, ok := target.(*SDKError)
	if !ok {
		return false
	}

	return e.err.Error() == sdkErr.err.Error()
}

// handleError normalizes errors emitted by the client.
func handleError(statusCode int, err error) error {
	return &SDKError{
		StatusCode: statusCode,
		err:        err,
	}
}
