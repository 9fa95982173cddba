package client

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Refresh protocol errors
var (
	// ErrMissingCredentials means the token store did not hold all of
	// refresh token, access token, and user id, so no refresh call was made.
	ErrMissingCredentials = errors.New("missing credentials for token refresh")

	// ErrMalformedTokenResponse means the refresh endpoint answered 2xx
	// but no usable access token could be extracted from the payload.
	ErrMalformedTokenResponse = errors.New("no usable token in refresh response")
)

// Fallback messages for responses that carry no usable message body.
const (
	genericClientErrMsg = "the request could not be completed"
	genericServerErrMsg = "the service is unavailable, please try again later"
)

// APIError is a non-2xx response from the shop API. Message holds the
// server's message verbatim for 4xx responses and a generic fallback for
// 5xx, per the storefront's error display policy.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shop api: %d %s", e.StatusCode, e.Message)
}

func newAPIError(statusCode int, serverMessage string) *APIError {
	msg := serverMessage
	switch {
	case statusCode >= http.StatusInternalServerError:
		msg = genericServerErrMsg
	case msg == "":
		msg = genericClientErrMsg
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}

// AsAPIError unwraps err to an *APIError if one is in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// TransportError wraps a failure where no response reached the client.
// It never triggers token clearing; the UI shows a connectivity message.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("shop api unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err represents a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
