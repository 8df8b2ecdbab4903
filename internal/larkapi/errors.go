// Package larkapi provides an HTTP client for the Feishu/Lark open platform
// with envelope decoding and error classification. The platform wraps every
// response in a {code, msg, data} envelope; code != 0 means failure
// regardless of HTTP status.
package larkapi

import (
	"errors"
	"fmt"
)

// ErrUpstreamAuth is the sentinel for any non-zero envelope code returned by
// the auth endpoints. Use errors.Is(err, larkapi.ErrUpstreamAuth) to check.
var ErrUpstreamAuth = errors.New("larkapi: upstream auth error")

// APIError wraps the sentinel with the upstream envelope code, message, and
// the operation that failed.
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("larkapi: %s: upstream code %d: %s", e.Op, e.Code, e.Msg)
}

func (e *APIError) Unwrap() error {
	return ErrUpstreamAuth
}
