// SPDX-License-Identifier: MIT

package index

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnavailable = errors.New("index: host unreachable or transport failure")
	ErrBadResponse = errors.New("index: invalid response format")
	ErrRateLimited = errors.New("index: upstream rate limit")
	ErrUpstream    = errors.New("index: unexpected upstream status")
)

// APIError wraps the sentinel errors with request context.
type APIError struct {
	Sentinel error
	Package  string
	Status   int
	Err      error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("index: %s: %v", e.Package, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}
