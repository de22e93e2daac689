// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package klarity

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure. Every kind aborts the sync cycle; the
// distinction tells the user whether to fix settings, wait, or report a bug.
type Kind string

const (
	// KindConfiguration means the API key is missing or cannot be valid.
	// No request was made.
	KindConfiguration Kind = "configuration"

	// KindAuthentication means the service rejected the key (401/403).
	KindAuthentication Kind = "authentication"

	// KindEndpoint means the notes endpoint answered 404, likely because
	// the service moved or is unavailable.
	KindEndpoint Kind = "endpoint"

	// KindServer means a 5xx answer. Transient; the next cycle may succeed.
	KindServer Kind = "server"

	// KindUnexpectedStatus means a non-200 status outside the cases above.
	KindUnexpectedStatus Kind = "unexpected_status"

	// KindMalformedResponse means a 200 answer whose body is not an object
	// carrying a notes list.
	KindMalformedResponse Kind = "malformed_response"

	// KindNetwork means the request never produced an HTTP response (DNS,
	// refused connection, timeout).
	KindNetwork Kind = "network"
)

// Error is a classified fetch failure. Message is written for direct display
// to the user; Err carries the underlying cause when one exists.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or "" when err carries none.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Transient reports whether err names a failure the next trigger may clear
// without any settings change: a server-side 5xx or a network-level fault.
func Transient(err error) bool {
	k := KindOf(err)
	return k == KindServer || k == KindNetwork
}
