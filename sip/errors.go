package sip

import "github.com/vir/ysip/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
)

// Message errors.
const (
	ErrInvalidMessage     Error = "invalid message"
	ErrEmptyMessage       Error = "empty message"
	ErrMalformedStartLine Error = "malformed start line"
	ErrMalformedHeader    Error = "malformed header"
	// ErrIncompleteMessage is returned by [ParseFrame] when the buffer
	// does not hold the whole message yet.
	ErrIncompleteMessage Error = "incomplete message"
)

// Transport errors.
const (
	// ErrNoParty is returned when no transport party could be attached to a message.
	ErrNoParty Error = "no transport party"
	// ErrNoTarget is returned when no target for the message is resolved.
	ErrNoTarget Error = "no target resolved"
)

// Error represents a SIP error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}

func newParseError(sentinel Error, args ...any) error {
	return errorutil.NewWrapperError(sentinel, args...) //errtrace:skip
}
