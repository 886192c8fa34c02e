package evsock

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------------
// Errors

var (
	// ErrNotConnected indicates a send was attempted before the connection
	// became usable or after it terminated.
	ErrNotConnected = errors.New("evsock: not connected")
	// ErrTransportClosed indicates the transport has been closed locally.
	ErrTransportClosed = errors.New("evsock: transport is closed")
)

// ConnectError reports that a transport could not be constructed for an
// endpoint. It is fatal to client construction and surfaced synchronously.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("evsock: connect %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SendError reports a synchronous transmission failure. It is never fatal to
// the client; it is funneled through the error handler or latch.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("evsock: send: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// CloseError reports an unclean connection termination. Clean closes are not
// errors; they are delivered on the message path instead.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("evsock: unclean close %d: %s", e.Code, e.Reason)
}
