package evsock

import "context"

// --------------------------------------------------------------------------------
// Events

// EventKind identifies the four raw event kinds a transport emits.
type EventKind int

const (
	// EventOpen fires at most once, when the connection becomes usable.
	EventOpen EventKind = iota + 1
	// EventMessage fires for each inbound data frame.
	EventMessage
	// EventError fires for transport-reported failures.
	EventError
	// EventClose fires when the connection terminates, cleanly or not.
	EventClose
)

// FrameType tags the framing of a raw inbound frame. The values match the
// RFC 6455 data frame opcodes used by gorilla/websocket; transports may emit
// other values, which consumers discard.
type FrameType int

const (
	// FrameText denotes a UTF-8 text frame.
	FrameText FrameType = 1
	// FrameBinary denotes a binary frame.
	FrameBinary FrameType = 2
)

// Frame is a raw inbound data frame, prior to translation into a Message.
type Frame struct {
	Type FrameType
	Data []byte
}

// Event is a single raw transport event. Kind selects which of the remaining
// fields are meaningful: Frame for EventMessage; Err for EventError; Code,
// Reason and Clean for EventClose.
type Event struct {
	Kind   EventKind
	Frame  Frame
	Err    error
	Code   int
	Reason string
	Clean  bool
}

// EventFunc consumes one raw transport event.
type EventFunc func(Event)

// --------------------------------------------------------------------------------
// Transport contract

// Subscription is a registered event callback. Unsubscribe releases it and is
// safe to call after the transport itself has been torn down; extra calls are
// no-ops.
type Subscription interface {
	Unsubscribe()
}

// Transport is a persistent full-duplex connection handle. Implementations
// must deliver events one at a time, in order, and only after Start has been
// called, so that subscribers registered between construction and Start never
// miss an event.
type Transport interface {
	// Start begins event dispatch. Calling Start more than once is a no-op.
	Start()
	// SendText transmits a text frame. A synchronous failure is returned to
	// the caller; it is not emitted as an error event.
	SendText(msg string) error
	// SendBinary transmits a binary frame.
	SendBinary(p []byte) error
	// Subscribe registers fn for events of the given kind.
	Subscribe(kind EventKind, fn EventFunc) Subscription
	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Dialer constructs transports from endpoint URLs.
type Dialer interface {
	// Dial validates the endpoint and returns an unstarted transport. It
	// fails with a *ConnectError if the transport cannot be constructed,
	// e.g. on a malformed URL; handshake failures surface later as error and
	// close events.
	Dial(ctx context.Context, url string) (Transport, error)
}
