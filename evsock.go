// Package evsock defines the shared types of an event-driven socket client:
// the text/binary message union exchanged with handlers, and the transport
// contract the client facade consumes.
package evsock

import (
	"fmt"

	json "github.com/bytedance/sonic"
)

// --------------------------------------------------------------------------------
// Types

// MessageType discriminates the two payload framings a Message can carry.
type MessageType int

const (
	// MessageText is for UTF-8 encoded text payloads like JSON.
	MessageText MessageType = iota + 1
	// MessageBinary is for binary payloads like protobufs.
	MessageBinary
)

// Message is an immutable text-or-binary payload.
//
// It is produced by the transport's message translation step and consumed by
// an installed message handler; callers must not mutate the slice returned by
// Binary.
type Message struct {
	typ  MessageType
	text string
	data []byte
}

// --------------------------------------------------------------------------------
// Constructors

// NewTextMessage creates a text message carrying s.
func NewTextMessage(s string) Message {
	return Message{typ: MessageText, text: s}
}

// NewBinaryMessage creates a binary message carrying p.
func NewBinaryMessage(p []byte) Message {
	return Message{typ: MessageBinary, data: p}
}

// --------------------------------------------------------------------------------
// Accessors

// Type reports whether the message is text or binary framed.
func (m Message) Type() MessageType {
	return m.typ
}

// Text returns the payload of a text message, or "" for a binary message.
func (m Message) Text() string {
	return m.text
}

// Binary returns the payload of a binary message, or nil for a text message.
func (m Message) Binary() []byte {
	return m.data
}

// Payload returns the raw bytes of the message regardless of framing.
func (m Message) Payload() []byte {
	if m.typ == MessageText {
		return []byte(m.text)
	}

	return m.data
}

// Decode unmarshals the message payload as JSON into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload(), v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	return nil
}

// String implements fmt.Stringer for logging.
func (m Message) String() string {
	switch m.typ {
	case MessageText:
		return fmt.Sprintf("Message{text,%q}", m.text)
	case MessageBinary:
		return fmt.Sprintf("Message{binary,%d bytes}", len(m.data))
	default:
		return "Message{invalid}"
	}
}
