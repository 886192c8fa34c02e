// Package client provides an event-driven facade over a persistent socket
// transport. Incoming messages and errors are routed to caller-installed
// handlers; events that arrive while no handler is installed are buffered
// (messages) or latched (errors) and delivered, in order, the moment a
// handler appears. Handlers may replace themselves from inside their own
// invocation.
//
// All handler invocations happen synchronously on the transport's dispatch
// goroutine, one event at a time; nothing in this package blocks or suspends.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	json "github.com/bytedance/sonic"
	"github.com/qntx/evsock"
	"github.com/qntx/evsock/logger"
	"github.com/qntx/evsock/websocket"
)

// --------------------------------------------------------------------------------
// Types

// MessageHandler consumes one inbound message.
type MessageHandler func(evsock.Message)

// ErrorHandler consumes one transport or send error.
type ErrorHandler func(error)

// Option defines a function that configures a Client and returns an error if
// configuration fails.
type Option func(*Client) error

// Client composes a handler slot and pending queue for inbound messages with
// a handler slot and single-error latch for failures, wired to the four raw
// event kinds of an evsock.Transport.
//
// The Client exclusively owns its transport handle and event subscriptions;
// Close releases them exactly once.
type Client struct {
	transport evsock.Transport
	dialer    evsock.Dialer
	logger    logger.Interface
	init      *evsock.Message

	subs    []evsock.Subscription
	release sync.Once

	onMessage slot[evsock.Message]
	queue     pending[evsock.Message]
	onError   slot[error]
	latched   latch
}

// --------------------------------------------------------------------------------
// Initialization

// New dials the endpoint and returns a connected facade.
//
// The returned client has no handlers installed: messages buffer and the
// first error latches until SetOnMessage / SetOnError are called. When an
// init message is configured, it is sent once, at the moment the transport
// signals it is open.
//
// Construction fails with a *evsock.ConnectError if the transport cannot be
// built (e.g. malformed URL); any subscriptions established before a
// construction failure are released on the way out.
func New(ctx context.Context, url string, opts ...Option) (*Client, error) {
	l, err := logger.New("info", os.Stdout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		dialer: websocket.DefaultDialer,
		logger: l,
	}

	if _, err := c.With(opts...); err != nil {
		return nil, err
	}

	t, err := c.dialer.Dial(ctx, url)
	if err != nil {
		return nil, err
	}

	c.transport = t

	ok := false
	defer func() {
		if !ok {
			c.unsubscribe()
			_ = t.Close()
		}
	}()

	if c.init != nil {
		c.subs = append(c.subs, t.Subscribe(evsock.EventOpen, c.handleOpen))
	}

	c.subs = append(c.subs, t.Subscribe(evsock.EventMessage, c.handleMessage))
	c.subs = append(c.subs, t.Subscribe(evsock.EventError, c.handleError))
	c.subs = append(c.subs, t.Subscribe(evsock.EventClose, c.handleClose))

	t.Start()

	c.logger.Debug("client created for %s", url)

	ok = true

	return c, nil
}

// With applies a list of options to the Client and returns the modified
// instance along with any error.
func (c *Client) With(opts ...Option) (*Client, error) {
	for i, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(c); err != nil {
			return c, fmt.Errorf("failed to apply option at index %d: %w", i, err)
		}
	}

	return c, nil
}

// Close releases the event subscriptions exactly once and closes the
// transport. It is safe to call more than once.
func (c *Client) Close() error {
	c.unsubscribe()

	return c.transport.Close()
}

// --------------------------------------------------------------------------------
// Handler Installation

// SetOnMessage installs handler for inbound messages, replacing any previous
// one. A nil handler suspends delivery; subsequent messages buffer rather
// than being dropped.
//
// When the install takes effect immediately, every buffered message is
// drained into the new handler in arrival order, synchronously, before
// SetOnMessage returns. When called from inside the current message handler,
// the replacement is deferred and lands the instant that invocation returns;
// the current message stays with the old handler and the next one observes
// the new handler.
func (c *Client) SetOnMessage(handler MessageHandler) {
	if c.onMessage.install(handler) == outcomeApplied {
		c.onMessage.drain(c.queue.pop)
	}
}

// SetOnError installs handler for transport and send errors, replacing any
// previous one. A nil handler suspends delivery; the first subsequent error
// latches and later ones are dropped until it is consumed.
//
// When the install takes effect immediately and an error is latched, it is
// delivered to the new handler exactly once, synchronously, before SetOnError
// returns.
func (c *Client) SetOnError(handler ErrorHandler) {
	if c.onError.install(handler) == outcomeApplied {
		c.onError.drain(c.latched.take)
	}
}

// --------------------------------------------------------------------------------
// Sending

// Send hands m to the transport for transmission. A synchronous transmission
// failure is routed through the error handler, or latched when none is
// installed, the same way inbound errors are.
func (c *Client) Send(m evsock.Message) {
	var err error

	switch m.Type() {
	case evsock.MessageText:
		err = c.transport.SendText(m.Text())
	case evsock.MessageBinary:
		err = c.transport.SendBinary(m.Binary())
	default:
		err = errors.New("invalid message type")
	}

	if err != nil {
		c.reportError(&evsock.SendError{Err: err})
	}
}

// SendText sends msg as a text frame.
func (c *Client) SendText(msg string) {
	c.Send(evsock.NewTextMessage(msg))
}

// SendBinary sends p as a binary frame.
func (c *Client) SendBinary(p []byte) {
	c.Send(evsock.NewBinaryMessage(p))
}

// SendJSON marshals v and sends it as a text frame. A marshaling failure is
// routed through the error path like any other send failure.
func (c *Client) SendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.reportError(&evsock.SendError{Err: err})

		return
	}

	c.SendText(string(data))
}

// --------------------------------------------------------------------------------
// Event Routing (Private)

// handleOpen sends the configured init message now that the transport is
// usable. Send already funnels failures through the error path.
func (c *Client) handleOpen(_ evsock.Event) {
	c.logger.Debug("open: sending init message %s", *c.init)
	c.Send(*c.init)
}

// handleMessage translates a raw frame into a Message and routes it.
// Unrecognized framings are silently discarded; they are neither an error nor
// delivered.
func (c *Client) handleMessage(ev evsock.Event) {
	switch ev.Frame.Type {
	case evsock.FrameText:
		c.dispatch(evsock.NewTextMessage(string(ev.Frame.Data)))
	case evsock.FrameBinary:
		c.dispatch(evsock.NewBinaryMessage(ev.Frame.Data))
	default:
		c.logger.Debug("discarding frame with unrecognized type %d", ev.Frame.Type)
	}
}

// handleError routes a transport-reported error.
func (c *Client) handleError(ev evsock.Event) {
	c.reportError(ev.Err)
}

// handleClose routes connection termination. A clean close becomes a terminal
// informational text message carrying the close reason; an unclean close
// becomes an error. The asymmetry is part of the contract.
func (c *Client) handleClose(ev evsock.Event) {
	if ev.Clean {
		c.logger.Debug("clean close %d: %s", ev.Code, ev.Reason)
		c.dispatch(evsock.NewTextMessage(ev.Reason))

		return
	}

	c.logger.Debug("unclean close %d: %s", ev.Code, ev.Reason)
	c.reportError(&evsock.CloseError{Code: ev.Code, Reason: ev.Reason})
}

// dispatch routes m to the message handler, or buffers it when no handler is
// installed.
func (c *Client) dispatch(m evsock.Message) {
	c.onMessage.deliver(m, c.queue.push)
}

// reportError routes err to the error handler, or latches it when no handler
// is installed. The latch keeps the first pending error; later errors are
// dropped until it is consumed.
func (c *Client) reportError(err error) {
	c.onError.deliver(err, c.latched.record)
}

// unsubscribe releases all event subscriptions exactly once.
func (c *Client) unsubscribe() {
	c.release.Do(func() {
		for _, s := range c.subs {
			s.Unsubscribe()
		}
	})
}

// --------------------------------------------------------------------------------
// Option Functions

// WithDialer replaces the default websocket dialer.
//
// Returns an error if the dialer is nil.
func WithDialer(d evsock.Dialer) Option {
	return func(c *Client) error {
		if d == nil {
			return errors.New("dialer cannot be nil")
		}

		c.dialer = d

		return nil
	}
}

// WithLogger sets a custom logger for the client.
//
// Returns an error if the logger is nil.
func WithLogger(l logger.Interface) Option {
	return func(c *Client) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}

		c.logger = l

		return nil
	}
}

// WithInitMessage configures a message to send once, when the transport
// signals it is open.
func WithInitMessage(m evsock.Message) Option {
	return func(c *Client) error {
		c.init = &m

		return nil
	}
}
