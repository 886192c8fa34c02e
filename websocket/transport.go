// Package websocket implements the evsock transport contract on top of the
// gorilla/websocket library. Events are dispatched from a single goroutine,
// one at a time, in the order the connection produced them.
package websocket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/qntx/evsock"
	"github.com/qntx/evsock/logger"
)

// --------------------------------------------------------------------------------
// Constants

// DefaultTimeout is the default timeout for the handshake and write operations.
const DefaultTimeout = 30 * time.Second

// --------------------------------------------------------------------------------
// Types

// Dialer configures and constructs Transports.
//
// All fields are optional; unset values fall back to defaults.
type Dialer struct {
	Proxy             func(*http.Request) (*url.URL, error) // Proxy routing function; nil disables proxy.
	TLSClientConfig   *tls.Config                           // TLS settings for wss://; nil uses system defaults.
	Timeout           time.Duration                         // Timeout for handshake and write operations.
	Header            http.Header                           // HTTP headers for the connection handshake.
	Subprotocols      []string                              // Supported subprotocols; nil for none.
	EnableCompression bool                                  // Enables RFC 7692 per-message compression if true.
	ReadLimit         int64                                 // Max message size in bytes; 0 for no limit.
	Logger            logger.Interface                      // Logger instance; nil discards logs.
}

// DefaultDialer is a Dialer with default settings.
var DefaultDialer = &Dialer{Timeout: DefaultTimeout}

var _ evsock.Dialer = (*Dialer)(nil)

// Transport is a single WebSocket connection exposing the four raw event
// kinds (open, message, error, close) to subscribers.
//
// The handshake runs in the background once Start is called: subscribers
// registered between Dial and Start never miss the open event. Sending is
// safe for concurrent use.
type Transport struct {
	url       string
	dialer    *websocket.Dialer
	header    http.Header
	timeout   time.Duration
	readLimit int64
	logger    logger.Interface

	ctx    context.Context
	cancel context.CancelFunc

	connMu  sync.RWMutex // Protects connection state (conn, started, closed).
	conn    *websocket.Conn
	started bool
	closed  bool

	sendMu sync.Mutex // Ensures thread-safe message sending.

	subMu sync.RWMutex
	subs  map[evsock.EventKind]map[uuid.UUID]evsock.EventFunc
}

var _ evsock.Transport = (*Transport)(nil)

// --------------------------------------------------------------------------------
// Dialing

// Dial validates the endpoint and returns an unstarted Transport.
//
// Only URL validation happens here; the handshake itself runs after Start and
// reports failures as error and close events. A malformed or non-WebSocket
// URL fails with a *evsock.ConnectError.
func (d *Dialer) Dial(ctx context.Context, endpoint string) (evsock.Transport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &evsock.ConnectError{URL: endpoint, Err: err}
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, &evsock.ConnectError{
			URL: endpoint,
			Err: fmt.Errorf("unsupported scheme %q", u.Scheme),
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	l := d.Logger
	if l == nil {
		l = logger.Nop()
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tctx, cancel := context.WithCancel(ctx)

	return &Transport{
		url: u.String(),
		dialer: &websocket.Dialer{
			Proxy:             d.Proxy,
			TLSClientConfig:   d.TLSClientConfig,
			HandshakeTimeout:  timeout,
			Subprotocols:      d.Subprotocols,
			EnableCompression: d.EnableCompression,
		},
		header:    d.Header,
		timeout:   timeout,
		readLimit: d.ReadLimit,
		logger:    l,
		ctx:       tctx,
		cancel:    cancel,
		subs:      make(map[evsock.EventKind]map[uuid.UUID]evsock.EventFunc),
	}, nil
}

// --------------------------------------------------------------------------------
// Transport Lifecycle

// Start begins the handshake and event dispatch in the background. Calling
// Start again, or after Close, is a no-op.
func (t *Transport) Start() {
	t.connMu.Lock()

	if t.started || t.closed {
		t.connMu.Unlock()

		return
	}

	t.started = true
	t.connMu.Unlock()

	go t.run()
}

// Close tears the connection down. It attempts a close handshake, then closes
// the underlying connection. Safe to call more than once, including from
// inside an event callback.
func (t *Transport) Close() error {
	t.connMu.Lock()

	if t.closed {
		t.connMu.Unlock()

		return nil
	}

	t.closed = true
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()

	t.cancel()

	if conn == nil {
		return nil
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(t.timeout)); err != nil {
		t.logger.Warn("failed to send close message: %v", err)
	}

	if err := conn.Close(); err != nil {
		return fmt.Errorf("connection close failed: %w", err)
	}

	return nil
}

// --------------------------------------------------------------------------------
// Subscriptions

// subscription is a registered callback token. Unsubscribing twice, or after
// the transport has been torn down, is safe.
type subscription struct {
	t    *Transport
	kind evsock.EventKind
	id   uuid.UUID
}

func (s *subscription) Unsubscribe() {
	s.t.subMu.Lock()
	defer s.t.subMu.Unlock()

	if m := s.t.subs[s.kind]; m != nil {
		delete(m, s.id)
	}
}

// Subscribe registers fn for events of the given kind and returns its token.
func (t *Transport) Subscribe(kind evsock.EventKind, fn evsock.EventFunc) evsock.Subscription {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	m := t.subs[kind]
	if m == nil {
		m = make(map[uuid.UUID]evsock.EventFunc)
		t.subs[kind] = m
	}

	id := uuid.New()
	m[id] = fn

	return &subscription{t: t, kind: kind, id: id}
}

// --------------------------------------------------------------------------------
// Sending

// SendText transmits a text frame.
func (t *Transport) SendText(msg string) error {
	return t.send(websocket.TextMessage, []byte(msg))
}

// SendBinary transmits a binary frame.
func (t *Transport) SendBinary(p []byte) error {
	return t.send(websocket.BinaryMessage, p)
}

// send transmits a message of the specified type over the connection.
func (t *Transport) send(msgType int, data []byte) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	conn := t.connection()
	if conn == nil {
		if t.isClosed() {
			return evsock.ErrTransportClosed
		}

		return evsock.ErrNotConnected
	}

	if err := conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return fmt.Errorf("set write deadline failed: %w", err)
	}

	if err := conn.WriteMessage(msgType, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	return nil
}

// --------------------------------------------------------------------------------
// Event Dispatch (Private)

// run performs the handshake and then pumps inbound frames as events until
// the connection terminates.
func (t *Transport) run() {
	conn, resp, err := t.dialer.DialContext(t.ctx, t.url, t.header)
	if err != nil {
		if t.ctx.Err() != nil {
			return // local teardown
		}

		if resp != nil {
			t.logger.Error("handshake response: %d %s", resp.StatusCode, resp.Status)
		}

		t.logger.Error("dial %s failed: %v", t.url, err)
		t.emit(evsock.Event{Kind: evsock.EventError, Err: fmt.Errorf("dial failed: %w", err)})
		t.emit(evsock.Event{
			Kind:   evsock.EventClose,
			Code:   websocket.CloseAbnormalClosure,
			Reason: err.Error(),
		})

		return
	}

	t.connMu.Lock()
	if t.closed {
		t.connMu.Unlock()
		_ = conn.Close()

		return
	}
	t.conn = conn
	t.connMu.Unlock()

	if t.readLimit > 0 {
		conn.SetReadLimit(t.readLimit)
	}

	t.logger.Info("connected to %s", t.url)
	t.emit(evsock.Event{Kind: evsock.EventOpen})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.emitTermination(err)

			return
		}

		switch msgType {
		case websocket.TextMessage:
			t.emit(evsock.Event{
				Kind:  evsock.EventMessage,
				Frame: evsock.Frame{Type: evsock.FrameText, Data: data},
			})
		case websocket.BinaryMessage:
			t.emit(evsock.Event{
				Kind:  evsock.EventMessage,
				Frame: evsock.Frame{Type: evsock.FrameBinary, Data: data},
			})
		}
	}
}

// emitTermination translates a read failure into close (and possibly error)
// events. A received close frame with a normal or going-away code is a clean
// close carrying the peer's reason; everything else is unclean.
func (t *Transport) emitTermination(err error) {
	if t.ctx.Err() != nil || t.isClosed() {
		return // local teardown, subscriptions are being released
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		clean := ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway

		t.logger.Info("connection closed: %d - %s", ce.Code, ce.Text)
		t.emit(evsock.Event{
			Kind:   evsock.EventClose,
			Code:   ce.Code,
			Reason: ce.Text,
			Clean:  clean,
		})

		return
	}

	t.logger.Error("read failed: %v", err)
	t.emit(evsock.Event{Kind: evsock.EventError, Err: fmt.Errorf("read failed: %w", err)})
	t.emit(evsock.Event{
		Kind:   evsock.EventClose,
		Code:   websocket.CloseAbnormalClosure,
		Reason: err.Error(),
	})
}

// emit delivers ev to every subscriber of its kind, synchronously, on the
// dispatch goroutine.
func (t *Transport) emit(ev evsock.Event) {
	t.subMu.RLock()
	fns := make([]evsock.EventFunc, 0, len(t.subs[ev.Kind]))
	for _, fn := range t.subs[ev.Kind] {
		fns = append(fns, fn)
	}
	t.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// --------------------------------------------------------------------------------
// Utilities (Private)

// connection returns the current connection with read safety.
func (t *Transport) connection() *websocket.Conn {
	t.connMu.RLock()
	defer t.connMu.RUnlock()

	return t.conn
}

// isClosed reports whether Close has been called.
func (t *Transport) isClosed() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()

	return t.closed
}
