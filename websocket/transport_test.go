// Package websocket_test exercises the gorilla-backed transport against a
// real in-process WebSocket server.
package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qntx/evsock"
	"github.com/qntx/evsock/logger"
	"github.com/qntx/evsock/websocket"
)

// --------------------------------------------------------------------------------
// Constants

const eventTimeout = 5 * time.Second

// --------------------------------------------------------------------------------
// Helpers

var upgrader = gorilla.Upgrader{}

// testContext mirrors Go 1.24's (*testing.T).Context: a context canceled at cleanup.
func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}

// echoServer upgrades each request and echoes data frames back. A text frame
// reading "bye" triggers a clean close handshake with reason "bye"; if
// dropConn is set, the server instead severs the TCP connection without a
// close frame on the first frame received.
func echoServer(t *testing.T, dropConn bool) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		for {
			mt, p, err := conn.ReadMessage()
			if err != nil {
				return
			}

			if dropConn {
				_ = conn.UnderlyingConn().Close()

				return
			}

			if mt == gorilla.TextMessage && string(p) == "bye" {
				deadline := time.Now().Add(time.Second)
				_ = conn.WriteControl(gorilla.CloseMessage,
					gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "bye"), deadline)

				// Wait for the peer's close response before tearing down.
				_, _, _ = conn.ReadMessage()

				return
			}

			if err := conn.WriteMessage(mt, p); err != nil {
				return
			}
		}
	}))

	t.Cleanup(srv.Close)

	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// dialAll dials the server and funnels every event kind into one channel.
func dialAll(t *testing.T, endpoint string) (evsock.Transport, <-chan evsock.Event) {
	t.Helper()

	d := &websocket.Dialer{Timeout: eventTimeout, Logger: logger.Nop()}

	tr, err := d.Dial(testContext(t), endpoint)
	require.NoError(t, err)

	t.Cleanup(func() { _ = tr.Close() })

	events := make(chan evsock.Event, 16)
	for _, kind := range []evsock.EventKind{
		evsock.EventOpen, evsock.EventMessage, evsock.EventError, evsock.EventClose,
	} {
		tr.Subscribe(kind, func(ev evsock.Event) { events <- ev })
	}

	return tr, events
}

func nextEvent(t *testing.T, events <-chan evsock.Event) evsock.Event {
	t.Helper()

	select {
	case ev := <-events:
		return ev
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for transport event")

		return evsock.Event{}
	}
}

// --------------------------------------------------------------------------------
// Tests

// TestDialRejectsInvalidEndpoints verifies that transport construction fails
// synchronously with a ConnectError for URLs that cannot name a WebSocket
// endpoint.
func TestDialRejectsInvalidEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
	}{
		{name: "MalformedURL", endpoint: "://nope"},
		{name: "HTTPScheme", endpoint: "http://example.test/socket"},
		{name: "NoScheme", endpoint: "example.test/socket"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := websocket.DefaultDialer.Dial(testContext(t), tt.endpoint)

			var ce *evsock.ConnectError

			require.Error(t, err)
			assert.ErrorAs(t, err, &ce)
		})
	}
}

// TestEchoSession drives a full session: open, text echo, binary echo, then
// a clean close carrying the server's reason.
func TestEchoSession(t *testing.T) {
	t.Parallel()

	srv := echoServer(t, false)
	tr, events := dialAll(t, wsURL(srv))

	tr.Start()

	ev := nextEvent(t, events)
	require.Equal(t, evsock.EventOpen, ev.Kind)

	require.NoError(t, tr.SendText("hello"))

	ev = nextEvent(t, events)
	require.Equal(t, evsock.EventMessage, ev.Kind)
	assert.Equal(t, evsock.FrameText, ev.Frame.Type)
	assert.Equal(t, "hello", string(ev.Frame.Data))

	require.NoError(t, tr.SendBinary([]byte{1, 2, 3}))

	ev = nextEvent(t, events)
	require.Equal(t, evsock.EventMessage, ev.Kind)
	assert.Equal(t, evsock.FrameBinary, ev.Frame.Type)
	assert.Equal(t, []byte{1, 2, 3}, ev.Frame.Data)

	require.NoError(t, tr.SendText("bye"))

	ev = nextEvent(t, events)
	require.Equal(t, evsock.EventClose, ev.Kind)
	assert.True(t, ev.Clean)
	assert.Equal(t, gorilla.CloseNormalClosure, ev.Code)
	assert.Equal(t, "bye", ev.Reason)
}

// TestSeveredConnectionEmitsErrorThenUncleanClose verifies that losing the
// connection without a close handshake produces an error event followed by
// an unclean close event.
func TestSeveredConnectionEmitsErrorThenUncleanClose(t *testing.T) {
	t.Parallel()

	srv := echoServer(t, true)
	tr, events := dialAll(t, wsURL(srv))

	tr.Start()

	ev := nextEvent(t, events)
	require.Equal(t, evsock.EventOpen, ev.Kind)

	require.NoError(t, tr.SendText("anything"))

	ev = nextEvent(t, events)
	require.Equal(t, evsock.EventError, ev.Kind)
	require.Error(t, ev.Err)

	ev = nextEvent(t, events)
	require.Equal(t, evsock.EventClose, ev.Kind)
	assert.False(t, ev.Clean)
	assert.Equal(t, gorilla.CloseAbnormalClosure, ev.Code)
}

// TestUnreachableServerEmitsErrorThenClose verifies a handshake failure
// surfaces as events, not as a construction error.
func TestUnreachableServerEmitsErrorThenClose(t *testing.T) {
	t.Parallel()

	d := &websocket.Dialer{Timeout: time.Second, Logger: logger.Nop()}

	tr, err := d.Dial(testContext(t), "ws://127.0.0.1:1/socket")
	require.NoError(t, err)

	t.Cleanup(func() { _ = tr.Close() })

	events := make(chan evsock.Event, 4)
	tr.Subscribe(evsock.EventError, func(ev evsock.Event) { events <- ev })
	tr.Subscribe(evsock.EventClose, func(ev evsock.Event) { events <- ev })

	tr.Start()

	ev := nextEvent(t, events)
	require.Equal(t, evsock.EventError, ev.Kind)

	ev = nextEvent(t, events)
	require.Equal(t, evsock.EventClose, ev.Kind)
	assert.False(t, ev.Clean)
}

// TestSendBeforeOpenFails verifies sends fail fast while no connection is
// established yet.
func TestSendBeforeOpenFails(t *testing.T) {
	t.Parallel()

	srv := echoServer(t, false)

	d := &websocket.Dialer{Timeout: eventTimeout, Logger: logger.Nop()}

	tr, err := d.Dial(testContext(t), wsURL(srv))
	require.NoError(t, err)

	t.Cleanup(func() { _ = tr.Close() })

	// Not started: no connection exists.
	assert.ErrorIs(t, tr.SendText("early"), evsock.ErrNotConnected)
}

// TestUnsubscribeAfterCloseIsSafe verifies tokens outlive the transport.
func TestUnsubscribeAfterCloseIsSafe(t *testing.T) {
	t.Parallel()

	srv := echoServer(t, false)
	tr, events := dialAll(t, wsURL(srv))

	tr.Start()

	ev := nextEvent(t, events)
	require.Equal(t, evsock.EventOpen, ev.Kind)

	sub := tr.Subscribe(evsock.EventMessage, func(evsock.Event) {})

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	sub.Unsubscribe()
	sub.Unsubscribe()
}

// TestLocalCloseEmitsNoEvents verifies local teardown does not masquerade as
// a remote close: after Close, no further events are dispatched.
func TestLocalCloseEmitsNoEvents(t *testing.T) {
	t.Parallel()

	srv := echoServer(t, false)
	tr, events := dialAll(t, wsURL(srv))

	tr.Start()

	ev := nextEvent(t, events)
	require.Equal(t, evsock.EventOpen, ev.Kind)

	require.NoError(t, tr.Close())

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after local close: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
