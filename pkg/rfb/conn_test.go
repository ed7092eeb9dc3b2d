package rfb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeProxy serves a websockify-like endpoint that sends frames and then
// waits for the client to close.
func fakeProxy(t *testing.T, frames ...func(*websocket.Conn) error) string {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for _, f := range frames {
			if err := f(ws); err != nil {
				return
			}
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func binary(b string) func(*websocket.Conn) error {
	return func(ws *websocket.Conn) error {
		return ws.WriteMessage(websocket.BinaryMessage, []byte(b))
	}
}

func text(s string) func(*websocket.Conn) error {
	return func(ws *websocket.Conn) error {
		return ws.WriteMessage(websocket.TextMessage, []byte(s))
	}
}

func ctxTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestConnEvents(t *testing.T) {
	// The banner arrives split across two frames.
	url := fakeProxy(t, binary("RFB 003"), binary(".008\n"))

	c := NewConn(url, Options{})

	var mu sync.Mutex
	var events []string
	var detail DisconnectDetail
	record := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Type)
		if d, ok := e.Detail.(DisconnectDetail); ok {
			detail = d
		}
	}
	for _, name := range []string{EventConnect, EventServerVersion, EventDisconnect} {
		c.AddEventListener(name, record)
	}

	ctx := ctxTimeout(t)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	version, err := c.ServerVersion(ctx)
	if err != nil {
		t.Fatalf("ServerVersion: %v", err)
	}
	if version != "RFB 003.008" {
		t.Errorf("version = %q", version)
	}

	c.Disconnect()
	c.Disconnect()
	select {
	case <-c.Done():
	case <-ctx.Done():
		t.Fatal("session did not end")
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(events, ",") != "connect,serverversion,disconnect" {
		t.Errorf("events = %v", events)
	}
	if !detail.Clean {
		t.Errorf("disconnect detail = %+v, want clean", detail)
	}
}

func TestConnProxyError(t *testing.T) {
	url := fakeProxy(t, text("dialing fail: connection refused"))

	c, err := Dial(ctxTimeout(t), url, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	_, err = c.ServerVersion(ctxTimeout(t))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("ServerVersion() = %v", err)
	}
}

func TestConnBadBanner(t *testing.T) {
	url := fakeProxy(t, binary("HTTP/1.1 200\n"))

	c, err := Dial(ctxTimeout(t), url, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	if _, err := c.ServerVersion(ctxTimeout(t)); !errors.Is(err, ErrBadBanner) {
		t.Errorf("ServerVersion() = %v, want ErrBadBanner", err)
	}
}

func TestConnServerCloses(t *testing.T) {
	closeNow := func(ws *websocket.Conn) error {
		ws.Close()
		return errors.New("closed")
	}
	url := fakeProxy(t, closeNow)

	c := NewConn(url, Options{})
	gotDisconnect := make(chan DisconnectDetail, 1)
	c.AddEventListener(EventDisconnect, func(e Event) {
		gotDisconnect <- e.Detail.(DisconnectDetail)
	})
	if err := c.Connect(ctxTimeout(t)); err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-gotDisconnect:
		if d.Clean || d.Err == nil {
			t.Errorf("detail = %+v, want unclean with error", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect event")
	}

	if _, err := c.ServerVersion(ctxTimeout(t)); !errors.Is(err, ErrClosed) {
		t.Errorf("ServerVersion() = %v, want ErrClosed", err)
	}
}

func TestConnDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(ctxTimeout(t), "ws"+strings.TrimPrefix(srv.URL, "http"), Options{})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Dial() = %v, want status 404 error", err)
	}
}

func TestConnConnectTwice(t *testing.T) {
	url := fakeProxy(t, binary("RFB 003.008\n"))
	ctx := ctxTimeout(t)

	c := NewConn(url, Options{})
	defer c.Disconnect()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Connect(ctx); !errors.Is(err, ErrConnected) {
		t.Fatalf("second Connect = %v, want ErrConnected", err)
	}
	if _, err := c.ServerVersion(ctx); err != nil {
		t.Fatalf("ServerVersion: %v", err)
	}
}

func TestConnRetryAfterDialFailure(t *testing.T) {
	var up atomic.Bool
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteMessage(websocket.BinaryMessage, []byte("RFB 003.008\n"))
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx := ctxTimeout(t)
	c := NewConn("ws"+strings.TrimPrefix(srv.URL, "http"), Options{})
	defer c.Disconnect()
	if err := c.Connect(ctx); err == nil {
		t.Fatal("Connect should fail while the endpoint refuses upgrades")
	}
	up.Store(true)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("retry Connect: %v", err)
	}
	if v, err := c.ServerVersion(ctx); err != nil || v != "RFB 003.008" {
		t.Errorf("ServerVersion = %q, %v", v, err)
	}
}

func TestConnViewportScale(t *testing.T) {
	c := NewConn("ws://unused", Options{})
	if c.ViewportScale() != 1 {
		t.Errorf("default scale = %v", c.ViewportScale())
	}
	c.SetViewportScale(0.5)
	c.SetViewportScale(-1)
	if c.ViewportScale() != 0.5 {
		t.Errorf("scale = %v, want 0.5", c.ViewportScale())
	}

	// Disconnect before Connect is allowed and ends the session.
	c.Disconnect()
	select {
	case <-c.Done():
	default:
		t.Error("Done not closed")
	}
	if err := c.Connect(context.Background()); err == nil {
		t.Error("Connect after Disconnect should fail")
	}
}

func TestWebSocketFactoryWithSessions(t *testing.T) {
	url := fakeProxy(t, binary("RFB 003.008\n"))
	s := NewSessions(WebSocketFactory(ctxTimeout(t)))

	client, _, err := s.Mount("vnc", "screen", url, Options{Shared: true})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	conn := client.(*Conn)
	if v, err := conn.ServerVersion(ctxTimeout(t)); err != nil || v != "RFB 003.008" {
		t.Errorf("ServerVersion() = %q, %v", v, err)
	}

	s.Unmount("vnc")
	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("unmount did not disconnect")
	}
}
