package websockify

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// tcpServer accepts one connection at a time, writes banner and echoes.
func tcpServer(t *testing.T, banner string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				if banner != "" {
					c.Write([]byte(banner))
				}
				io.Copy(c, c)
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func newTestProxy(t *testing.T, cfg Config) (*Proxy, *prometheus.Registry, string) {
	t.Helper()
	reg := prometheus.NewRegistry()
	p := New(cfg, WithRegistry(reg))
	srv := httptest.NewServer(p)
	t.Cleanup(func() {
		p.Close()
		srv.Close()
	})
	return p, reg, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	d := websocket.Dialer{Subprotocols: []string{Subprotocol}, HandshakeTimeout: 2 * time.Second}
	return d.Dial(url, nil)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProxyRelays(t *testing.T) {
	target := tcpServer(t, "RFB 003.008\n")
	p, _, url := newTestProxy(t, Config{DefaultTarget: target})

	ws, resp, err := dial(t, url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	if resp.Header.Get("Sec-WebSocket-Protocol") != Subprotocol {
		t.Errorf("subprotocol = %q", resp.Header.Get("Sec-WebSocket-Protocol"))
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if mt != websocket.BinaryMessage || string(msg) != "RFB 003.008\n" {
		t.Errorf("banner = %d %q", mt, msg)
	}

	if err := ws.WriteMessage(websocket.BinaryMessage, []byte("RFB 003.008\n")); err != nil {
		t.Fatal(err)
	}
	_, echo, err := ws.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(echo) != "RFB 003.008\n" {
		t.Errorf("echo = %q", echo)
	}

	if p.Active() != 1 {
		t.Errorf("Active() = %d, want 1", p.Active())
	}
	waitFor(t, func() bool {
		return counterValue(t, p.metrics.bytesTotal.WithLabelValues(Upstream)) == 12
	})
	waitFor(t, func() bool {
		return counterValue(t, p.metrics.bytesTotal.WithLabelValues(Downstream)) == 24
	})
}

func TestProxyCustomTarget(t *testing.T) {
	target := tcpServer(t, "hello")
	_, _, url := newTestProxy(t, Config{DefaultTarget: "127.0.0.1:1", AllowCustomTarget: true})

	ws, _, err := dial(t, url+"?host="+target)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil || string(msg) != "hello" {
		t.Errorf("ReadMessage = %q, %v", msg, err)
	}
}

func TestProxyRejects(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		query  string
		status int
	}{
		{"custom target disabled", Config{DefaultTarget: "127.0.0.1:5900"}, "?host=10.0.0.1:5900", http.StatusForbidden},
		{"missing port", Config{AllowCustomTarget: true}, "?host=10.0.0.1", http.StatusBadRequest},
		{"unreachable", Config{DefaultTarget: "127.0.0.1:1", DialTimeout: time.Second}, "", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, url := newTestProxy(t, tt.cfg)
			_, resp, err := dial(t, url+tt.query)
			if err == nil {
				t.Fatal("expected handshake failure")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Fatalf("resp = %v, want status %d", resp, tt.status)
			}
			if p.Active() != 0 {
				t.Error("rejected request left a session")
			}
		})
	}
}

func TestProxyDialFailureMetric(t *testing.T) {
	boom := errors.New("refused")
	p, _, url := newTestProxy(t, Config{
		Dial: func(context.Context, string, string) (net.Conn, error) { return nil, boom },
	})

	if _, _, err := dial(t, url); err == nil {
		t.Fatal("expected failure")
	}
	if got := counterValue(t, p.metrics.dialFailures); got != 1 {
		t.Errorf("dial_failures_total = %v, want 1", got)
	}
}

func TestProxyPlainHTTP(t *testing.T) {
	var gotErr error
	reg := prometheus.NewRegistry()
	p := New(Config{}, WithRegistry(reg), WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, status int, err error) {
		gotErr = err
		w.WriteHeader(status)
	}))

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/websockify", nil))
	if rec.Code != http.StatusBadRequest || !errors.Is(gotErr, ErrNotWebSocket) {
		t.Errorf("status = %d err = %v", rec.Code, gotErr)
	}
}

func TestProxyTeardownOnTargetClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	p, _, url := newTestProxy(t, Config{DefaultTarget: ln.Addr().String()})
	ws, _, err := dial(t, url)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage error = %v, want normal close", err)
	}
	waitFor(t, func() bool { return p.Active() == 0 })
	if got := gaugeValue(t, p.metrics.activeSessions); got != 0 {
		t.Errorf("active_sessions = %v", got)
	}
	if got := counterValue(t, p.metrics.sessionsTotal); got != 1 {
		t.Errorf("sessions_total = %v", got)
	}
}

func TestProxyHeartbeat(t *testing.T) {
	target := tcpServer(t, "")
	_, _, url := newTestProxy(t, Config{DefaultTarget: target, HeartbeatInterval: 20 * time.Millisecond})

	ws, _, err := dial(t, url)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	pinged := make(chan struct{}, 1)
	ws.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}

func TestProxyClose(t *testing.T) {
	target := tcpServer(t, "")
	p, _, url := newTestProxy(t, Config{DefaultTarget: target})

	ws, _, err := dial(t, url)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	waitFor(t, func() bool { return p.Active() == 1 })

	p.Close()
	if p.Active() != 0 {
		t.Errorf("Active() = %d after Close", p.Active())
	}
}

func TestTarget(t *testing.T) {
	p := New(Config{DefaultTarget: "localhost:5900"}, WithRegistry(prometheus.NewRegistry()))

	r := httptest.NewRequest(http.MethodGet, "/websockify", nil)
	if got, err := p.Target(r); err != nil || got != "localhost:5900" {
		t.Errorf("Target() = %q, %v", got, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/websockify?host=localhost:5900", nil)
	if got, err := p.Target(r); err != nil || got != "localhost:5900" {
		t.Errorf("Target(default explicitly) = %q, %v", got, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/websockify?host=evil:22", nil)
	if _, err := p.Target(r); !errors.Is(err, ErrCustomTarget) {
		t.Errorf("Target(custom) = %v, want ErrCustomTarget", err)
	}
}
