package rfb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// bannerLen is the length of "RFB 003.008\n".
const bannerLen = 12

// Errors reported by Conn.
var (
	ErrNotConnected = errors.New("rfb: not connected")
	ErrBadBanner    = errors.New("rfb: malformed server banner")
	ErrClosed       = errors.New("rfb: connection closed before banner")
	ErrConnected    = errors.New("rfb: already connected")
)

// DisconnectDetail is the Detail of a disconnect event.
type DisconnectDetail struct {
	// Clean is true when the session ended through Disconnect or a normal
	// close frame.
	Clean bool

	// Err is the read error that ended an unclean session.
	Err error
}

// Conn is a Client speaking to a websockify endpoint. It reads the server's
// version banner and then drains the stream until either side closes.
type Conn struct {
	endpoint string
	opts     Options
	logger   *slog.Logger

	mu        sync.Mutex
	listeners map[string][]Listener
	scale     float64
	ws        *websocket.Conn

	started   atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	versionOnce  sync.Once
	versionReady chan struct{}
	version      string
	versionErr   error
}

// NewConn returns an unconnected client for endpoint.
func NewConn(endpoint string, opts Options) *Conn {
	return &Conn{
		endpoint:     endpoint,
		opts:         opts,
		logger:       slog.Default().With("component", "rfb", "endpoint", endpoint),
		listeners:    make(map[string][]Listener),
		scale:        1,
		done:         make(chan struct{}),
		versionReady: make(chan struct{}),
	}
}

// Dial connects a new client to endpoint.
func Dial(ctx context.Context, endpoint string, opts Options) (*Conn, error) {
	c := NewConn(endpoint, opts)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// WebSocketFactory returns a Factory that dials endpoints with Dial. The
// container argument is recorded for logging only.
func WebSocketFactory(ctx context.Context) Factory {
	return func(container, endpoint string, opts Options) (Client, error) {
		c := NewConn(endpoint, opts)
		c.logger = c.logger.With("container", container)
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Connect opens the WebSocket and starts reading. Listeners registered
// before Connect receive the connect event. A Conn connects at most once;
// only a failed dial may be retried.
func (c *Conn) Connect(ctx context.Context) error {
	if c.closing.Load() {
		return ErrNotConnected
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrConnected
	}
	base := c.opts.Dialer
	if base == nil {
		base = websocket.DefaultDialer
	}
	dialer := *base
	dialer.Subprotocols = []string{Subprotocol}

	ws, resp, err := dialer.DialContext(ctx, c.endpoint, c.opts.Header)
	if err != nil {
		c.started.Store(false)
		if resp != nil {
			return fmt.Errorf("rfb: dial %s: %w (status %d)", c.endpoint, err, resp.StatusCode)
		}
		return fmt.Errorf("rfb: dial %s: %w", c.endpoint, err)
	}

	c.mu.Lock()
	if c.closing.Load() {
		c.mu.Unlock()
		ws.Close()
		return ErrNotConnected
	}
	c.ws = ws
	c.mu.Unlock()

	c.logger.Debug("connected", "subprotocol", ws.Subprotocol())
	c.emit(Event{Type: EventConnect})

	go c.readLoop(ws)
	return nil
}

// AddEventListener implements Client.
func (c *Conn) AddEventListener(event string, fn Listener) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[event] = append(c.listeners[event], fn)
}

// SetViewportScale implements Client. Non-positive scales are ignored.
func (c *Conn) SetViewportScale(scale float64) {
	if scale <= 0 {
		c.logger.Warn("ignoring viewport scale", "scale", scale, "error", ErrInvalidScale)
		return
	}
	c.mu.Lock()
	c.scale = scale
	c.mu.Unlock()
}

// ViewportScale returns the current viewport scale.
func (c *Conn) ViewportScale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// Disconnect implements Client.
func (c *Conn) Disconnect() {
	c.closeOnce.Do(func() {
		c.closing.Store(true)

		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws == nil {
			close(c.done)
			return
		}

		ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		ws.Close()
	})
}

// Done is closed once the session has ended.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// ServerVersion waits for the server banner, e.g. "RFB 003.008".
func (c *Conn) ServerVersion(ctx context.Context) (string, error) {
	select {
	case <-c.versionReady:
		return c.version, c.versionErr
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	defer close(c.done)

	var banner []byte
	for {
		mt, msg, err := ws.ReadMessage()
		if err != nil {
			clean := c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure)
			detail := DisconnectDetail{Clean: clean}
			if !clean {
				detail.Err = err
				c.logger.Warn("session ended", "error", err)
			}
			c.setVersion("", ErrClosed)
			c.emit(Event{Type: EventDisconnect, Detail: detail})
			return
		}

		select {
		case <-c.versionReady:
			continue
		default:
		}

		if mt == websocket.TextMessage {
			// websockify reports proxy failures as text frames.
			c.setVersion("", fmt.Errorf("rfb: proxy: %s", msg))
			continue
		}

		banner = append(banner, msg...)
		i := bytes.IndexByte(banner, '\n')
		if i < 0 && len(banner) < bannerLen {
			continue
		}
		if i < 0 {
			i = bannerLen
		}
		version := strings.TrimSpace(string(banner[:i]))
		if !strings.HasPrefix(version, "RFB ") {
			c.setVersion("", fmt.Errorf("%w: %q", ErrBadBanner, version))
			continue
		}
		c.setVersion(version, nil)
		c.emit(Event{Type: EventServerVersion, Detail: version})
	}
}

func (c *Conn) setVersion(version string, err error) {
	c.versionOnce.Do(func() {
		c.version = version
		c.versionErr = err
		close(c.versionReady)
	})
}

func (c *Conn) emit(e Event) {
	c.mu.Lock()
	fns := append([]Listener(nil), c.listeners[e.Type]...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
