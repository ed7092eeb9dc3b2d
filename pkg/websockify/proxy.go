package websockify

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// Subprotocol is the WebSocket sub-protocol negotiated with clients.
const Subprotocol = "binary"

// Request errors passed to the ErrorHandler.
var (
	ErrInvalidTarget = errors.New("websockify: invalid target address")
	ErrCustomTarget  = errors.New("websockify: custom targets are disabled")
	ErrDial          = errors.New("websockify: dial failed")
	ErrNotWebSocket  = errors.New("websockify: not a websocket request")
)

// ErrorHandler writes the HTTP response for a request that failed before
// the upgrade.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, err error)

// Option configures a Proxy.
type Option func(*Proxy)

// WithRegistry registers the proxy metrics with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(p *Proxy) {
		p.registry = reg
	}
}

// WithLogger sets the proxy logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Proxy) {
		p.logger = l
	}
}

// WithErrorHandler replaces the default plain-text error responses.
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Proxy) {
		p.onError = h
	}
}

// Proxy is an http.Handler relaying WebSocket sessions to TCP targets.
type Proxy struct {
	config   Config
	upgrader websocket.Upgrader
	registry prometheus.Registerer
	metrics  *metrics
	logger   *slog.Logger
	onError  ErrorHandler

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

// New creates a proxy. Metrics are registered with prometheus.DefaultRegisterer
// unless WithRegistry is given.
func New(cfg Config, opts ...Option) *Proxy {
	cfg = cfg.withDefaults()
	p := &Proxy{
		config:   cfg,
		registry: prometheus.DefaultRegisterer,
		logger:   slog.Default().With("component", "websockify"),
		onError: func(w http.ResponseWriter, _ *http.Request, status int, err error) {
			http.Error(w, err.Error(), status)
		},
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.metrics = newMetrics(p.registry)
	p.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.BufferSize,
		WriteBufferSize: cfg.BufferSize,
		CheckOrigin:     cfg.CheckOrigin,
		Subprotocols:    []string{Subprotocol},
	}
	return p
}

// Target returns the TCP address the request should be relayed to.
func (p *Proxy) Target(r *http.Request) (string, error) {
	addr := r.URL.Query().Get("host")
	if addr == "" {
		addr = p.config.DefaultTarget
	} else if !p.config.AllowCustomTarget && addr != p.config.DefaultTarget {
		return "", ErrCustomTarget
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" || port == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, addr)
	}
	return addr, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		p.onError(w, r, http.StatusBadRequest, ErrNotWebSocket)
		return
	}

	target, err := p.Target(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrCustomTarget) {
			status = http.StatusForbidden
		}
		p.logger.Warn("rejected target", "host", r.URL.Query().Get("host"), "error", err)
		p.onError(w, r, status, err)
		return
	}

	tcp, err := p.config.Dial(r.Context(), "tcp", target)
	if err != nil {
		p.metrics.dialFailures.Inc()
		p.logger.Warn("dial failed", "target", target, "error", err)
		p.onError(w, r, http.StatusBadGateway, fmt.Errorf("%w: %s: %v", ErrDial, target, err))
		return
	}

	ws, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request.
		tcp.Close()
		p.logger.Warn("upgrade failed", "target", target, "error", err)
		return
	}

	s := &session{
		id:     uuid.NewString(),
		target: target,
		ws:     ws,
		tcp:    tcp,
		proxy:  p,
		done:   make(chan struct{}),
		start:  time.Now(),
	}
	p.track(s)
	p.logger.Info("session opened", "session", s.id, "target", target, "remote", r.RemoteAddr)
	s.run()
}

// Active returns the number of open sessions.
func (p *Proxy) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Close tears down every open session and waits for their pumps to stop.
func (p *Proxy) Close() {
	p.mu.Lock()
	open := make([]*session, 0, len(p.sessions))
	for _, s := range p.sessions {
		open = append(open, s)
	}
	p.mu.Unlock()

	for _, s := range open {
		s.teardown("proxy closed")
	}
	p.wg.Wait()
}

func (p *Proxy) track(s *session) {
	p.mu.Lock()
	p.sessions[s.id] = s
	p.mu.Unlock()
	p.wg.Add(1)
	p.metrics.activeSessions.Inc()
	p.metrics.sessionsTotal.Inc()
}

func (p *Proxy) untrack(s *session) {
	p.mu.Lock()
	delete(p.sessions, s.id)
	p.mu.Unlock()
	p.metrics.activeSessions.Dec()
	p.wg.Done()
}
