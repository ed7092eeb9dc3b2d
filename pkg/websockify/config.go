package websockify

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Config configures a Proxy.
type Config struct {
	// DefaultTarget is used when the request names no host.
	DefaultTarget string

	// AllowCustomTarget lets clients choose the target with ?host=.
	AllowCustomTarget bool

	// BufferSize is the TCP read buffer and WebSocket buffer size.
	BufferSize int

	// DialTimeout bounds the TCP connect. Zero means no timeout.
	DialTimeout time.Duration

	// ReadTimeout is how long the WebSocket may stay silent. Pongs count
	// as traffic. Zero disables the deadline.
	ReadTimeout time.Duration

	// WriteTimeout bounds each WebSocket write. Zero disables it.
	WriteTimeout time.Duration

	// HeartbeatInterval is the ping interval. Zero disables pings.
	HeartbeatInterval time.Duration

	// CheckOrigin validates the handshake origin. Nil accepts all origins.
	CheckOrigin func(r *http.Request) bool

	// Dial opens the TCP connection. Nil uses net.Dialer.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// DefaultConfig returns the default proxy configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTarget:     "localhost:5900",
		AllowCustomTarget: true,
		BufferSize:        65536,
		DialTimeout:       10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultTarget == "" {
		c.DefaultTarget = d.DefaultTarget
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
	if c.Dial == nil {
		dialer := &net.Dialer{Timeout: c.DialTimeout}
		c.Dial = dialer.DialContext
	}
	return c
}
