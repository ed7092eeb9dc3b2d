package rfb

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

// Event names raised by clients.
const (
	EventConnect             = "connect"
	EventDisconnect          = "disconnect"
	EventServerVersion       = "serverversion"
	EventCredentialsRequired = "credentialsrequired"
	EventSecurityFailure     = "securityfailure"
	EventDesktopName         = "desktopname"
)

// Subprotocol is the WebSocket sub-protocol spoken to websockify.
const Subprotocol = "binary"

// ErrInvalidScale is returned for non-positive viewport scales.
var ErrInvalidScale = errors.New("rfb: viewport scale must be positive")

// Event is delivered to listeners.
type Event struct {
	Type   string
	Detail any
}

// Listener receives events.
type Listener func(Event)

// Client is a remote-framebuffer session.
type Client interface {
	// Disconnect ends the session. It is safe to call more than once.
	Disconnect()

	// SetViewportScale sets the scale applied to the remote framebuffer.
	SetViewportScale(scale float64)

	// AddEventListener subscribes fn to the named event.
	AddEventListener(event string, fn Listener)
}

// Credentials are offered when the server asks for authentication.
type Credentials struct {
	Password string
}

// Options configures a new client.
type Options struct {
	Credentials   *Credentials
	Shared        bool
	ClipViewport  bool
	ScaleViewport bool
	ResizeSession bool
	Encrypt       bool

	// Dialer overrides the WebSocket dialer used by Dial.
	Dialer *websocket.Dialer

	// Header is sent with the WebSocket handshake.
	Header http.Header
}

// Factory constructs a client bound to a display container and an endpoint.
type Factory func(container, endpoint string, opts Options) (Client, error)
