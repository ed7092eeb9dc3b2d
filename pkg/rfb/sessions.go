package rfb

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Sessions owns at most one client per view.
// It is safe for concurrent use.
type Sessions struct {
	factory Factory
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[string]*session
}

type session struct {
	id       string
	client   Client
	endpoint string
}

// NewSessions creates an empty session table that builds clients with factory.
func NewSessions(factory Factory) *Sessions {
	return &Sessions{
		factory: factory,
		logger:  slog.Default().With("component", "rfb"),
		clients: make(map[string]*session),
	}
}

// Mount creates a client for view. A client the view already owns is
// disconnected first. It returns the new client and its session id.
func (s *Sessions) Mount(view, container, endpoint string, opts Options) (Client, string, error) {
	s.mu.Lock()
	old := s.clients[view]
	delete(s.clients, view)
	s.mu.Unlock()

	if old != nil {
		old.client.Disconnect()
		s.logger.Info("session replaced", "view", view, "session", old.id)
	}

	c, err := s.factory(container, endpoint, opts)
	if err != nil {
		return nil, "", err
	}

	sess := &session{id: uuid.NewString(), client: c, endpoint: endpoint}

	s.mu.Lock()
	if prev := s.clients[view]; prev != nil {
		// A concurrent Mount won; keep the newest.
		defer prev.client.Disconnect()
	}
	s.clients[view] = sess
	s.mu.Unlock()

	s.logger.Info("session mounted", "view", view, "session", sess.id, "endpoint", endpoint)
	return c, sess.id, nil
}

// Client returns the client view owns, if any.
func (s *Sessions) Client(view string) (Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.clients[view]
	if !ok {
		return nil, false
	}
	return sess.client, true
}

// Unmount disconnects and forgets view's client. It reports whether a
// client was owned.
func (s *Sessions) Unmount(view string) bool {
	s.mu.Lock()
	sess := s.clients[view]
	delete(s.clients, view)
	s.mu.Unlock()

	if sess == nil {
		return false
	}
	sess.client.Disconnect()
	s.logger.Info("session unmounted", "view", view, "session", sess.id)
	return true
}

// Len returns the number of owned clients.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client.
func (s *Sessions) Close() {
	s.mu.Lock()
	all := s.clients
	s.clients = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.client.Disconnect()
	}
}
