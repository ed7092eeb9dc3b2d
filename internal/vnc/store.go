package vnc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultName is the name of the entry created on first load.
const DefaultName = "本地服务器"

// DefaultPort is the VNC port used for the default entry.
const DefaultPort = "5900"

var (
	ErrInvalidIndex      = errors.New("vnc: invalid connection index")
	ErrInvalidConnection = errors.New("vnc: connection needs a name and url")
)

// Connection is a saved VNC server.
type Connection struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Password string `json:"password,omitempty"`
}

// Validate checks that the required fields are set.
func (c Connection) Validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.URL) == "" {
		return ErrInvalidConnection
	}
	return nil
}

// Store reads and writes the connection list. All methods are safe for
// concurrent use; every call re-reads the file so edits made by hand are
// picked up.
type Store struct {
	mu     sync.Mutex
	path   string
	hostIP func() string
	logger *slog.Logger
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		hostIP: LocalIPv4,
		logger: slog.Default().With("component", "vnc"),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// List returns the saved connections, creating the default list when the
// file does not exist yet.
func (s *Store) List() ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add appends a connection.
func (s *Store) Add(c Connection) (Connection, error) {
	if err := c.Validate(); err != nil {
		return Connection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.load()
	if err != nil {
		return Connection{}, err
	}
	if err := s.save(append(conns, c)); err != nil {
		return Connection{}, err
	}
	return c, nil
}

// Update replaces the connection at index.
func (s *Store) Update(index int, c Connection) (Connection, error) {
	if err := c.Validate(); err != nil {
		return Connection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.load()
	if err != nil {
		return Connection{}, err
	}
	if index < 0 || index >= len(conns) {
		return Connection{}, ErrInvalidIndex
	}
	conns[index] = c
	if err := s.save(conns); err != nil {
		return Connection{}, err
	}
	return c, nil
}

// Delete removes the connection at index.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.load()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(conns) {
		return ErrInvalidIndex
	}
	return s.save(append(conns[:index], conns[index+1:]...))
}

func (s *Store) load() ([]Connection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		conns := []Connection{{
			Name: DefaultName,
			URL:  net.JoinHostPort(s.hostIP(), DefaultPort),
		}}
		if err := s.save(conns); err != nil {
			return nil, err
		}
		s.logger.Info("created default vnc connections", "path", s.path, "url", conns[0].URL)
		return conns, nil
	}
	if err != nil {
		return nil, err
	}

	var conns []Connection
	if err := json.Unmarshal(data, &conns); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if conns == nil {
		conns = []Connection{}
	}
	return conns, nil
}

// save writes through a temporary file so a crash never leaves a truncated
// list behind.
func (s *Store) save(conns []Connection) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(conns, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// LocalIPv4 returns the first non-loopback IPv4 address of the host, or
// "localhost" when there is none.
func LocalIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "localhost"
}
