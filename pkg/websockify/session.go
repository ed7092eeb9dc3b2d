package websockify

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// session is one relayed connection.
type session struct {
	id     string
	target string
	ws     *websocket.Conn
	tcp    net.Conn
	proxy  *Proxy
	start  time.Time

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}

	up   atomic.Int64
	down atomic.Int64
}

// run starts the pumps and the heartbeat. It returns immediately.
func (s *session) run() {
	cfg := s.proxy.config
	if cfg.ReadTimeout > 0 {
		s.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		s.ws.SetPongHandler(func(string) error {
			return s.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		})
	}

	go s.upstream()
	go s.downstream()
	if cfg.HeartbeatInterval > 0 {
		go s.heartbeat(cfg.HeartbeatInterval)
	}
}

// upstream copies WebSocket messages to the TCP connection.
func (s *session) upstream() {
	defer s.teardown("client closed")

	timeout := s.proxy.config.ReadTimeout
	for {
		_, msg, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.proxy.logger.Debug("websocket read", "session", s.id, "error", err)
			}
			return
		}
		if timeout > 0 {
			s.ws.SetReadDeadline(time.Now().Add(timeout))
		}
		if _, err := s.tcp.Write(msg); err != nil {
			s.proxy.logger.Debug("tcp write", "session", s.id, "error", err)
			return
		}
		s.up.Add(int64(len(msg)))
		s.proxy.metrics.bytesTotal.WithLabelValues(Upstream).Add(float64(len(msg)))
	}
}

// downstream copies TCP reads to the WebSocket as binary messages.
func (s *session) downstream() {
	defer s.teardown("server closed")

	buf := make([]byte, s.proxy.config.BufferSize)
	for {
		n, err := s.tcp.Read(buf)
		if n > 0 {
			if werr := s.write(websocket.BinaryMessage, buf[:n]); werr != nil {
				s.proxy.logger.Debug("websocket write", "session", s.id, "error", werr)
				return
			}
			s.down.Add(int64(n))
			s.proxy.metrics.bytesTotal.WithLabelValues(Downstream).Add(float64(n))
		}
		if err != nil {
			return
		}
	}
}

func (s *session) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.ping(); err != nil {
				s.teardown("heartbeat failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *session) write(mt int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if t := s.proxy.config.WriteTimeout; t > 0 {
		s.ws.SetWriteDeadline(time.Now().Add(t))
	}
	return s.ws.WriteMessage(mt, data)
}

// ping and teardown use WriteControl, which gorilla allows concurrently with
// WriteMessage.
func (s *session) ping() error {
	deadline := time.Now().Add(10 * time.Second)
	if t := s.proxy.config.WriteTimeout; t > 0 {
		deadline = time.Now().Add(t)
	}
	return s.ws.WriteControl(websocket.PingMessage, nil, deadline)
}

// teardown closes both ends once.
func (s *session) teardown(reason string) {
	s.once.Do(func() {
		close(s.done)

		s.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)

		s.ws.Close()
		s.tcp.Close()
		s.proxy.untrack(s)

		s.proxy.logger.Info("session closed",
			"session", s.id,
			"target", s.target,
			"reason", reason,
			"bytes_up", s.up.Load(),
			"bytes_down", s.down.Load(),
			"duration", time.Since(s.start))
	})
}
