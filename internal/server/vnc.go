package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	pderrors "github.com/printdesk/printdesk/internal/errors"
	"github.com/printdesk/printdesk/internal/vnc"
)

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.connections.List()
	if err != nil {
		s.writeError(w, r, err, "E502")
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

func (s *Server) handleAddConnection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.decodeConnection(w, r)
	if !ok {
		return
	}
	added, err := s.connections.Add(c)
	if err != nil {
		s.writeError(w, r, err, "E503")
		return
	}
	writeJSON(w, http.StatusOK, added)
}

func (s *Server) handleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, r, vnc.ErrInvalidIndex, "E501")
		return
	}
	c, ok := s.decodeConnection(w, r)
	if !ok {
		return
	}
	updated, err := s.connections.Update(index, c)
	if err != nil {
		s.writeError(w, r, err, "E503")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, r, vnc.ErrInvalidIndex, "E501")
		return
	}
	if err := s.connections.Delete(index); err != nil {
		s.writeError(w, r, err, "E503")
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "连接已删除"})
}

func (s *Server) decodeConnection(w http.ResponseWriter, r *http.Request) (vnc.Connection, bool) {
	var c vnc.Connection
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		s.writeError(w, r, pderrors.New("E404").Wrap(err), "E404")
		return vnc.Connection{}, false
	}
	return c, true
}
