package server

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/printdesk/printdesk/pkg/router"
)

// handleShell renders index.html for the resolved view. Unknown paths get
// the not-found view with status 404. The router decodes parameters itself,
// so it is given the escaped path.
func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	res, err := s.router.Resolve(r.Context(), r.URL.EscapedPath())
	if err != nil {
		var loadErr *router.LoadError
		if errors.As(err, &loadErr) {
			s.writeError(w, r, err, "E202")
			return
		}
		s.writeError(w, r, err, "E204")
		return
	}

	var buf bytes.Buffer
	if err := s.shell.Render(&buf, res); err != nil {
		s.writeError(w, r, err, "E202")
		return
	}

	status := http.StatusOK
	if res.NotFound {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

type routeEntry struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes := s.router.Routes()
	out := make([]routeEntry, 0, len(routes))
	for _, rt := range routes {
		out = append(out, routeEntry{Path: rt.Path, Name: rt.Name, Title: rt.Meta.Title})
	}
	writeJSON(w, http.StatusOK, out)
}

type healthBody struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"vnc_sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status:   "ok",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: s.proxy.Active(),
	})
}
