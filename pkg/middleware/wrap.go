package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// wrap returns a response writer that records status and size while still
// exposing http.Hijacker and http.Flusher, which the WebSocket upgrade needs.
func wrap(w http.ResponseWriter, r *http.Request) chimw.WrapResponseWriter {
	if ww, ok := w.(chimw.WrapResponseWriter); ok {
		return ww
	}
	return chimw.NewWrapResponseWriter(w, r.ProtoMajor)
}

// status reports the recorded status, treating "nothing written" as 200.
func status(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
