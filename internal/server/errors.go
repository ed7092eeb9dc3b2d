package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	pderrors "github.com/printdesk/printdesk/internal/errors"
	"github.com/printdesk/printdesk/internal/printing"
	"github.com/printdesk/printdesk/internal/storage"
	"github.com/printdesk/printdesk/internal/vnc"
	"github.com/printdesk/printdesk/pkg/router"
	"github.com/printdesk/printdesk/pkg/websockify"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// coded maps package sentinels onto registered error codes. Errors that
// already carry a code are returned unchanged; anything unknown becomes
// fallback.
func coded(err error, fallback string) *pderrors.CodedError {
	var ce *pderrors.CodedError
	if errors.As(err, &ce) {
		return ce
	}

	code := fallback
	switch {
	case errors.Is(err, storage.ErrNotFound):
		code = "E301"
	case errors.Is(err, storage.ErrInvalidName):
		code = "E302"
	case errors.Is(err, storage.ErrTooLarge):
		code = "E304"
	case errors.Is(err, printing.ErrUnsupported):
		code = "E401"
	case errors.Is(err, vnc.ErrInvalidIndex):
		code = "E501"
	case errors.Is(err, vnc.ErrInvalidConnection):
		code = "E504"
	case errors.Is(err, router.ErrInvalidPath), errors.Is(err, router.ErrPathEscapesRoot):
		code = "E204"
	case errors.Is(err, websockify.ErrInvalidTarget):
		code = "E601"
	case errors.Is(err, websockify.ErrDial):
		code = "E602"
	case errors.Is(err, websockify.ErrCustomTarget):
		code = "E603"
	case errors.Is(err, websockify.ErrNotWebSocket):
		code = "E604"
	}
	return pderrors.New(code).Wrap(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("write response", "error", err)
	}
}

// writeError answers with the coded JSON error. Server-side failures are
// logged with their cause; the cause is not sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	ce := coded(err, fallback)
	status := ce.Status()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", ce.Code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: ce.Message, Code: ce.Code})
}

type messageBody struct {
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}
