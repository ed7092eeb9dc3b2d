package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	pderrors "github.com/printdesk/printdesk/internal/errors"
	"github.com/printdesk/printdesk/internal/printing"
	"github.com/printdesk/printdesk/internal/storage"
)

type printRequest struct {
	Filename string `json:"filename"`
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	s.handleFileCommand(w, r, printing.CanPrint, s.printer.Print, "E402", "打印成功")
}

func (s *Server) handlePreopen(w http.ResponseWriter, r *http.Request) {
	s.handleFileCommand(w, r, printing.CanOpen, s.printer.Open, "E405", "成功")
}

// handleFileCommand checks the request in the order clients rely on:
// body, empty name, existence, file type. Only then is the file fetched
// and the command run.
func (s *Server) handleFileCommand(
	w http.ResponseWriter,
	r *http.Request,
	supported func(name string) bool,
	run func(ctx context.Context, path string) error,
	failCode string,
	okMessage string,
) {
	var req printRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, pderrors.New("E404").Wrap(err), "E404")
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		s.writeError(w, r, pderrors.New("E403"), "E403")
		return
	}

	name, err := storage.CleanName(req.Filename)
	if err != nil {
		s.writeError(w, r, err, "E302")
		return
	}
	if _, err := s.store.Stat(r.Context(), name); err != nil {
		s.writeError(w, r, err, "E305")
		return
	}
	if !supported(name) {
		s.writeError(w, r, printing.ErrUnsupported, "E401")
		return
	}

	path, err := s.store.LocalPath(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err, "E305")
		return
	}
	if err := run(r.Context(), path); err != nil {
		s.writeError(w, r, pderrors.New(failCode).Wrap(err), failCode)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: okMessage})
}
