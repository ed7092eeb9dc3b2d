package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/printdesk/printdesk/internal/storage"
)

// multipartOverhead is allowed on top of maxUploadSize for form framing.
const multipartOverhead = 1 << 20

type fileEntry struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	UploadTime string `json:"upload_time"`
}

type fileList struct {
	Files []fileEntry `json:"files"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, "E305")
		return
	}

	out := fileList{Files: make([]fileEntry, 0, len(files))}
	for _, f := range files {
		out.Files = append(out.Files, fileEntry{
			Filename:   f.Name,
			Size:       f.Size,
			UploadTime: f.ModTime.Local().Format(storage.TimeFormat),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if max := s.config.Storage.MaxUploadSize; max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, storage.ErrTooLarge, "E304")
			return
		}
		s.writeError(w, r, err, "E303")
		return
	}
	defer file.Close()

	info, err := s.store.Save(r.Context(), header.Filename, file)
	if err != nil {
		s.writeError(w, r, err, "E305")
		return
	}
	s.logger.Info("file uploaded", "filename", info.Name, "size", info.Size)
	writeJSON(w, http.StatusOK, messageBody{Message: "File uploaded successfully", Filename: info.Name})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		s.writeError(w, r, err, "E302")
		return
	}

	f, err := s.store.Open(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err, "E305")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	if rs, ok := f.Reader.(io.ReadSeeker); ok {
		http.ServeContent(w, r, f.Name, f.ModTime, rs)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	if _, err := io.Copy(w, f.Reader); err != nil {
		s.logger.Warn("download interrupted", "filename", f.Name, "error", err)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		s.writeError(w, r, err, "E302")
		return
	}
	if err := s.store.Delete(r.Context(), name); err != nil {
		s.writeError(w, r, err, "E305")
		return
	}
	s.logger.Info("file deleted", "filename", name)
	writeJSON(w, http.StatusOK, messageBody{Message: "File deleted successfully", Filename: name})
}

// filenameParam returns the decoded {filename} URL parameter. chi routes on
// RawPath when it is set, so only then is the parameter still escaped.
func filenameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "filename")
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			return "", storage.ErrInvalidName
		}
	}
	return storage.CleanName(name)
}
