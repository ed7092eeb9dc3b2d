package server

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/printdesk/printdesk/pkg/assets"
)

// staticRelPath returns a sanitized path below assets/ for a request
// wildcard. It rejects traversal and absolute-path tricks so static serving
// cannot escape the bundle directory.
func staticRelPath(rel string) (string, bool) {
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// A leading "/" after the prefix is an absolute-path attempt
	// (e.g. "/assets//etc/passwd").
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning so traversal is not cleaned away.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return "assets/" + clean, true
}

// serveAsset serves files emitted by the bundler under /assets/.
func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	rel, ok := staticRelPath(chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := s.frontend.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if s.fingerprinted[rel] || isFingerprinted(rel) {
		// Fingerprinted files are immutable - cache for 1 year
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	}

	// Embedded files report a zero ModTime; ServeContent then skips
	// Last-Modified and relies on Cache-Control alone.
	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, rel, info.ModTime(), rs)
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, rel, info.ModTime(), bytes.NewReader(data))
}

// emittedFiles lists every file the manifest references.
func emittedFiles(m *assets.Manifest) map[string]bool {
	out := make(map[string]bool)
	if m == nil {
		return out
	}
	for _, key := range m.Keys() {
		c, _ := m.Chunk(key)
		out[c.File] = true
		for _, f := range c.CSS {
			out[f] = true
		}
		for _, f := range c.Assets {
			out[f] = true
		}
	}
	return out
}

// isFingerprinted checks if a file name carries a content hash, either
// "app.a1b2c3d4.css" or the bundler's "index-B7xQ2mZc.js".
func isFingerprinted(filePath string) bool {
	base := path.Base(filePath)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		return false
	}

	if i := strings.LastIndexByte(stem, '.'); i >= 0 && isHex(stem[i+1:]) {
		return true
	}
	if i := strings.LastIndexByte(stem, '-'); i >= 0 {
		hash := stem[i+1:]
		return len(hash) == 8 && isHashChars(hash) && hasDigitOrUpper(hash)
	}
	return false
}

func isHex(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func isHashChars(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_') {
			return false
		}
	}
	return true
}

func hasDigitOrUpper(s string) bool {
	return strings.IndexFunc(s, func(c rune) bool {
		return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')
	}) >= 0
}
