package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"
)

// TimeFormat is how upload times are rendered to clients.
const TimeFormat = "2006-01-02 15:04:05"

// Store errors.
var (
	ErrNotFound    = errors.New("storage: file not found")
	ErrInvalidName = errors.New("storage: invalid file name")
	ErrTooLarge    = errors.New("storage: file too large")
)

// FileInfo describes a stored file.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// File is an open stored file. Close releases the reader.
type File struct {
	FileInfo
	Reader io.ReadCloser
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// Store is the interface for upload storage back-ends.
type Store interface {
	// List returns the stored files sorted by name. Directories are skipped.
	List(ctx context.Context) ([]FileInfo, error)

	// Save stores r under name, replacing any existing file.
	Save(ctx context.Context, name string, r io.Reader) (FileInfo, error)

	// Open returns the named file.
	Open(ctx context.Context, name string) (*File, error)

	// Stat returns the named file's metadata.
	Stat(ctx context.Context, name string) (FileInfo, error)

	// Delete removes the named file.
	Delete(ctx context.Context, name string) error

	// LocalPath returns a path on the local file system holding the file's
	// contents, for handing to external programs.
	LocalPath(ctx context.Context, name string) (string, error)
}

// CleanName validates a client-supplied file name. Only a bare base name is
// accepted: no separators, no "." or "..", no NUL and valid UTF-8.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "", name == ".", name == "..":
		return "", ErrInvalidName
	case strings.ContainsAny(name, "/\\\x00"):
		return "", ErrInvalidName
	case !utf8.ValidString(name):
		return "", ErrInvalidName
	case path.Base(name) != name:
		return "", ErrInvalidName
	}
	return name, nil
}

// limitedCopy copies at most max bytes (no limit when max <= 0) and reports
// ErrTooLarge when r holds more.
func limitedCopy(dst io.Writer, r io.Reader, max int64) (int64, error) {
	if max <= 0 {
		return io.Copy(dst, r)
	}
	n, err := io.Copy(dst, io.LimitReader(r, max+1))
	if err != nil {
		return n, err
	}
	if n > max {
		return n, ErrTooLarge
	}
	return n, nil
}
