package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DiskStore stores uploads in a flat directory.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDiskStore creates the directory if needed.
//
// Parameters:
//   - dir: Directory to store files in
//   - maxSize: Maximum file size in bytes (0 = no limit)
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the storage directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) path(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, clean), nil
}

// List implements Store.
func (s *DiskStore) List(ctx context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []FileInfo{}, nil
		}
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || isTemp(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Save implements Store. The file is written to a temporary name and renamed
// into place so readers never see a partial upload.
func (s *DiskStore) Save(ctx context.Context, name string, r io.Reader) (FileInfo, error) {
	dst, err := s.path(name)
	if err != nil {
		return FileInfo{}, err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return FileInfo{}, err
	}

	f, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return FileInfo{}, err
	}
	tmp := f.Name()

	if _, err := limitedCopy(f, r, s.maxSize); err != nil {
		f.Close()
		os.Remove(tmp)
		return FileInfo{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return FileInfo{}, err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return FileInfo{}, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return FileInfo{}, err
	}
	return s.Stat(ctx, name)
}

// Stat implements Store.
func (s *DiskStore) Stat(_ context.Context, name string) (FileInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileInfo{}, ErrNotFound
		}
		return FileInfo{}, err
	}
	if info.IsDir() {
		return FileInfo{}, ErrNotFound
	}
	return FileInfo{Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Open implements Store.
func (s *DiskStore) Open(ctx context.Context, name string) (*File, error) {
	info, err := s.Stat(ctx, name)
	if err != nil {
		return nil, err
	}
	p, _ := s.path(name)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &File{FileInfo: info, Reader: f}, nil
}

// Delete implements Store.
func (s *DiskStore) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return err
	}
	p, _ := s.path(name)
	return os.Remove(p)
}

// LocalPath implements Store.
func (s *DiskStore) LocalPath(ctx context.Context, name string) (string, error) {
	if _, err := s.Stat(ctx, name); err != nil {
		return "", err
	}
	p, _ := s.path(name)
	return filepath.Abs(p)
}

const tempPrefix = ".upload-"

func isTemp(name string) bool {
	return len(name) > len(tempPrefix) && name[:len(tempPrefix)] == tempPrefix
}
