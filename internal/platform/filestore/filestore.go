// Package filestore persists uploaded source files between the mapping
// preview and the processing request. It defines the Store interface, a
// disk implementation rooted at the configured upload directory, and an
// in-memory implementation suitable for tests.
package filestore

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrMissingFileName = errors.New("file name is required")
)

// FileInfo describes a stored source file.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Store is the contract for source-file storage backends.
type Store interface {
	Save(name string, content io.Reader) (*FileInfo, error)
	Open(name string) (io.ReadCloser, error)
	Stat(name string) (*FileInfo, error)
	Exists(name string) bool
}

// ---------------------------------------------------------------------------
// Disk implementation
// ---------------------------------------------------------------------------

type diskStore struct {
	dir string
}

// NewDiskStore returns a Store writing under dir, creating it if needed.
func NewDiskStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &diskStore{dir: dir}, nil
}

// sanitize strips any path components so a crafted filename cannot
// escape the upload directory.
func sanitize(name string) string {
	return filepath.Base(filepath.Clean(name))
}

func (s *diskStore) Save(name string, content io.Reader) (*FileInfo, error) {
	name = sanitize(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, ErrMissingFileName
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size, err := io.Copy(f, content)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	return &FileInfo{Name: name, Path: path, Size: size}, nil
}

func (s *diskStore) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, sanitize(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	return f, err
}

func (s *diskStore) Stat(name string) (*FileInfo, error) {
	name = sanitize(name)
	path := filepath.Join(s.dir, name)
	st, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &FileInfo{Name: name, Path: path, Size: st.Size()}, nil
}

func (s *diskStore) Exists(name string) bool {
	_, err := s.Stat(name)
	return err == nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type memoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStore returns an in-memory Store for tests and development.
func NewMemoryStore() Store {
	return &memoryStore{files: make(map[string][]byte)}
}

func (s *memoryStore) Save(name string, content io.Reader) (*FileInfo, error) {
	name = sanitize(name)
	if name == "" || name == "." {
		return nil, ErrMissingFileName
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.files[name] = data
	s.mu.Unlock()
	return &FileInfo{Name: name, Path: "memory://" + name, Size: int64(len(data))}, nil
}

func (s *memoryStore) Open(name string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.files[sanitize(name)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) Stat(name string) (*FileInfo, error) {
	name = sanitize(name)
	s.mu.RLock()
	data, ok := s.files[name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrFileNotFound
	}
	return &FileInfo{Name: name, Path: "memory://" + name, Size: int64(len(data))}, nil
}

func (s *memoryStore) Exists(name string) bool {
	_, err := s.Stat(name)
	return err == nil
}
