// Package memory provides an in-process storage backend for tests and
// ephemeral deployments.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderMemory, func(_ context.Context, _ storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return New(), nil
	})
}

type object struct {
	data    []byte
	modTime time.Time
}

// Storage is a map-backed storage.Storage. Safe for concurrent use.
type Storage struct {
	mu    sync.RWMutex
	files map[string]*object
	now   func() time.Time
}

// New creates an empty in-memory store.
func New() *Storage {
	return &Storage{files: make(map[string]*object), now: time.Now}
}

// Put stores data under path with an explicit modification time.
func (s *Storage) Put(path string, data []byte, modTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &object{data: append([]byte(nil), data...), modTime: modTime}
}

// Len returns the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("storage: read upload data: %w", err)
	}
	s.Put(path, data, s.now())
	return nil
}

func (s *Storage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (s *Storage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[path]
	return ok, nil
}

func (s *Storage) URL(_ context.Context, path string) (string, error) {
	return "mem://" + path, nil
}

func (s *Storage) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []storage.FileInfo{}
	for path, f := range s.files {
		if strings.HasPrefix(path, prefix) {
			result = append(result, storage.FileInfo{
				Path:         path,
				Size:         int64(len(f.data)),
				LastModified: f.modTime,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

var _ storage.Storage = (*Storage)(nil)
