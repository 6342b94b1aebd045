// Package vfs is the single read/write/delete interface to a project's
// editable files.
//
// Paths are project-rooted and slash-separated ("/App.tsx"). Every backend
// validates paths with [errors.ValidateFilePath] and reports missing files
// with the FILE_NOT_FOUND code.
package vfs

import (
	"context"
	"sort"
	"sync"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

// FS is a project file store.
type FS interface {
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, text string) error
	DeleteFile(ctx context.Context, path string) error
	// List returns every file path, sorted.
	List(ctx context.Context) ([]string, error)
}

func notFound(path string) error {
	return errors.New(errors.ErrCodeFileNotFound, "file %s does not exist", path)
}

// IsNotFound reports whether err is a missing-file error.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrCodeFileNotFound)
}

// MemFS keeps files in memory.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]string
}

// NewMemFS creates a MemFS holding a copy of files.
func NewMemFS(files map[string]string) *MemFS {
	m := &MemFS{files: make(map[string]string, len(files))}
	for p, text := range files {
		m.files[p] = text
	}
	return m
}

// ReadFile implements FS.
func (m *MemFS) ReadFile(_ context.Context, path string) (string, error) {
	if err := errors.ValidateFilePath(path); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.files[path]
	if !ok {
		return "", notFound(path)
	}
	return text, nil
}

// WriteFile implements FS.
func (m *MemFS) WriteFile(_ context.Context, path, text string) error {
	if err := errors.ValidateFilePath(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = text
	return nil
}

// DeleteFile implements FS.
func (m *MemFS) DeleteFile(_ context.Context, path string) error {
	if err := errors.ValidateFilePath(path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return notFound(path)
	}
	delete(m.files, path)
	return nil
}

// List implements FS.
func (m *MemFS) List(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
