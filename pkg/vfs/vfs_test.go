package vfs

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

func exerciseFS(t *testing.T, fs FS) {
	t.Helper()
	ctx := context.Background()

	if _, err := fs.ReadFile(ctx, "/missing.tsx"); !IsNotFound(err) {
		t.Errorf("read missing err = %v", err)
	}
	if err := fs.WriteFile(ctx, "/App.tsx", "v1"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fs.WriteFile(ctx, "/components/Card.tsx", "card"); err != nil {
		t.Fatalf("write nested: %v", err)
	}
	if err := fs.WriteFile(ctx, "/App.tsx", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if text, err := fs.ReadFile(ctx, "/App.tsx"); err != nil || text != "v2" {
		t.Errorf("read = %q, %v", text, err)
	}

	paths, err := fs.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(paths, []string{"/App.tsx", "/components/Card.tsx"}) {
		t.Errorf("list = %v", paths)
	}

	if err := fs.DeleteFile(ctx, "/App.tsx"); err != nil {
		t.Fatal(err)
	}
	if err := fs.DeleteFile(ctx, "/App.tsx"); !IsNotFound(err) {
		t.Errorf("second delete err = %v", err)
	}

	for _, bad := range []string{"", "App.tsx", "/../etc/passwd", "/a\\b"} {
		if err := fs.WriteFile(ctx, bad, "x"); !errors.Is(err, errors.ErrCodeInvalidPath) {
			t.Errorf("write %q err = %v, want INVALID_PATH", bad, err)
		}
	}
}

func TestMemFS(t *testing.T) {
	exerciseFS(t, NewMemFS(nil))
}

func TestDirFS(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewDirFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "node_modules", "x"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "node_modules", "x", "index.js"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	exerciseFS(t, fs)
}

func TestNewDirFSRejectsFiles(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDirFS(f); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("err = %v", err)
	}
}

type recordingListener struct {
	mu      sync.Mutex
	updates map[string]string
	deletes []string
}

func (r *recordingListener) Update(path, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updates == nil {
		r.updates = map[string]string{}
	}
	r.updates[path] = text
	return nil
}

func (r *recordingListener) Delete(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, path)
	return nil
}

func (r *recordingListener) update(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.updates[path]
	return text, ok
}

func TestNotifying(t *testing.T) {
	l := &recordingListener{}
	fs := NewNotifying(NewMemFS(nil), l, nil)
	ctx := context.Background()

	if err := fs.WriteFile(ctx, "/a.tsx", "x"); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile(ctx, "bad", "x"); err == nil {
		t.Fatal("invalid write should fail")
	}
	if err := fs.DeleteFile(ctx, "/a.tsx"); err != nil {
		t.Fatal(err)
	}
	if err := fs.DeleteFile(ctx, "/a.tsx"); err == nil {
		t.Fatal("missing delete should fail")
	}

	if len(l.updates) != 1 || l.updates["/a.tsx"] != "x" {
		t.Errorf("updates = %v", l.updates)
	}
	if !slices.Equal(l.deletes, []string{"/a.tsx"}) {
		t.Errorf("deletes = %v", l.deletes)
	}
}

type failingListener struct{}

func (failingListener) Update(string, string) error {
	return errors.New(errors.ErrCodeInternal, "closed")
}
func (failingListener) Delete(string) error { return errors.New(errors.ErrCodeInternal, "closed") }

func TestNotifyingIgnoresListenerFailure(t *testing.T) {
	mem := NewMemFS(nil)
	fs := NewNotifying(mem, failingListener{}, nil)
	ctx := context.Background()

	if err := fs.WriteFile(ctx, "/a.tsx", "x"); err != nil {
		t.Fatalf("write reported %v after it landed", err)
	}
	if got, err := mem.ReadFile(ctx, "/a.tsx"); err != nil || got != "x" {
		t.Errorf("read = %q, %v", got, err)
	}
	if err := fs.DeleteFile(ctx, "/a.tsx"); err != nil {
		t.Fatalf("delete reported %v after it landed", err)
	}
}

func TestWatcherForwardsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewDirFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	l := &recordingListener{}
	w, err := NewWatcher(fs, l, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "App.tsx"), []byte("edited"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if text, ok := l.update("/App.tsx"); ok && text == "edited" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("watcher did not forward the edit")
}
