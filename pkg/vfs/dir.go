package vfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

// skipDirs are never listed or watched.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	".next":        true,
}

// DirFS serves a project directory on disk.
type DirFS struct {
	root string
}

// NewDirFS creates a DirFS rooted at dir, which must exist.
func NewDirFS(dir string) (*DirFS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", dir)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open project %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", dir)
	}
	return &DirFS{root: abs}, nil
}

// Root returns the absolute project directory.
func (d *DirFS) Root() string { return d.root }

// osPath maps a project path to a path under root.
func (d *DirFS) osPath(path string) (string, error) {
	if err := errors.ValidateFilePath(path); err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(path)), nil
}

// ProjectPath maps an absolute path under root back to a project path.
func (d *DirFS) ProjectPath(osPath string) (string, bool) {
	rel, err := filepath.Rel(d.root, osPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return "/" + filepath.ToSlash(rel), true
}

// ReadFile implements FS.
func (d *DirFS) ReadFile(_ context.Context, path string) (string, error) {
	p, err := d.osPath(path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", notFound(path)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	return string(b), nil
}

// WriteFile implements FS. The write goes through a temp file and rename
// so readers never observe a partial file.
func (d *DirFS) WriteFile(_ context.Context, path, text string) error {
	p, err := d.osPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create directory for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".ghostcanvas-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

// DeleteFile implements FS.
func (d *DirFS) DeleteFile(_ context.Context, path string) error {
	p, err := d.osPath(path)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return notFound(path)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete %s", path)
	}
	return nil
}

// List implements FS.
func (d *DirFS) List(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if p != d.root && skipDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".ghostcanvas-") {
			return nil
		}
		if rel, ok := d.ProjectPath(p); ok {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list %s", d.root)
	}
	sort.Strings(out)
	return out, nil
}
