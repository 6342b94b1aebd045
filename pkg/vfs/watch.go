package vfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher feeds edits made to a DirFS from outside the editor (an IDE, a
// git checkout) into a Listener.
type Watcher struct {
	dir      *DirFS
	listener Listener
	logger   *log.Logger
	w        *fsnotify.Watcher
}

// NewWatcher watches every directory under dir's root.
func NewWatcher(dir *DirFS, l Listener, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	wt := &Watcher{dir: dir, listener: l, logger: logger, w: w}
	if err := wt.addTree(dir.Root()); err != nil {
		w.Close()
		return nil, err
	}
	return wt, nil
}

func (wt *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if p != root && skipDirs[entry.Name()] {
			return filepath.SkipDir
		}
		return wt.w.Add(p)
	})
}

// Run dispatches events until ctx is done or the watcher fails.
func (wt *Watcher) Run(ctx context.Context) error {
	defer wt.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-wt.w.Events:
			if !ok {
				return nil
			}
			wt.handle(ctx, event)
		case err, ok := <-wt.w.Errors:
			if !ok {
				return nil
			}
			wt.logger.Warn("file watcher error", "err", err)
		}
	}
}

func (wt *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".ghostcanvas-") {
		return
	}
	path, ok := wt.dir.ProjectPath(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if err := wt.listener.Delete(path); err != nil {
			wt.logger.Warn("forward delete", "path", path, "err", err)
		}
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) && !skipDirs[info.Name()] {
				if err := wt.addTree(event.Name); err != nil {
					wt.logger.Warn("watch new directory", "path", path, "err", err)
				}
			}
			return
		}
		text, err := wt.dir.ReadFile(ctx, path)
		if err != nil {
			wt.logger.Debug("read changed file", "path", path, "err", err)
			return
		}
		if err := wt.listener.Update(path, text); err != nil {
			wt.logger.Warn("forward update", "path", path, "err", err)
		}
	}
}

// Close stops watching.
func (wt *Watcher) Close() error {
	return wt.w.Close()
}
