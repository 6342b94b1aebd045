package vfs

import (
	"context"

	"github.com/charmbracelet/log"
)

// Listener observes successful writes and deletes.
type Listener interface {
	Update(path, text string) error
	Delete(path string) error
}

// Notifying forwards every successful mutation of an FS to a Listener,
// typically a filesync.Batcher feeding the preview. A listener failure is
// logged, never returned: the mutation already happened.
type Notifying struct {
	FS
	listener Listener
	logger   *log.Logger
}

// NewNotifying wraps fs.
func NewNotifying(fs FS, l Listener, logger *log.Logger) *Notifying {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifying{FS: fs, listener: l, logger: logger}
}

// WriteFile writes through and notifies the listener.
func (n *Notifying) WriteFile(ctx context.Context, path, text string) error {
	if err := n.FS.WriteFile(ctx, path, text); err != nil {
		return err
	}
	if err := n.listener.Update(path, text); err != nil {
		n.logger.Warn("write not forwarded to preview", "path", path, "err", err)
	}
	return nil
}

// DeleteFile deletes through and notifies the listener.
func (n *Notifying) DeleteFile(ctx context.Context, path string) error {
	if err := n.FS.DeleteFile(ctx, path); err != nil {
		return err
	}
	if err := n.listener.Delete(path); err != nil {
		n.logger.Warn("delete not forwarded to preview", "path", path, "err", err)
	}
	return nil
}
