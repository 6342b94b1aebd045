package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/filesync"
	"github.com/matzehuels/ghostcanvas/pkg/protocol"
	"github.com/matzehuels/ghostcanvas/pkg/source"
	"github.com/matzehuels/ghostcanvas/pkg/vfs"
	"github.com/matzehuels/ghostcanvas/pkg/viewport"
)

const rowTSX = "export const Row = () => (\n  <div>\n    <A />\n    <B />\n  </div>\n);\n"

type frame struct {
	mu   sync.Mutex
	sent []protocol.Message
}

func (f *frame) ID() string     { return "w1" }
func (f *frame) PageID() string { return "home" }

func (f *frame) Send(_ context.Context, m protocol.Message) error {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	return nil
}

func (f *frame) count(typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.Type == typ {
			n++
		}
	}
	return n
}

func newSession(t *testing.T, files map[string]string) (*Session, *frame) {
	t.Helper()
	s, err := New(Options{
		FS:    vfs.NewMemFS(files),
		Sync:  filesync.Options{Window: 10 * time.Millisecond},
		Pages: map[string]viewport.Camera{"/about": {X: 1200, Y: 0, Zoom: 1}},
		Viewport: viewport.Options{
			Duration: 20 * time.Millisecond,
			Step:     2 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	f := &frame{}
	s.Host.Register(f)
	return s, f
}

func receive(t *testing.T, s *Session, typ string, payload any) {
	t.Helper()
	msg, err := protocol.NewMessage(typ, payload)
	require.NoError(t, err)
	require.NoError(t, s.Host.Receive(context.Background(), "w1", msg))
}

func TestNewRequiresFS(t *testing.T) {
	_, err := New(Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestArrowKeyReordersSelection(t *testing.T) {
	s, _ := newSession(t, map[string]string{"/Row.tsx": rowTSX})
	ctx := context.Background()

	b := source.Location{File: "/Row.tsx", Line: 4, Column: 5}
	row := protocol.ParentLayout{Display: "flex", Direction: "row"}
	receive(t, s, protocol.TypeElementSelected, protocol.SelectedElement{
		TagName: "B", Source: &b, ParentLayout: row, CorrelationID: "sel-1",
	})
	sel, ok := s.Selection()
	require.True(t, ok)
	assert.Equal(t, "home", sel.PageID)

	// Across the axis: ignored.
	receive(t, s, protocol.TypeKeyboardEvent, protocol.KeyboardEvent{Key: "ArrowUp", ParentLayout: row, SelectionID: "sel-1"})
	got, _ := s.FS.ReadFile(ctx, "/Row.tsx")
	assert.Equal(t, rowTSX, got)

	receive(t, s, protocol.TypeKeyboardEvent, protocol.KeyboardEvent{Key: "ArrowLeft", ParentLayout: row, SelectionID: "sel-1"})
	got, _ = s.FS.ReadFile(ctx, "/Row.tsx")
	assert.Equal(t, "export const Row = () => (\n  <div>\n    <B />\n    <A />\n  </div>\n);\n", got)

	sel, _ = s.Selection()
	assert.Equal(t, source.Location{File: "/Row.tsx", Line: 3, Column: 5}, *sel.Source)

	// Already first: informational, file untouched.
	receive(t, s, protocol.TypeKeyboardEvent, protocol.KeyboardEvent{Key: "ArrowLeft", ParentLayout: row, SelectionID: "sel-1"})
	after, _ := s.FS.ReadFile(ctx, "/Row.tsx")
	assert.Equal(t, got, after)
}

func TestKeyForStaleSelectionIsIgnored(t *testing.T) {
	s, _ := newSession(t, map[string]string{"/Row.tsx": rowTSX})
	b := source.Location{File: "/Row.tsx", Line: 4, Column: 5}
	receive(t, s, protocol.TypeElementSelected, protocol.SelectedElement{Source: &b, CorrelationID: "sel-2"})
	receive(t, s, protocol.TypeKeyboardEvent, protocol.KeyboardEvent{Key: "ArrowUp", SelectionID: "sel-1"})

	got, _ := s.FS.ReadFile(context.Background(), "/Row.tsx")
	assert.Equal(t, rowTSX, got)
}

func TestNavigationIntentMovesCamera(t *testing.T) {
	s, _ := newSession(t, nil)
	receive(t, s, protocol.TypeNavigationIntent, protocol.NavigationIntent{TargetRoute: "/about"})

	require.Eventually(t, func() bool { return s.Navigator.Route() == "/about" }, time.Second, time.Millisecond)
	assert.Equal(t, viewport.Camera{X: 1200, Y: 0, Zoom: 1}, s.Navigator.Camera())
}

func TestWritesReachFrames(t *testing.T) {
	s, f := newSession(t, nil)
	require.NoError(t, s.FS.WriteFile(context.Background(), "/App.tsx", "export default () => <main />;\n"))
	require.Eventually(t, func() bool { return f.count(protocol.TypeSyncFiles) == 1 }, time.Second, time.Millisecond)
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(Options{FS: vfs.NewMemFS(nil)})

	a, err := reg.Create()
	require.NoError(t, err)
	b, err := reg.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := reg.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Len(t, reg.List(), 2)

	require.NoError(t, reg.Close(ctx, a.ID))
	_, err = reg.Get(a.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
	assert.True(t, errors.Is(reg.Close(ctx, a.ID), errors.ErrCodeSessionNotFound))

	require.NoError(t, reg.CloseAll(ctx))
	assert.Empty(t, reg.List())
}
