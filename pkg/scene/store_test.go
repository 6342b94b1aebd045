package scene

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

func newTestStore() *Store {
	n := 0
	return NewStore(WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("g%d", n)
	}))
}

func mustAdd(t *testing.T, s *Store, n Node) string {
	t.Helper()
	id, err := s.AddNode(n)
	if err != nil {
		t.Fatalf("AddNode(%s): %v", n.ID, err)
	}
	return id
}

func mustCheck(t *testing.T, s *Store) {
	t.Helper()
	if err := s.Check(); err != nil {
		t.Fatalf("invariants broken: %v", err)
	}
}

func TestAddNode(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "f", Kind: KindFrame})
	mustAdd(t, s, Node{ID: "a", ParentID: "f"})
	mustAdd(t, s, Node{ID: "b"})

	if got := s.Roots(); !slices.Equal(got, []string{"f", "b"}) {
		t.Errorf("roots = %v", got)
	}
	f, _ := s.Node("f")
	if !slices.Equal(f.Children, []string{"a"}) {
		t.Errorf("frame children = %v", f.Children)
	}
	mustCheck(t, s)

	generated := mustAdd(t, s, Node{Component: "Card"})
	if generated != "g1" {
		t.Errorf("generated id = %q", generated)
	}
}

func TestAddNodeRejects(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "leaf", Kind: KindComponent})

	tests := []struct {
		name string
		node Node
	}{
		{"missing parent", Node{ID: "x", ParentID: "nope"}},
		{"duplicate id", Node{ID: "leaf"}},
		{"component parent", Node{ID: "y", ParentID: "leaf"}},
		{"prefilled children", Node{ID: "z", Kind: KindFrame, Children: []string{"leaf"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Snapshot()
			_, err := s.AddNode(tt.node)
			if !errors.Is(err, errors.ErrCodeInvariantViolation) {
				t.Fatalf("err = %v, want INVARIANT_VIOLATION", err)
			}
			if s.Snapshot().Hash() != before.Hash() {
				t.Error("store changed after rejected add")
			}
		})
	}
}

func TestUpdateNodeReparent(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "f1", Kind: KindFrame})
	mustAdd(t, s, Node{ID: "f2", Kind: KindFrame})
	mustAdd(t, s, Node{ID: "a", ParentID: "f1", Width: 10})

	if err := s.UpdateNode("a", Patch{ParentID: String("f2"), Width: Float(20)}); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	f1, _ := s.Node("f1")
	f2, _ := s.Node("f2")
	a, _ := s.Node("a")
	if len(f1.Children) != 0 || !slices.Equal(f2.Children, []string{"a"}) || a.ParentID != "f2" || a.Width != 20 {
		t.Errorf("after reparent: f1=%v f2=%v a=%+v", f1.Children, f2.Children, a)
	}

	if err := s.UpdateNode("a", Patch{ParentID: String("")}); err != nil {
		t.Fatalf("UpdateNode to root: %v", err)
	}
	if !slices.Contains(s.Roots(), "a") {
		t.Error("a should be a root")
	}
	mustCheck(t, s)

	if err := s.UpdateNode("f1", Patch{ParentID: String("f1")}); !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Errorf("self-parent err = %v", err)
	}
	if err := s.UpdateNode("missing", Patch{}); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("missing node err = %v", err)
	}
}

func TestUpdateNodeRejectsCycle(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "outer", Kind: KindFrame})
	mustAdd(t, s, Node{ID: "inner", Kind: KindFrame, ParentID: "outer"})

	err := s.UpdateNode("outer", Patch{ParentID: String("inner"), X: Float(5)})
	if !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Fatalf("err = %v", err)
	}
	outer, _ := s.Node("outer")
	if outer.X != 0 {
		t.Error("failed update must not apply other fields")
	}
	mustCheck(t, s)
}

func TestRemoveNode(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "f", Kind: KindFrame})
	mustAdd(t, s, Node{ID: "g", Kind: KindGroup, ParentID: "f"})
	mustAdd(t, s, Node{ID: "a", ParentID: "g"})
	mustAdd(t, s, Node{ID: "b", ParentID: "f"})
	_ = s.SelectMany([]string{"b", "a"})

	if err := s.RemoveNode("g"); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if _, ok := s.Node("a"); ok {
		t.Error("descendant a should be removed")
	}
	sel := s.Selection()
	if !slices.Equal(sel.IDs, []string{"b"}) || sel.Primary != "b" {
		t.Errorf("selection = %+v", sel)
	}
	mustCheck(t, s)
}

func TestSelection(t *testing.T) {
	s := newTestStore()
	for _, id := range []string{"a", "b", "c"} {
		mustAdd(t, s, Node{ID: id})
	}

	_ = s.Select("a", false)
	_ = s.Select("b", true)
	_ = s.ToggleSelection("c")
	if sel := s.Selection(); !slices.Equal(sel.IDs, []string{"a", "b", "c"}) || sel.Primary != "c" {
		t.Fatalf("selection = %+v", sel)
	}

	s.Deselect("c")
	if sel := s.Selection(); sel.Primary != "b" {
		t.Errorf("primary after demotion = %q, want b", sel.Primary)
	}
	_ = s.ToggleSelection("b")
	_ = s.ToggleSelection("a")
	if sel := s.Selection(); len(sel.IDs) != 0 || sel.Primary != "" {
		t.Errorf("selection = %+v, want empty", sel)
	}

	_ = s.Select("a", false)
	_ = s.Select("b", false)
	if sel := s.Selection(); !slices.Equal(sel.IDs, []string{"b"}) {
		t.Errorf("non-additive select = %+v", sel)
	}
	s.ClearSelection()
	if sel := s.Selection(); len(sel.IDs) != 0 {
		t.Errorf("after clear = %+v", sel)
	}

	if err := s.Select("nope", false); !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("select unknown err = %v", err)
	}
}

func TestGroupUngroupRoundTrip(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "f", Kind: KindFrame, X: 100, Y: 50, Width: 500, Height: 500})
	mustAdd(t, s, Node{ID: "a", ParentID: "f", X: 10, Y: 20, Width: 30, Height: 40})
	mustAdd(t, s, Node{ID: "b", ParentID: "f", X: 70, Y: 5, Width: 20, Height: 20})
	mustAdd(t, s, Node{ID: "c", ParentID: "f", X: 0, Y: 0, Width: 5, Height: 5})

	before := map[string]Point{}
	for _, id := range []string{"a", "b"} {
		before[id], _ = s.WorldPosition(id)
	}
	_ = s.SelectMany([]string{"b", "a"})

	gid, ok := s.GroupSelection()
	if !ok {
		t.Fatal("GroupSelection returned no group")
	}
	mustCheck(t, s)

	g, _ := s.Node(gid)
	if g.X != 10 || g.Y != 5 || g.Width != 80 || g.Height != 55 {
		t.Errorf("group geometry = (%v,%v %vx%v)", g.X, g.Y, g.Width, g.Height)
	}
	if !slices.Equal(g.Children, []string{"a", "b"}) {
		t.Errorf("group children = %v, want parent order", g.Children)
	}
	f, _ := s.Node("f")
	if !slices.Equal(f.Children, []string{gid, "c"}) {
		t.Errorf("frame children = %v", f.Children)
	}
	if sel := s.Selection(); !slices.Equal(sel.IDs, []string{gid}) || sel.Primary != gid {
		t.Errorf("selection after group = %+v", sel)
	}
	for id, want := range before {
		got, _ := s.WorldPosition(id)
		if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
			t.Errorf("%s world moved while grouped: %v -> %v", id, want, got)
		}
	}

	children, ok := s.UngroupNode(gid)
	if !ok || len(children) != 2 {
		t.Fatalf("UngroupNode = %v, %v", children, ok)
	}
	mustCheck(t, s)
	for id, want := range before {
		got, _ := s.WorldPosition(id)
		if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
			t.Errorf("%s world after round trip = %v, want %v", id, got, want)
		}
	}
	sel := s.Selection()
	if len(sel.IDs) != 2 || !sel.Contains("a") || !sel.Contains("b") {
		t.Errorf("selection after ungroup = %+v", sel)
	}
	f, _ = s.Node("f")
	if !slices.Equal(f.Children, []string{"a", "b", "c"}) {
		t.Errorf("frame children after ungroup = %v", f.Children)
	}
	if _, ok := s.Node(gid); ok {
		t.Error("group should be deleted")
	}
}

func TestGroupSelectionNoop(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
	}{
		{"empty", nil},
		{"single", []string{"a"}},
		{"one root in mixed selection", []string{"a", "inner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			mustAdd(t, s, Node{ID: "a"})
			mustAdd(t, s, Node{ID: "f", Kind: KindFrame})
			mustAdd(t, s, Node{ID: "inner", ParentID: "f"})
			_ = s.SelectMany(tt.selected)
			before := s.Snapshot()

			if id, ok := s.GroupSelection(); ok {
				t.Fatalf("GroupSelection created %q", id)
			}
			after := s.Snapshot()
			if after.Hash() != before.Hash() || !slices.Equal(after.Selection.IDs, before.Selection.IDs) {
				t.Error("store changed")
			}
		})
	}
}

func TestGroupMixedParentsNarrowsToRoots(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "a", Width: 10, Height: 10})
	mustAdd(t, s, Node{ID: "b", X: 20, Width: 10, Height: 10})
	mustAdd(t, s, Node{ID: "f", Kind: KindFrame})
	mustAdd(t, s, Node{ID: "inner", ParentID: "f"})
	_ = s.SelectMany([]string{"inner", "a", "b"})

	gid, ok := s.GroupSelection()
	if !ok {
		t.Fatal("expected group of root members")
	}
	g, _ := s.Node(gid)
	if !slices.Equal(g.Children, []string{"a", "b"}) {
		t.Errorf("group children = %v", g.Children)
	}
	inner, _ := s.Node("inner")
	if inner.ParentID != "f" {
		t.Error("non-root member must stay put")
	}
	mustCheck(t, s)
}

func TestGroupWithLayout(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "a", X: 50, Y: 50, Width: 10, Height: 30})
	mustAdd(t, s, Node{ID: "b", X: 0, Y: 0, Width: 20, Height: 10})
	_ = s.SelectMany([]string{"a", "b"})

	gid, ok := s.GroupSelection(WithLayout(Layout{Direction: DirectionRow, Gap: 8}))
	if !ok {
		t.Fatal("no group")
	}
	g, _ := s.Node(gid)
	a, _ := s.Node("a")
	b, _ := s.Node("b")
	if a.X != 0 || b.X != 18 || a.Y != 0 || b.Y != 0 {
		t.Errorf("positions a=(%v,%v) b=(%v,%v)", a.X, a.Y, b.X, b.Y)
	}
	if g.Width != 38 || g.Height != 30 {
		t.Errorf("group size = %vx%v, want 38x30", g.Width, g.Height)
	}
}

func TestUngroupNoop(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "leaf"})
	mustAdd(t, s, Node{ID: "empty", Kind: KindFrame})
	_ = s.Select("leaf", false)
	before := s.Snapshot().Hash()

	for _, id := range []string{"leaf", "empty", "missing"} {
		if _, ok := s.UngroupNode(id); ok {
			t.Errorf("UngroupNode(%s) should be a no-op", id)
		}
	}
	if s.Snapshot().Hash() != before {
		t.Error("store changed")
	}
	if sel := s.Selection(); sel.Primary != "leaf" {
		t.Errorf("selection changed: %+v", sel)
	}
}

func TestAutoLayout(t *testing.T) {
	sizes := []Size{{10, 20}, {30, 5}, {5, 40}}
	tests := []struct {
		layout Layout
		pos    []Point
		size   Size
	}{
		{Layout{DirectionRow, 4}, []Point{{0, 0}, {14, 0}, {48, 0}}, Size{53, 40}},
		{Layout{DirectionColumn, 0}, []Point{{0, 0}, {0, 20}, {0, 25}}, Size{30, 65}},
	}
	for _, tt := range tests {
		pos, size := AutoLayout(sizes, tt.layout)
		if !slices.Equal(pos, tt.pos) || size != tt.size {
			t.Errorf("%s: got %v %v, want %v %v", tt.layout.Direction, pos, size, tt.pos, tt.size)
		}
	}

	if pos, size := AutoLayout(nil, Layout{DirectionRow, 10}); len(pos) != 0 || size != (Size{}) {
		t.Errorf("empty layout = %v %v", pos, size)
	}
}

func TestSetLayoutRecomputes(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "f", Kind: KindFrame, Width: 999, Height: 999})
	mustAdd(t, s, Node{ID: "a", ParentID: "f", X: 40, Y: 40, Width: 10, Height: 10})
	mustAdd(t, s, Node{ID: "b", ParentID: "f", X: 3, Y: 3, Width: 20, Height: 15})

	if err := s.SetLayout("f", &Layout{Direction: DirectionColumn, Gap: 5}); err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	f, _ := s.Node("f")
	b, _ := s.Node("b")
	if b.X != 0 || b.Y != 15 || f.Width != 20 || f.Height != 30 {
		t.Errorf("b=(%v,%v) f=%vx%v", b.X, b.Y, f.Width, f.Height)
	}

	mustAdd(t, s, Node{ID: "c", ParentID: "f", Width: 4, Height: 4})
	f, _ = s.Node("f")
	if f.Height != 39 {
		t.Errorf("height after add = %v, want 39", f.Height)
	}

	if err := s.SetLayout("a", &Layout{Direction: DirectionRow}); !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Errorf("layout on component err = %v", err)
	}
	if err := s.SetLayout("f", &Layout{Direction: "diagonal"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad direction err = %v", err)
	}
}

func TestSetStyle(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "a", Style: map[string]string{"color": "red"}})
	style := map[string]string{"padding": "4px"}
	if err := s.SetStyle("a", style); err != nil {
		t.Fatal(err)
	}
	style["padding"] = "mutated"
	a, _ := s.Node("a")
	if len(a.Style) != 1 || a.Style["padding"] != "4px" {
		t.Errorf("style = %v", a.Style)
	}
}

func TestMoveToParentKeepsWorldPosition(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "f", Kind: KindFrame, X: 30, Y: 40})
	mustAdd(t, s, Node{ID: "a", X: 50, Y: 60})

	if err := s.MoveToParent("a", "f"); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Node("a")
	w, _ := s.WorldPosition("a")
	if a.X != 20 || a.Y != 20 || w != (Point{50, 60}) {
		t.Errorf("local=(%v,%v) world=%v", a.X, a.Y, w)
	}
	mustCheck(t, s)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	s := newTestStore()
	ops := []func(i int){
		func(i int) { _, _ = s.AddNode(Node{ID: fmt.Sprintf("n%d", i), Kind: KindFrame, Width: 10, Height: 10}) },
		func(i int) {
			_, _ = s.AddNode(Node{ID: fmt.Sprintf("c%d", i), ParentID: fmt.Sprintf("n%d", i-3), Width: 5, Height: 5})
		},
		func(i int) {
			_ = s.UpdateNode(fmt.Sprintf("c%d", i-5), Patch{ParentID: String(fmt.Sprintf("n%d", i-1))})
		},
		func(i int) { _ = s.SelectMany([]string{fmt.Sprintf("n%d", i-4), fmt.Sprintf("n%d", i-7)}) },
		func(int) { _, _ = s.GroupSelection() },
		func(int) {
			if sel := s.Selection(); sel.Primary != "" {
				_, _ = s.UngroupNode(sel.Primary)
			}
		},
		func(i int) { _ = s.RemoveNode(fmt.Sprintf("n%d", i-11)) },
	}
	for i := 0; i < 300; i++ {
		ops[(i*7+i/3)%len(ops)](i)
		if err := s.Check(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestLoadRejectsInvalidSnapshot(t *testing.T) {
	s := newTestStore()
	mustAdd(t, s, Node{ID: "a"})
	bad := &Snapshot{
		Nodes: map[string]*Node{"x": {ID: "x", ParentID: "ghost"}},
		Roots: nil,
	}
	if err := s.Load(bad); !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Fatalf("err = %v", err)
	}
	if s.Len() != 1 {
		t.Error("store replaced by invalid snapshot")
	}

	good := s.Snapshot()
	other := newTestStore()
	if err := other.Load(good); err != nil {
		t.Fatal(err)
	}
	if other.Snapshot().Hash() != good.Hash() {
		t.Error("loaded store differs")
	}
}
