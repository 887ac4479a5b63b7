package tracker

import (
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/internal/types"
)

// checkDepths asserts depth == parent.depth+1 (0 for roots) and that every
// child entry refers to a registered node.
func checkDepths(t *testing.T, tr *Tracker) {
	t.Helper()
	for _, root := range tr.Roots() {
		if root.Depth != 0 || root.ParentID != "" {
			t.Errorf("root %s has depth %d parent %q", root.ComponentID, root.Depth, root.ParentID)
		}
		root.Walk(func(n types.HierarchyNode) {
			for _, c := range n.Children {
				if c.Depth != n.Depth+1 || c.ParentID != n.ComponentID {
					t.Errorf("%s: depth %d parent %q under %s at depth %d",
						c.ComponentID, c.Depth, c.ParentID, n.ComponentID, n.Depth)
				}
				if _, ok := tr.Node(c.ComponentID); !ok {
					t.Errorf("dangling child %s", c.ComponentID)
				}
			}
		})
	}
}

func unmountedIDs(f *fixture) []string {
	var ids []string
	for _, ev := range f.topics(types.TopicComponentUnmounted) {
		ids = append(ids, ev.Payload.(types.ComponentUnmountedPayload).ComponentID)
	}
	return ids
}

func TestRegisterDepthsAndMountedEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.RegisterComponent("App", "app", "")
	f.tracker.RegisterComponent("Layout", "layout", "app")
	f.tracker.RegisterComponent("Sidebar", "sidebar", "layout")

	node, ok := f.tracker.Node("sidebar")
	if !ok || node.Depth != 2 || node.ParentID != "layout" {
		t.Errorf("sidebar = %+v", node)
	}
	mounted := f.topics(types.TopicComponentMounted)
	if len(mounted) != 3 {
		t.Fatalf("mounted events = %d", len(mounted))
	}
	last := mounted[2].Payload.(types.ComponentMountedPayload)
	if last.Depth != 2 || last.ParentID != "layout" {
		t.Errorf("mounted payload = %+v", last)
	}
	checkDepths(t, f.tracker)
}

func TestUnknownParentRegistersAsRoot(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.RegisterComponent("Orphan", "orphan", "missing")

	node, _ := f.tracker.Node("orphan")
	if node.Depth != 0 || node.ParentID != "" {
		t.Errorf("orphan = %+v", node)
	}
	if e := f.hook.LastEntry(); e == nil || e.Level != log.WarnLevel || e.Data["parent_id"] != "missing" {
		t.Errorf("expected parent warning, got %+v", e)
	}
	if len(f.tracker.Roots()) != 1 {
		t.Errorf("roots = %+v", f.tracker.Roots())
	}
}

func TestSelfAndCyclicParentsRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.RegisterComponent("Loop", "loop", "loop")
	if n, _ := f.tracker.Node("loop"); n.ParentID != "" {
		t.Errorf("self parent accepted: %+v", n)
	}

	f.tracker.RegisterComponent("Child", "child", "loop")
	f.tracker.RegisterComponent("Loop", "loop", "child")
	if n, _ := f.tracker.Node("loop"); n.ParentID != "" || len(n.Children) != 1 {
		t.Errorf("cyclic parent accepted: %+v", n)
	}
	checkDepths(t, f.tracker)
}

func TestReRegisterMovesSubtree(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	tr := f.tracker
	tr.RegisterComponent("A", "a", "")
	tr.RegisterComponent("B", "b", "")
	tr.RegisterComponent("C", "c", "b")
	tr.RegisterComponent("D", "d", "c")

	tr.RegisterComponent("A", "a", "d")

	roots := tr.Roots()
	if len(roots) != 1 || roots[0].ComponentID != "b" {
		t.Fatalf("roots = %+v", roots)
	}
	if n, _ := tr.Node("a"); n.Depth != 3 {
		t.Errorf("a depth = %d, want 3", n.Depth)
	}

	tr.RegisterComponent("C", "c", "")
	if n, _ := tr.Node("a"); n.Depth != 2 {
		t.Errorf("a depth after moving c = %d, want 2", n.Depth)
	}
	if n, _ := tr.Node("b"); len(n.Children) != 0 {
		t.Errorf("b still lists moved child: %+v", n.Children)
	}
	if tr.ComponentCount() != 4 {
		t.Errorf("ComponentCount = %d", tr.ComponentCount())
	}
	checkDepths(t, tr)
}

func TestUnregisterCascadesDescendantsFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	tr := f.tracker
	tr.RegisterComponent("App", "app", "")
	tr.RegisterComponent("Nav", "nav", "app")
	tr.RegisterComponent("Link", "link", "nav")
	tr.RegisterComponent("Main", "main", "app")
	tr.RegisterComponent("Footer", "footer", "")

	tr.TrackRender("Link", "link", nil, nil)
	tr.CommitRender("Link", "link")

	tr.UnregisterComponent("app")

	got := unmountedIDs(f)
	want := []string{"link", "nav", "main", "app"}
	if len(got) != len(want) {
		t.Fatalf("unmounted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unmounted = %v, want %v", got, want)
		}
	}
	for _, id := range want {
		if _, ok := tr.Node(id); ok {
			t.Errorf("%s still registered", id)
		}
	}
	if roots := tr.Roots(); len(roots) != 1 || roots[0].ComponentID != "footer" {
		t.Errorf("roots = %+v", roots)
	}

	// History and metrics are independent tables.
	if len(tr.History("link")) != 1 {
		t.Error("unregister removed history")
	}
	if _, ok := tr.Monitor().Metrics("link"); !ok {
		t.Error("unregister removed metrics")
	}
}

func TestUnregisterUnknownIsSilent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.UnregisterComponent("nobody")
	if len(unmountedIDs(f)) != 0 {
		t.Error("unmounted event for unknown id")
	}
	if e := f.hook.LastEntry(); e == nil || e.Level != log.DebugLevel {
		t.Errorf("expected debug log, got %+v", e)
	}
}

func TestDepthInvariantAcrossChains(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	tr := f.tracker
	steps := []struct {
		register bool
		id       string
		parent   string
	}{
		{true, "r", ""},
		{true, "a", "r"},
		{true, "b", "a"},
		{true, "c", "b"},
		{true, "d", "r"},
		{false, "a", ""},
		{true, "a", "d"},
		{true, "b", "a"},
		{true, "c", "ghost"},
		{true, "e", "c"},
		{false, "d", ""},
		{true, "f", "c"},
	}
	for _, s := range steps {
		if s.register {
			tr.RegisterComponent(s.id, s.id, s.parent)
		} else {
			tr.UnregisterComponent(s.id)
		}
		checkDepths(t, tr)
	}

	if _, ok := tr.Node("b"); ok {
		t.Error("b should have been removed with d's subtree")
	}
	if n, ok := tr.Node("f"); !ok || n.Depth != 1 || n.ParentID != "c" {
		t.Errorf("f = %+v", n)
	}
}

func TestEmptyIDIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.RegisterComponent("Anon", "", "")
	if f.tracker.ComponentCount() != 0 || len(f.topics(types.TopicComponentMounted)) != 0 {
		t.Error("empty id registered")
	}
}
