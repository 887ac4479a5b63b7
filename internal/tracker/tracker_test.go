package tracker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/brennhill/renderlens/internal/buffers"
	"github.com/brennhill/renderlens/internal/bus"
	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/timing"
	"github.com/brennhill/renderlens/internal/types"
)

type fixture struct {
	tracker *Tracker
	clock   *timing.ManualClock
	bus     *bus.Bus
	hook    *test.Hook
	events  []bus.Event
}

func newFixture(t *testing.T, historySize int) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	clock := timing.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	b := bus.New(logger)
	f := &fixture{clock: clock, bus: b, hook: hook}
	b.SubscribeAll(func(ev bus.Event) { f.events = append(f.events, ev) })
	monitor := timing.NewMonitor(b, timing.Options{Clock: clock, Logger: logger})
	f.tracker = New(monitor, b, Options{MaxHistorySize: historySize, SessionID: "sess-1", Logger: logger})
	return f
}

func (f *fixture) topics(topic types.Topic) []bus.Event {
	var out []bus.Event
	for _, ev := range f.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}

func TestEndToEndScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	tr := f.tracker

	tr.RegisterComponent("App", "app-1", "")
	tr.RegisterComponent("Child", "child-1", "app-1")

	first := map[string]any{"value": 1}
	tr.TrackRender("Child", "child-1", first, nil)
	f.clock.Advance(3 * time.Millisecond)
	tr.CommitRender("Child", "child-1")

	second := map[string]any{"value": 2}
	changes := diff.Diff(first, second, diff.Options{Strategy: diff.Shallow})
	if len(changes) != 1 || changes[0].Key != "value" || changes[0].Reason != types.ReasonValue {
		t.Fatalf("changes = %+v", changes)
	}
	f.clock.Advance(time.Millisecond)
	tr.TrackRender("Child", "child-1", second, changes)
	f.clock.Advance(2 * time.Millisecond)
	tr.CommitRender("Child", "child-1")

	export := tr.Export()
	if export.SessionID != "sess-1" {
		t.Errorf("SessionID = %q", export.SessionID)
	}
	if len(export.Hierarchy) != 1 {
		t.Fatalf("hierarchy = %+v", export.Hierarchy)
	}
	root := export.Hierarchy[0]
	if root.ComponentID != "app-1" || len(root.Children) != 1 || root.Children[0].ComponentID != "child-1" {
		t.Errorf("hierarchy = %+v", export.Hierarchy)
	}
	if root.Children[0].Depth != 1 || root.Children[0].ParentID != "app-1" {
		t.Errorf("child node = %+v", root.Children[0])
	}

	if got := len(tr.History("child-1")); got != 2 {
		t.Errorf("child-1 history = %d, want 2", got)
	}
	if len(export.History) != 2 || len(export.History[0].Changes) != 0 || len(export.History[1].Changes) != 1 {
		t.Errorf("history = %+v", export.History)
	}
	if export.History[0].Duration != 3 || export.History[1].Duration != 2 || !export.History[1].Committed {
		t.Errorf("durations = %v, %v", export.History[0].Duration, export.History[1].Duration)
	}
	if m := export.Metrics["child-1"]; m.RenderCount != 2 {
		t.Errorf("metrics = %+v", m)
	}

	if got := len(f.topics(types.TopicChangeDetected)); got != 1 {
		t.Errorf("change:detected events = %d, want 1", got)
	}
	ends := f.topics(types.TopicRenderEnd)
	if len(ends) != 2 {
		t.Fatalf("render:end events = %d", len(ends))
	}
	last := ends[1].Payload.(types.RenderEndPayload)
	if last.Event.RenderCount != 2 || last.Event.Duration != 2 || last.Event.Props["value"] != 2 {
		t.Errorf("render:end event = %+v", last.Event)
	}
}

func TestHistoryBoundKeepsNewest(t *testing.T) {
	t.Parallel()

	const capacity = 5
	f := newFixture(t, capacity)
	for i := 0; i < 12; i++ {
		f.tracker.TrackRender("Item", "item", map[string]any{"i": i}, nil)
		f.tracker.CommitRender("Item", "item")
	}

	all := f.tracker.AllHistory()
	if len(all) != capacity {
		t.Fatalf("history length = %d, want %d", len(all), capacity)
	}
	for i, ev := range all {
		if want := 12 - capacity + i; ev.Props["i"] != want {
			t.Errorf("entry %d props = %v, want i=%d", i, ev.Props, want)
		}
	}
	if f.tracker.RenderCount("item") != 12 {
		t.Errorf("RenderCount = %d", f.tracker.RenderCount("item"))
	}
}

func TestEventIDsUniqueWithinMillisecond(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ev := f.tracker.TrackRender("Row", "row", nil, nil)
		if seen[ev.ID] {
			t.Fatalf("duplicate id %s", ev.ID)
		}
		seen[ev.ID] = true
	}
}

func TestCommitFinalizesLatestPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	older := f.tracker.TrackRender("Form", "form", map[string]any{"n": 1}, nil)
	f.clock.Advance(time.Millisecond)
	newer := f.tracker.TrackRender("Form", "form", map[string]any{"n": 2}, nil)
	f.clock.Advance(4 * time.Millisecond)
	f.tracker.CommitRender("Form", "form")

	for _, ev := range f.tracker.History("form") {
		switch ev.ID {
		case older.ID:
			if ev.Committed || ev.Duration != 0 {
				t.Errorf("older render finalized: %+v", ev)
			}
		case newer.ID:
			if !ev.Committed || ev.Duration != 4 {
				t.Errorf("newer render = %+v", ev)
			}
		}
	}
}

func TestInterleavedCommitsPairById(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.TrackRender("A", "a", nil, nil)
	f.clock.Advance(time.Millisecond)
	f.tracker.TrackRender("B", "b", nil, nil)
	f.clock.Advance(time.Millisecond)
	f.tracker.CommitRender("A", "a")
	f.clock.Advance(5 * time.Millisecond)
	f.tracker.CommitRender("B", "b")

	if h := f.tracker.History("a"); h[0].Duration != 2 {
		t.Errorf("a duration = %v", h[0].Duration)
	}
	if h := f.tracker.History("b"); h[0].Duration != 6 {
		t.Errorf("b duration = %v", h[0].Duration)
	}
}

func TestCommitWithoutTrack(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.CommitRender("Lost", "lost")

	if got := len(f.topics(types.TopicRenderEnd)); got != 0 {
		t.Errorf("render:end published for unmatched commit")
	}
	if e := f.hook.LastEntry(); e == nil || e.Level != log.WarnLevel {
		t.Errorf("expected warning, got %+v", e)
	}
}

func TestCommitAfterEviction(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.tracker.TrackRender("Slow", "slow", nil, nil)
	for i := 0; i < 3; i++ {
		f.tracker.TrackRender("Other", fmt.Sprintf("o%d", i), nil, nil)
	}
	f.clock.Advance(7 * time.Millisecond)
	f.tracker.CommitRender("Slow", "slow")

	ends := f.topics(types.TopicRenderEnd)
	if len(ends) != 1 {
		t.Fatalf("render:end events = %d", len(ends))
	}
	p := ends[0].Payload.(types.RenderEndPayload)
	if p.Duration != 7 || p.Event.ID != "" {
		t.Errorf("payload = %+v", p)
	}
	if m, ok := f.tracker.Monitor().Metrics("slow"); !ok || m.RenderCount != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestAllHistoryStableOnEqualTimestamps(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.TrackRender("X", "x", nil, nil)
	f.tracker.TrackRender("Y", "y", nil, nil)
	f.tracker.TrackRender("X", "x", nil, nil)

	all := f.tracker.AllHistory()
	got := []string{all[0].ComponentID, all[1].ComponentID, all[2].ComponentID}
	if got[0] != "x" || got[1] != "y" || got[2] != "x" || all[2].RenderCount != 2 {
		t.Errorf("order = %v", got)
	}
	if recent := f.tracker.RecentRenders(2); len(recent) != 2 || recent[0].ComponentID != "y" {
		t.Errorf("RecentRenders(2) = %+v", recent)
	}
	if f.tracker.RecentRenders(0) != nil {
		t.Error("RecentRenders(0) should be nil")
	}
}

func TestHistorySinceCursor(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.TrackRender("A", "a", nil, nil)
	got, cur := f.tracker.HistorySince(buffers.Cursor{})
	if len(got) != 1 {
		t.Fatalf("first poll = %d", len(got))
	}
	f.tracker.TrackRender("B", "b", nil, nil)
	got, _ = f.tracker.HistorySince(cur)
	if len(got) != 1 || got[0].ComponentID != "b" {
		t.Errorf("second poll = %+v", got)
	}
}

func TestPropsSnapshotIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	props := map[string]any{"label": "a"}
	f.tracker.TrackRender("L", "l", props, nil)
	props["label"] = "mutated"

	if got := f.tracker.History("l")[0].Props["label"]; got != "a" {
		t.Errorf("stored props mutated: %v", got)
	}
}

func TestSubscriberMayReadTracker(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	var seen int
	f.bus.Subscribe(types.TopicRenderEnd, func(bus.Event) {
		seen = len(f.tracker.Export().History)
	})
	f.tracker.TrackRender("A", "a", nil, nil)
	f.tracker.CommitRender("A", "a")
	if seen != 1 {
		t.Errorf("subscriber saw %d events", seen)
	}
}

func TestClearWipesState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.tracker.RegisterComponent("App", "app", "")
	f.tracker.TrackRender("App", "app", nil, nil)
	f.tracker.CommitRender("App", "app")
	f.tracker.TrackRender("App", "app", nil, nil)

	f.tracker.Clear()

	export := f.tracker.Export()
	if len(export.History) != 0 || len(export.Hierarchy) != 0 || len(export.Metrics) != 0 {
		t.Errorf("export after Clear = %+v", export)
	}
	if f.tracker.RenderCount("app") != 0 || f.tracker.Monitor().Pending("app") {
		t.Error("counters or pending start survived Clear")
	}
	ends := len(f.topics(types.TopicRenderEnd))
	f.tracker.CommitRender("App", "app")
	if len(f.topics(types.TopicRenderEnd)) != ends {
		t.Error("commit after Clear published render:end")
	}
}

func TestConcurrentRenders(t *testing.T) {
	b := bus.New(nil)
	tr := New(timing.NewMonitor(b, timing.Options{}), b, Options{MaxHistorySize: 64})
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", w)
			for i := 0; i < 100; i++ {
				tr.TrackRender("C", id, nil, nil)
				tr.CommitRender("C", id)
				_ = tr.Export()
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < 8; w++ {
		if got := tr.RenderCount(fmt.Sprintf("c%d", w)); got != 100 {
			t.Errorf("c%d count = %d", w, got)
		}
	}
}

func TestPendingRenderAndStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	if _, ok := f.tracker.PendingRender("x"); ok {
		t.Fatal("no render started yet")
	}

	f.tracker.TrackRender("X", "x", map[string]any{"n": 1}, nil)
	pending, ok := f.tracker.PendingRender("x")
	if !ok || pending.Committed || pending.Props["n"] != 1 {
		t.Fatalf("PendingRender = %+v, %v", pending, ok)
	}
	f.clock.Advance(3 * time.Millisecond)
	f.tracker.CommitRender("X", "x")
	if _, ok := f.tracker.PendingRender("x"); ok {
		t.Error("committed render still pending")
	}

	// A pending entry evicted from the ring is no longer reported.
	f.tracker.TrackRender("X", "x", nil, nil)
	f.tracker.TrackRender("Y", "y", nil, nil)
	f.tracker.TrackRender("Z", "z", nil, nil)
	if _, ok := f.tracker.PendingRender("x"); ok {
		t.Error("evicted render reported as pending")
	}

	stats := f.tracker.Stats()
	if stats.Len != 2 || stats.Cap != 2 || stats.Cursor != 4 {
		t.Errorf("Stats = %+v, want len 2 cap 2 cursor 4", stats)
	}
	f.tracker.Clear()
	if stats := f.tracker.Stats(); stats.Len != 0 || stats.Cursor != 4 {
		t.Errorf("Stats after Clear = %+v", stats)
	}
}
