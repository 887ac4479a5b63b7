// playback_unit_test.go — Unit tests for trace replay and recording.
package recording

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/timing"
	"github.com/brennhill/renderlens/internal/types"
)

func replaySample(t *testing.T) (*engine.Engine, *PlaybackSession) {
	t.Helper()
	steps, err := Read(strings.NewReader(sampleTrace))
	if err != nil {
		t.Fatal(err)
	}
	clock := timing.NewManualClock(time.Unix(1700000000, 0))
	eng := engine.New(engine.Options{Clock: clock})
	session, err := Replay(context.Background(), eng, clock, steps)
	if err != nil {
		t.Fatalf("Replay error = %v", err)
	}
	return eng, session
}

func TestReplayDrivesEngine(t *testing.T) {
	t.Parallel()

	eng, session := replaySample(t)
	if session.Status() != "ok" || session.StepsExecuted != 7 || session.TraceDurationMs != 50 {
		t.Fatalf("session = %+v", session)
	}

	history := eng.Tracker().History("counter")
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].Duration != 4 || history[1].Duration != 30 {
		t.Errorf("durations = %v, %v; want 4, 30", history[0].Duration, history[1].Duration)
	}

	// The $fn marker keeps the callable identity, so only count changed.
	changes := history[1].Changes
	if len(changes) != 1 || changes[0].Key != "count" || changes[0].Reason != types.ReasonValue {
		t.Errorf("changes = %+v", changes)
	}

	metrics, ok := eng.Monitor().Metrics("counter")
	if !ok || metrics.SlowRenders != 1 {
		t.Errorf("metrics = %+v", metrics)
	}
	if eng.Tracker().ComponentCount() != 0 {
		t.Error("unmount of app should cascade to counter")
	}
}

func TestResolverMarkers(t *testing.T) {
	t.Parallel()

	res := newResolver()
	first := res.decode(map[string]any{
		"onClick": map[string]any{"$fn": "click"},
		"other":   map[string]any{"$fn": "other"},
		"style":   map[string]any{"$ref": "style", "value": map[string]any{"color": "red"}},
		"inline":  map[string]any{"color": "red"},
	})
	second := res.decode(map[string]any{
		"onClick": map[string]any{"$fn": "click"},
		"other":   map[string]any{"$fn": "other"},
		"style":   map[string]any{"$ref": "style"},
		"inline":  map[string]any{"color": "red"},
	})

	eng := engine.New(engine.Options{})
	changes := eng.Diff(first, second)
	if len(changes) != 1 || changes[0].Key != "inline" || changes[0].Reason != types.ReasonValue {
		t.Fatalf("changes = %+v", changes)
	}
	if got := eng.Diff(map[string]any{"f": first["onClick"]}, map[string]any{"f": first["other"]}); len(got) != 1 || got[0].Reason != types.ReasonFunction {
		t.Errorf("distinct $fn names should differ: %+v", got)
	}
	if style, ok := second["style"].(map[string]any); !ok || style["color"] != "red" {
		t.Errorf("$ref value not kept: %#v", second["style"])
	}
}

func TestReplayContinuesAfterFailedStep(t *testing.T) {
	t.Parallel()

	clock := timing.NewManualClock(time.Unix(0, 0))
	eng := engine.New(engine.Options{Clock: clock})
	steps := []Step{
		{Op: OpRender, Name: "A", ID: "a"},
		{Op: "hydrate", ID: "a"},
		{Op: OpCommit, Name: "A", ID: "a", AtMs: 2},
	}
	session, err := Replay(context.Background(), eng, clock, steps)
	if err != nil {
		t.Fatal(err)
	}
	if session.Status() != "partial" || session.StepsFailed != 1 || session.StepsExecuted != 2 {
		t.Fatalf("session = %+v", session)
	}
	if !strings.Contains(session.Results[1].Error, ErrUnknownOp.Error()) {
		t.Errorf("error = %q", session.Results[1].Error)
	}
	if eng.Tracker().RenderCount("a") != 1 {
		t.Error("render after failed step not replayed")
	}
}

func TestReplayStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clock := timing.NewManualClock(time.Unix(0, 0))
	session, err := Replay(ctx, engine.New(engine.Options{Clock: clock}), clock, []Step{{Op: OpMount, ID: "a"}})
	if !errors.Is(err, context.Canceled) || len(session.Results) != 0 {
		t.Fatalf("Replay = %+v, %v", session, err)
	}
	if session.Status() != "failed" {
		t.Errorf("Status = %q, want failed", session.Status())
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	t.Parallel()

	clock := timing.NewManualClock(time.Unix(1000, 0))
	live := engine.New(engine.Options{Clock: clock})
	rec := NewRecorder(live, clock)

	onClick := func() {}
	style := map[string]any{"color": "red"}
	tags := []string{} // no identity; reported as changed on every render
	rec.Mount("List", "list", "")
	for i := 0; i < 3; i++ {
		clock.Advance(time.Millisecond)
		rec.Render("List", "list", map[string]any{
			"onClick": onClick,
			"style":   style,
			"items":   []any{"a", "b"},
			"tags":    tags,
			"page":    i,
		})
		clock.Advance(20 * time.Millisecond)
		rec.Commit("List", "list")
	}
	rec.Unmount("list")

	var buf bytes.Buffer
	if err := Write(&buf, rec.Steps()); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	replayed, session, err := ReplayFile(context.Background(), path, engine.Options{})
	if err != nil || session.Status() != "ok" {
		t.Fatalf("ReplayFile = %+v, %v", session, err)
	}

	want := live.Tracker().History("list")
	got := replayed.Tracker().History("list")
	if len(got) != len(want) {
		t.Fatalf("replayed %d renders, live %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Duration != want[i].Duration {
			t.Errorf("render %d duration = %v, want %v", i, got[i].Duration, want[i].Duration)
		}
		if len(got[i].Changes) != len(want[i].Changes) {
			t.Errorf("render %d changes = %+v, want %+v", i, got[i].Changes, want[i].Changes)
			continue
		}
		for j := range want[i].Changes {
			if got[i].Changes[j].Key != want[i].Changes[j].Key || got[i].Changes[j].Reason != want[i].Changes[j].Reason {
				t.Errorf("render %d change %d = %+v, want %+v", i, j, got[i].Changes[j], want[i].Changes[j])
			}
		}
	}
}
