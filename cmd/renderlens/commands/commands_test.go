// commands_test.go — Tests for command argument parsing and result building.
package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/types"
)

const trace = `{"op":"mount","at_ms":0,"name":"App","id":"app"}
{"op":"mount","at_ms":0,"name":"Feed","id":"feed","parent_id":"app"}
{"op":"render","at_ms":1,"name":"Feed","id":"feed","props":{"page":1,"onMore":{"$fn":"more"}}}
{"op":"commit","at_ms":41,"name":"Feed","id":"feed"}
{"op":"render","at_ms":50,"name":"Feed","id":"feed","props":{"page":2,"onMore":{"$fn":"more"}}}
{"op":"commit","at_ms":90,"name":"Feed","id":"feed"}
{"op":"render","at_ms":91,"name":"App","id":"app"}
{"op":"commit","at_ms":92,"name":"App","id":"app"}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplayArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		args      []string
		wantPath  string
		wantOpts  ReplayOptions
		wantError bool
	}{
		{"path only", []string{"t.jsonl"}, "t.jsonl", ReplayOptions{}, false},
		{"component and limit", []string{"--component", "feed", "t.jsonl", "--limit", "2"}, "t.jsonl", ReplayOptions{Component: "feed", Limit: 2}, false},
		{"missing path", nil, "", ReplayOptions{}, true},
		{"two paths", []string{"a", "b"}, "", ReplayOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path, opts, err := ReplayArgs(tt.args)
			if (err != nil) != tt.wantError {
				t.Fatalf("err = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				return
			}
			if path != tt.wantPath || opts != tt.wantOpts {
				t.Errorf("ReplayArgs = %q, %+v; want %q, %+v", path, opts, tt.wantPath, tt.wantOpts)
			}
		})
	}
}

func TestReplaySummary(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "trace.jsonl", trace)
	eng, report, err := Replay(context.Background(), path, engine.Options{}, ReplayOptions{})
	if err != nil {
		t.Fatalf("Replay error = %v", err)
	}
	if eng.Tracker().RenderCount("feed") != 2 {
		t.Errorf("feed renders = %d", eng.Tracker().RenderCount("feed"))
	}
	if len(report.Components) != 2 {
		t.Fatalf("len(components) = %d, want 2", len(report.Components))
	}

	s := report.Session
	if !report.OK() || s.Status != "ok" || s.TraceDurationMs != 92 || s.Failures != nil {
		t.Errorf("session = %+v", s)
	}

	// Slowest component first.
	feed := report.Components[0]
	if feed.ComponentID != "feed" || feed.Name != "Feed" || feed.AvgMs != 40.0 || feed.SlowRenders != 2 || feed.Depth != 1 {
		t.Errorf("feed = %+v", feed)
	}
	if len(feed.LastChanges) != 1 || feed.LastChanges[0].Key != "page" || feed.LastChanges[0].Reason != types.ReasonValue {
		t.Errorf("feed last changes = %+v", feed.LastChanges)
	}
	if app := report.Components[1]; app.ComponentID != "app" || app.Depth != 0 || !app.Committed {
		t.Errorf("app = %+v", app)
	}
}

func TestComponentSummaryWithoutCommit(t *testing.T) {
	t.Parallel()

	c := ComponentSummary(engine.Report{
		ComponentID: "ghost",
		RenderCount: 1,
		History:     []types.RenderEvent{{ComponentName: "Ghost", ComponentID: "ghost"}},
	})
	if c.Committed || c.Depth != -1 || c.Name != "Ghost" || c.LastChanges == nil || len(c.LastChanges) != 0 {
		t.Errorf("summary = %+v", c)
	}
}

func TestReplayComponentFilter(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "trace.jsonl", trace)
	_, report, err := Replay(context.Background(), path, engine.Options{}, ReplayOptions{Component: "app"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Components) != 1 || report.Components[0].ComponentID != "app" {
		t.Errorf("components = %+v", report.Components)
	}
}

func TestReplayMissingFile(t *testing.T) {
	t.Parallel()

	if _, _, err := Replay(context.Background(), "/nonexistent.jsonl", engine.Options{}, ReplayOptions{}); err == nil {
		t.Fatal("expected error for missing trace")
	}
}

func TestDiffFiles(t *testing.T) {
	t.Parallel()

	prev := writeFile(t, "prev.json", `{"count": 1, "items": [1, 2], "style": {"color": "red"}, "gone": true}`)
	next := writeFile(t, "next.json", `{"count": 1, "items": [1, 2, 3], "style": {"color": "red"}}`)

	report, err := DiffFiles(prev, next, diff.Options{Strategy: diff.Deep})
	if err != nil {
		t.Fatalf("DiffFiles error = %v", err)
	}
	if len(report.Changes) != 3 || report.Strategy != "deep" {
		t.Fatalf("report = %+v", report)
	}

	reasons := map[string]types.Reason{}
	for _, c := range report.Changes {
		reasons[c.Key] = c.Reason
	}
	want := map[string]types.Reason{"gone": types.ReasonType, "items": types.ReasonLength, "style": types.ReasonReference}
	for k, v := range want {
		if reasons[k] != v {
			t.Errorf("reason[%s] = %v, want %v", k, reasons[k], v)
		}
	}
	wantCounts := map[types.Reason]int{types.ReasonType: 1, types.ReasonLength: 1, types.ReasonReference: 1}
	if len(report.ByReason) != len(wantCounts) {
		t.Errorf("by reason = %v", report.ByReason)
	}
	for r, n := range wantCounts {
		if report.ByReason[r] != n {
			t.Errorf("by reason[%s] = %d, want %d", r, report.ByReason[r], n)
		}
	}
}

func TestDiffArgsAndErrors(t *testing.T) {
	t.Parallel()

	if _, _, err := DiffArgs([]string{"only-one.json"}); err == nil {
		t.Error("expected error for one file")
	}
	bad := writeFile(t, "bad.json", `[1, 2]`)
	good := writeFile(t, "good.json", `{}`)
	if _, err := DiffFiles(bad, good, diff.Options{}); err == nil || !strings.Contains(err.Error(), "not a JSON object") {
		t.Errorf("err = %v", err)
	}
}
