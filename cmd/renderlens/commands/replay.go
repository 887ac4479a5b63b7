// replay.go — Replays a trace and summarizes every component it touched.
package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/brennhill/renderlens/cmd/renderlens/output"
	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/recording"
	"github.com/brennhill/renderlens/internal/types"
)

// ReplayOptions selects what the replay summary includes.
type ReplayOptions struct {
	Component string // only report this component id
	Limit     int    // max components in the summary, slowest first (0 = all)
}

// ReplayArgs parses `replay <trace> [--component id] [--limit n]`.
func ReplayArgs(args []string) (string, ReplayOptions, error) {
	var opts ReplayOptions
	remaining := args
	opts.Component, remaining = parseFlag(remaining, "--component")
	opts.Limit, _, remaining = parseFlagInt(remaining, "--limit")

	pos := positional(remaining)
	if len(pos) != 1 {
		return "", opts, fmt.Errorf("replay requires exactly one trace file")
	}
	return pos[0], opts, nil
}

// Replay replays the trace at path into a new engine and returns the engine
// with a report covering the session and each selected component.
func Replay(ctx context.Context, path string, engOpts engine.Options, opts ReplayOptions) (*engine.Engine, *output.ReplayReport, error) {
	eng, session, err := recording.ReplayFile(ctx, path, engOpts)
	if err != nil {
		return eng, nil, err
	}

	ids := componentIDs(eng)
	if opts.Component != "" {
		ids = []string{opts.Component}
	}
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}

	report := &output.ReplayReport{
		Session:    sessionSummary(path, session),
		Components: make([]output.ComponentSummary, 0, len(ids)),
	}
	for _, id := range ids {
		report.Components = append(report.Components, ComponentSummary(eng.Report(id)))
	}
	return eng, report, nil
}

func sessionSummary(path string, session *recording.PlaybackSession) output.SessionSummary {
	s := output.SessionSummary{
		Trace:           path,
		Status:          session.Status(),
		StepsExecuted:   session.StepsExecuted,
		StepsFailed:     session.StepsFailed,
		TraceDurationMs: session.TraceDurationMs,
	}
	for _, res := range session.Results {
		if res.Status == "error" {
			s.Failures = append(s.Failures, fmt.Sprintf("step %d: %s", res.Index, res.Error))
		}
	}
	return s
}

// ComponentSummary condenses a component report: timings, the changes of its
// latest render and its suggestions.
func ComponentSummary(rep engine.Report) output.ComponentSummary {
	c := output.ComponentSummary{
		ComponentID: rep.ComponentID,
		Depth:       -1,
		Renders:     rep.RenderCount,
		LastChanges: []types.Change{},
		Suggestions: rep.Suggestions,
	}
	if rep.Node != nil {
		c.Name = rep.Node.ComponentName
		c.Depth = rep.Node.Depth
	}
	if m := rep.Metrics; m != nil {
		c.Name = m.ComponentName
		c.Committed = true
		c.AvgMs = round2(m.AverageTime)
		c.MaxMs = round2(m.MaxRenderTime)
		c.SlowRenders = m.SlowRenders
	}
	if n := len(rep.History); n > 0 {
		last := rep.History[n-1]
		if c.Name == "" {
			c.Name = last.ComponentName
		}
		if len(last.Changes) > 0 {
			c.LastChanges = last.Changes
		}
	}
	return c
}

// componentIDs lists components with committed renders, slowest average
// first, followed by components that only rendered or mounted, by id.
func componentIDs(eng *engine.Engine) []string {
	export := eng.Export()

	metrics := make([]types.PerformanceMetrics, 0, len(export.Metrics))
	for _, m := range export.Metrics {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].AverageTime != metrics[j].AverageTime {
			return metrics[i].AverageTime > metrics[j].AverageTime
		}
		return metrics[i].ComponentID < metrics[j].ComponentID
	})

	seen := make(map[string]bool, len(metrics))
	ids := make([]string, 0, len(metrics))
	for _, m := range metrics {
		seen[m.ComponentID] = true
		ids = append(ids, m.ComponentID)
	}

	var rest []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			rest = append(rest, id)
		}
	}
	for _, ev := range export.History {
		add(ev.ComponentID)
	}
	for _, root := range export.Hierarchy {
		root.Walk(func(n types.HierarchyNode) { add(n.ComponentID) })
	}
	sort.Strings(rest)
	return append(ids, rest...)
}
