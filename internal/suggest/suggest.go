// suggest.go — Stateless analyzers turning render observations into ranked suggestions.
// Each heuristic is an independent Rule evaluated against a read-only
// Snapshot; every applicable rule fires and the results are ranked by
// severity, keeping rule order among equals.
package suggest

import (
	"slices"
	"sort"

	"github.com/brennhill/renderlens/internal/types"
)

// Group partitions rules by the data they read.
type Group string

const (
	GroupChanges     Group = "changes"
	GroupPerformance Group = "performance"
	GroupHistory     Group = "history"
)

// Snapshot is the data a rule may inspect. Rules must not modify it.
type Snapshot struct {
	Changes     []types.Change
	Metrics     *types.PerformanceMetrics
	History     []types.RenderEvent
	ThresholdMs float64
}

// Rule is one heuristic. Apply returns nil when the rule does not fire.
type Rule struct {
	ID    string
	Group Group
	Apply func(Snapshot) []types.Suggestion
}

// Evaluate runs rules in order against s, restricted to groups when any are
// given, and returns the concatenated suggestions unranked.
func Evaluate(rules []Rule, s Snapshot, groups ...Group) []types.Suggestion {
	var out []types.Suggestion
	for _, r := range rules {
		if len(groups) > 0 && !slices.Contains(groups, r.Group) {
			continue
		}
		out = append(out, r.Apply(s)...)
	}
	return out
}

// AnalyzeChanges runs the change rules over one render's changes.
func AnalyzeChanges(changes []types.Change) []types.Suggestion {
	return Rank(Evaluate(DefaultRules(), Snapshot{Changes: changes}, GroupChanges))
}

// AnalyzePerformance runs the timing rules over one entity's metrics.
func AnalyzePerformance(metrics types.PerformanceMetrics, thresholdMs float64) []types.Suggestion {
	return Rank(Evaluate(DefaultRules(), Snapshot{Metrics: &metrics, ThresholdMs: thresholdMs}, GroupPerformance))
}

// AnalyzeHistory runs the pattern rules over a window of render events.
func AnalyzeHistory(history []types.RenderEvent) []types.Suggestion {
	return Rank(Evaluate(DefaultRules(), Snapshot{History: history}, GroupHistory))
}

// Generate runs every default rule against s and ranks the result.
func Generate(s Snapshot) []types.Suggestion {
	return Rank(Evaluate(DefaultRules(), s))
}

// Rank orders suggestions critical, warning, info. Equal severities keep
// their input order. The input slice is not modified.
func Rank(in []types.Suggestion) []types.Suggestion {
	out := append([]types.Suggestion(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() < out[j].Severity.Rank()
	})
	return out
}
