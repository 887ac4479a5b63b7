// rules.go — Built-in suggestion rules, in evaluation order.
package suggest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/types"
)

// Thresholds used by the built-in rules.
const (
	ManyChanges           = 2   // more than this many changes escalates to warning
	FrequentRenderCount   = 50  // renders before memoizing the whole component is suggested
	ExcessiveRenderCount  = 100 // renders before that suggestion becomes critical
	SlowRenderCount       = 5   // slow renders before splitting/transition is suggested
	SplitAverageMs        = 100 // average above which splitting beats a transition
	CriticalSlowPercent   = 50
	OptimizeAverageMs     = 50
	OptimizeMinRenders    = 10
	RapidGapMs            = 10
	RapidGapCount         = 3 // more than this many rapid gaps fires
	MinHistoryForRapid    = 3
	FrequentChangePercent = 80
	MinHistoryForFrequent = 2
)

// contextLikeNames mark props that usually carry context or store values.
var contextLikeNames = []string{"value", "context", "theme", "store"}

// DefaultRules returns the built-in rules in their fixed evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		// ==========================================
		// Changes
		// ==========================================
		{ID: "stabilize-callback", Group: GroupChanges, Apply: stabilizeCallbacks},
		{ID: "memoize-value", Group: GroupChanges, Apply: memoizeValues},
		{ID: "hoist-constant", Group: GroupChanges, Apply: hoistConstants},

		// ==========================================
		// Performance
		// ==========================================
		{ID: "react-memo", Group: GroupPerformance, Apply: memoizeComponent},
		{ID: "slow-renders", Group: GroupPerformance, Apply: slowRenders},
		{ID: "optimize-render", Group: GroupPerformance, Apply: optimizeRender},

		// ==========================================
		// History patterns
		// ==========================================
		{ID: "rapid-rerender", Group: GroupHistory, Apply: rapidRerenders},
		{ID: "frequent-prop", Group: GroupHistory, Apply: frequentProps},
	}
}

func severityByCount(n int) types.Severity {
	if n > ManyChanges {
		return types.SeverityWarning
	}
	return types.SeverityInfo
}

func stabilizeCallbacks(s Snapshot) []types.Suggestion {
	keys := types.KeysByReason(s.Changes, types.ReasonFunction)
	if len(keys) == 0 {
		return nil
	}
	return []types.Suggestion{{
		Type:     "stabilize-callback",
		Severity: severityByCount(len(keys)),
		Title:    "Stabilize callback props",
		Description: fmt.Sprintf("%d callback prop(s) receive a new function on every render (%s). "+
			"Wrap them in useCallback so children can skip re-rendering.", len(keys), strings.Join(keys, ", ")),
		AffectedProps: keys,
		CodeExample: `const handleClick = useCallback(() => {
  onSelect(item.id);
}, [onSelect, item.id]);`,
	}}
}

func memoizeValues(s Snapshot) []types.Suggestion {
	keys := types.KeysByReason(s.Changes, types.ReasonReference)
	if len(keys) == 0 {
		return nil
	}

	var out []types.Suggestion
	var generic []string
	for _, k := range keys {
		if k == "style" {
			out = append(out, types.Suggestion{
				Type:     "inline-style",
				Severity: types.SeverityInfo,
				Title:    "Avoid inline style objects",
				Description: "The style prop is rebuilt on every render with identical content. " +
					"Move it to a constant or memoize it with useMemo.",
				AffectedProps: []string{k},
				CodeExample: `const cardStyle = { padding: 8, borderRadius: 4 };

<Card style={cardStyle} />`,
			})
			continue
		}
		generic = append(generic, k)
	}
	if len(generic) == 0 {
		return out
	}

	return append([]types.Suggestion{{
		Type:     "memoize-value",
		Severity: severityByCount(len(generic)),
		Title:    "Memoize object and array props",
		Description: fmt.Sprintf("%d prop(s) have the same content but a new identity on every render (%s). "+
			"Wrap them in useMemo.", len(generic), strings.Join(generic, ", ")),
		AffectedProps: generic,
		CodeExample:   `const options = useMemo(() => ({ sort, filter }), [sort, filter]);`,
	}}, out...)
}

func hoistConstants(s Snapshot) []types.Suggestion {
	var keys []string
	for _, c := range s.Changes {
		if diff.IsComposite(c.OldValue) && diff.IsComposite(c.NewValue) && diff.DeepEqual(c.OldValue, c.NewValue) {
			keys = append(keys, c.Key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return []types.Suggestion{{
		Type:     "hoist-constant",
		Severity: types.SeverityInfo,
		Title:    "Hoist static values",
		Description: fmt.Sprintf("%s never change content. Define them once at module level "+
			"instead of inside the render.", strings.Join(keys, ", ")),
		AffectedProps: keys,
		CodeExample: `const COLUMNS = ["name", "status"];

function Table() {
  return <Grid columns={COLUMNS} />;
}`,
	}}
}

func memoizeComponent(s Snapshot) []types.Suggestion {
	m := s.Metrics
	if m == nil || m.RenderCount <= FrequentRenderCount {
		return nil
	}
	severity := types.SeverityWarning
	if m.RenderCount > ExcessiveRenderCount {
		severity = types.SeverityCritical
	}
	return []types.Suggestion{{
		Type:     "react-memo",
		Severity: severity,
		Title:    "Wrap component in React.memo",
		Description: fmt.Sprintf("%s rendered %d times. If its props are usually unchanged, "+
			"React.memo lets it skip those renders.", nameOf(m), m.RenderCount),
		CodeExample: `export default React.memo(UserRow);`,
	}}
}

func slowRenders(s Snapshot) []types.Suggestion {
	m := s.Metrics
	if m == nil || m.SlowRenders <= SlowRenderCount {
		return nil
	}
	slowPct := m.SlowPercentage()
	severity := types.SeverityWarning
	if slowPct > CriticalSlowPercent {
		severity = types.SeverityCritical
	}

	if m.AverageTime > SplitAverageMs {
		return []types.Suggestion{{
			Type:     "split-component",
			Severity: severity,
			Title:    "Split the component",
			Description: fmt.Sprintf("%s averages %.1fms per render and %.0f%% of renders exceed %.0fms. "+
				"Split it into smaller components so updates touch less work.",
				nameOf(m), m.AverageTime, slowPct, s.ThresholdMs),
			CodeExample: `function Dashboard() {
  return (
    <>
      <Header />
      <ChartPanel />
      <ActivityFeed />
    </>
  );
}`,
		}}
	}
	return []types.Suggestion{{
		Type:     "use-transition",
		Severity: severity,
		Title:    "Defer non-urgent updates",
		Description: fmt.Sprintf("%s had %d renders over %.0fms (%.0f%%). "+
			"Mark expensive updates as transitions or defer derived values.",
			nameOf(m), m.SlowRenders, s.ThresholdMs, slowPct),
		CodeExample: `const [isPending, startTransition] = useTransition();

startTransition(() => setFilter(next));`,
	}}
}

func optimizeRender(s Snapshot) []types.Suggestion {
	m := s.Metrics
	if m == nil || m.AverageTime <= OptimizeAverageMs || m.RenderCount <= OptimizeMinRenders {
		return nil
	}
	return []types.Suggestion{{
		Type:     "optimize-render",
		Severity: types.SeverityWarning,
		Title:    "Optimize render work",
		Description: fmt.Sprintf("%s averages %.1fms over %d renders. Move expensive computation "+
			"into useMemo or out of the render path.", nameOf(m), m.AverageTime, m.RenderCount),
		CodeExample: `const sorted = useMemo(() => sortRows(rows), [rows]);`,
	}}
}

func rapidRerenders(s Snapshot) []types.Suggestion {
	if len(s.History) < MinHistoryForRapid {
		return nil
	}
	events := append([]types.RenderEvent(nil), s.History...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	rapid := 0
	for i := 1; i < len(events); i++ {
		gap := events[i].Timestamp.Sub(events[i-1].Timestamp).Seconds() * 1000
		if gap < RapidGapMs {
			rapid++
		}
	}
	if rapid <= RapidGapCount {
		return nil
	}
	return []types.Suggestion{{
		Type:     "rapid-rerender",
		Severity: types.SeverityWarning,
		Title:    "Rapid consecutive re-renders",
		Description: fmt.Sprintf("%d renders followed the previous one within %dms. "+
			"Batch state updates or debounce the source of updates.", rapid, RapidGapMs),
		CodeExample: `useEffect(() => {
  const id = setTimeout(() => setQuery(input), 150);
  return () => clearTimeout(id);
}, [input]);`,
	}}
}

func frequentProps(s Snapshot) []types.Suggestion {
	if len(s.History) < MinHistoryForFrequent {
		return nil
	}
	counts := make(map[string]int)
	for _, ev := range s.History {
		seen := make(map[string]bool, len(ev.Changes))
		for _, c := range ev.Changes {
			if !seen[c.Key] {
				seen[c.Key] = true
				counts[c.Key]++
			}
		}
	}

	var frequent []string
	for key, n := range counts {
		if float64(n)/float64(len(s.History))*100 > FrequentChangePercent {
			frequent = append(frequent, key)
		}
	}
	sort.Strings(frequent)

	var out []types.Suggestion
	var contextKeys []string
	for _, key := range frequent {
		pct := float64(counts[key]) / float64(len(s.History)) * 100
		out = append(out, types.Suggestion{
			Type:     "frequent-prop",
			Severity: types.SeverityInfo,
			Title:    fmt.Sprintf("Prop %q changes on most renders", key),
			Description: fmt.Sprintf("%s changed in %.0f%% of the last %d renders. Check whether the parent "+
				"recreates it needlessly or whether it can move closer to where it is used.", key, pct, len(s.History)),
			AffectedProps: []string{key},
		})
		if isContextLike(key) {
			contextKeys = append(contextKeys, key)
		}
	}
	if len(contextKeys) > 0 {
		out = append(out, types.Suggestion{
			Type:     "context-thrashing",
			Severity: types.SeverityWarning,
			Title:    "Context value recreated on every render",
			Description: fmt.Sprintf("%s look like context or store values and change on nearly every render. "+
				"Memoize the provider value or split the context.", strings.Join(contextKeys, ", ")),
			AffectedProps: contextKeys,
			CodeExample: `const value = useMemo(() => ({ user, setUser }), [user]);

<UserContext.Provider value={value}>`,
		})
	}
	return out
}

func isContextLike(key string) bool {
	lower := strings.ToLower(key)
	for _, name := range contextLikeNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

func nameOf(m *types.PerformanceMetrics) string {
	if m.ComponentName != "" {
		return m.ComponentName
	}
	return m.ComponentID
}
