// engine.go — Caller-owned engine instance wiring bus, monitor and tracker.
// Hosts create one Engine per instrumented application (or per test) and
// hand it to the instrumentation hook and to any dashboard feed; there is no
// package-level state.
package engine

import (
	"maps"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/internal/bus"
	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/logging"
	"github.com/brennhill/renderlens/internal/suggest"
	"github.com/brennhill/renderlens/internal/timing"
	"github.com/brennhill/renderlens/internal/tracker"
	"github.com/brennhill/renderlens/internal/types"
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	SlowThresholdMs float64          // default 16
	MaxHistorySize  int              // default 1000
	Strategy        diff.Strategy    // default Shallow
	SkipKeys        []string         // keys never reported as changes
	CustomCompare   diff.CompareFunc // equality override checked before classification
	MaxDepth        int              // fast-deep recursion bound, default 3
	Verbose         bool             // log every detected change

	SessionID string       // default: random UUID
	Clock     timing.Clock
	Logger    *log.Logger
}

// Engine is one render-tracking instance.
type Engine struct {
	sessionID string
	diffOpts  diff.Options
	verbose   bool

	bus     *bus.Bus
	monitor *timing.Monitor
	tracker *tracker.Tracker
	logger  *log.Entry

	mu       sync.Mutex
	observed map[string]map[string]any // last props passed to Observe, per component id
}

// New builds an engine from opts.
func New(opts Options) *Engine {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	logger := logging.Component(opts.Logger, "engine").WithField("session_id", opts.SessionID)

	b := bus.New(opts.Logger)
	monitor := timing.NewMonitor(b, timing.Options{
		ThresholdMs: opts.SlowThresholdMs,
		Clock:       opts.Clock,
		Logger:      opts.Logger,
	})
	tr := tracker.New(monitor, b, tracker.Options{
		MaxHistorySize: opts.MaxHistorySize,
		SessionID:      opts.SessionID,
		Logger:         opts.Logger,
	})

	e := &Engine{
		sessionID: opts.SessionID,
		diffOpts: diff.Options{
			Strategy:      opts.Strategy,
			CustomCompare: opts.CustomCompare,
			SkipKeys:      diff.KeySet(opts.SkipKeys...),
			MaxDepth:      opts.MaxDepth,
		},
		verbose:  opts.Verbose,
		bus:      b,
		monitor:  monitor,
		tracker:  tr,
		logger:   logger,
		observed: make(map[string]map[string]any),
	}

	bus.On(b, types.TopicComponentUnmounted, func(p types.ComponentUnmountedPayload) {
		e.forget(p.ComponentID)
	})
	if e.verbose {
		bus.On(b, types.TopicChangeDetected, e.logChanges)
	}
	logger.WithFields(log.Fields{
		"strategy":     opts.Strategy.String(),
		"threshold_ms": monitor.Threshold(),
	}).Debug("engine started")
	return e
}

// SessionID identifies this engine instance in exports and relayed events.
func (e *Engine) SessionID() string { return e.sessionID }

// Bus returns the engine's event bus.
func (e *Engine) Bus() *bus.Bus { return e.bus }

// Monitor returns the engine's timing monitor.
func (e *Engine) Monitor() *timing.Monitor { return e.monitor }

// Tracker returns the engine's render tracker.
func (e *Engine) Tracker() *tracker.Tracker { return e.tracker }

// Subscribe registers handler for topic on the engine bus.
func (e *Engine) Subscribe(topic types.Topic, handler bus.Handler) func() {
	return e.bus.Subscribe(topic, handler)
}

// ============================================
// Instrumentation surface
// ============================================

// Diff compares two prop bags with the engine's configured strategy.
func (e *Engine) Diff(prev, next map[string]any) []types.Change {
	return diff.Diff(prev, next, e.diffOpts)
}

// Render diffs prev against next and tracks the render. prev is nil on the
// first render. Returns the detected changes.
func (e *Engine) Render(name, id string, prev, next map[string]any) []types.Change {
	var changes []types.Change
	if prev != nil {
		changes = e.Diff(prev, next)
	}
	e.tracker.TrackRender(name, id, next, changes)
	return changes
}

// Observe tracks a render of id, diffing against the props of the previous
// Observe call for the same id.
func (e *Engine) Observe(name, id string, props map[string]any) []types.Change {
	if props == nil {
		props = map[string]any{}
	}
	e.mu.Lock()
	prev := e.observed[id]
	e.observed[id] = maps.Clone(props)
	e.mu.Unlock()

	return e.Render(name, id, prev, props)
}

// Commit marks the render of id as committed.
func (e *Engine) Commit(name, id string) {
	e.tracker.CommitRender(name, id)
}

// Mount registers id in the hierarchy.
func (e *Engine) Mount(name, id, parentID string) {
	e.tracker.RegisterComponent(name, id, parentID)
}

// Unmount removes id and its descendants from the hierarchy.
func (e *Engine) Unmount(id string) {
	e.tracker.UnregisterComponent(id)
}

// SetThreshold changes the slow-render threshold for future renders.
func (e *Engine) SetThreshold(ms float64) {
	e.monitor.SetThreshold(ms)
}

// Export snapshots history, hierarchy and metrics.
func (e *Engine) Export() types.Export {
	return e.tracker.Export()
}

// Reset wipes all recorded state. Configuration and subscribers are kept.
func (e *Engine) Reset() {
	e.tracker.Clear()
	e.mu.Lock()
	e.observed = make(map[string]map[string]any)
	e.mu.Unlock()
}

func (e *Engine) forget(id string) {
	e.mu.Lock()
	delete(e.observed, id)
	e.mu.Unlock()
}

func (e *Engine) logChanges(p types.ChangeDetectedPayload) {
	for _, c := range p.Changes {
		e.logger.WithFields(log.Fields{
			"component":    p.ComponentName,
			"component_id": p.ComponentID,
			"render":       p.RenderCount,
			"key":          c.Key,
			"reason":       string(c.Reason),
		}).Info("prop changed")
	}
}

// ============================================
// Diagnostics
// ============================================

// Report gathers everything known about one component.
type Report struct {
	ComponentID string                    `json:"component_id"`
	Node        *types.HierarchyNode      `json:"node,omitempty"`
	Metrics     *types.PerformanceMetrics `json:"metrics,omitempty"`
	RenderCount int                       `json:"render_count"`
	Pending     *types.RenderEvent        `json:"pending,omitempty"` // started, not yet committed
	History     []types.RenderEvent       `json:"history"`
	Suggestions []types.Suggestion        `json:"suggestions"`
}

// Snapshot builds the suggestion input for id from its latest changes,
// metrics and retained history.
func (e *Engine) Snapshot(id string) suggest.Snapshot {
	history := e.tracker.History(id)
	s := suggest.Snapshot{
		History:     history,
		ThresholdMs: e.monitor.Threshold(),
	}
	if len(history) > 0 {
		s.Changes = history[len(history)-1].Changes
	}
	if m, ok := e.monitor.Metrics(id); ok {
		s.Metrics = &m
	}
	return s
}

// Suggestions returns ranked suggestions for id.
func (e *Engine) Suggestions(id string) []types.Suggestion {
	return suggest.Generate(e.Snapshot(id))
}

// Report returns node, metrics, history and suggestions for id.
func (e *Engine) Report(id string) Report {
	snap := e.Snapshot(id)
	r := Report{
		ComponentID: id,
		Metrics:     snap.Metrics,
		RenderCount: e.tracker.RenderCount(id),
		History:     snap.History,
		Suggestions: suggest.Generate(snap),
	}
	if r.History == nil {
		r.History = []types.RenderEvent{}
	}
	if r.Suggestions == nil {
		r.Suggestions = []types.Suggestion{}
	}
	if n, ok := e.tracker.Node(id); ok {
		r.Node = &n
	}
	if p, ok := e.tracker.PendingRender(id); ok {
		r.Pending = &p
	}
	return r
}

// SlowComponents lists components with slow renders, slowest average first.
func (e *Engine) SlowComponents(limit int) []types.PerformanceMetrics {
	return e.monitor.SlowComponents(limit)
}
