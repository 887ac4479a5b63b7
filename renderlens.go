// Package renderlens explains why UI components re-render.
//
// An Engine is created by the host and driven by an instrumentation hook:
//
//	eng := renderlens.New(renderlens.Options{Strategy: renderlens.FastDeep})
//	eng.Mount("App", "app-1", "")
//	eng.Observe("App", "app-1", props) // render phase
//	eng.Commit("App", "app-1")         // after commit
//	report := eng.Report("app-1")
//
// Consumers subscribe to bus topics or pull Export.
package renderlens

import (
	"github.com/brennhill/renderlens/internal/bus"
	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/types"
)

type (
	Engine  = engine.Engine
	Options = engine.Options
	Report  = engine.Report

	Strategy    = diff.Strategy
	CompareFunc = diff.CompareFunc

	Event   = bus.Event
	Handler = bus.Handler
	Topic   = types.Topic

	Change             = types.Change
	Reason             = types.Reason
	RenderEvent        = types.RenderEvent
	HierarchyNode      = types.HierarchyNode
	PerformanceMetrics = types.PerformanceMetrics
	Suggestion         = types.Suggestion
	Severity           = types.Severity
	Export             = types.Export
)

// Comparison strategies.
const (
	Shallow  = diff.Shallow
	Deep     = diff.Deep
	FastDeep = diff.FastDeep
	Custom   = diff.Custom
)

// Event topics.
const (
	TopicRenderStart        = types.TopicRenderStart
	TopicRenderEnd          = types.TopicRenderEnd
	TopicChangeDetected     = types.TopicChangeDetected
	TopicPerformanceWarning = types.TopicPerformanceWarning
	TopicComponentMounted   = types.TopicComponentMounted
	TopicComponentUnmounted = types.TopicComponentUnmounted
)

// New creates an engine.
func New(opts Options) *Engine {
	return engine.New(opts)
}

// ParseStrategy maps "shallow", "deep", "fast-deep" or "custom" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	return diff.ParseStrategy(name)
}

// Diff compares two prop bags outside any engine.
func Diff(prev, next map[string]any, strategy Strategy, skipKeys ...string) []Change {
	return diff.Diff(prev, next, diff.Options{Strategy: strategy, SkipKeys: diff.KeySet(skipKeys...)})
}
