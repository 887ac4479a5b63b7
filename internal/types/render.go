// render.go — Render history, hierarchy and metrics types.
//
// JSON CONVENTION: All fields use snake_case. Durations are milliseconds.
package types

import (
	"encoding/json"
	"math"
	"time"
)

// ============================================
// Render Events
// ============================================

// RenderEvent is one observed render of one tracked entity.
// Duration is 0 while the render is pending and is set once at commit.
type RenderEvent struct {
	ID            string         `json:"id"`
	ComponentName string         `json:"component_name"`
	ComponentID   string         `json:"component_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Duration      float64        `json:"duration_ms"`
	Changes       []Change       `json:"changes"`
	Props         map[string]any `json:"props,omitempty"`
	RenderCount   int            `json:"render_count"`
	Committed     bool           `json:"committed"`
}

// MarshalJSON writes props in their display form. Changes carry their own.
func (e RenderEvent) MarshalJSON() ([]byte, error) {
	type plain RenderEvent
	out := plain(e)
	out.Props = DisplayProps(e.Props)
	return json.Marshal(out)
}

// ============================================
// Hierarchy
// ============================================

// HierarchyNode is one entity's position in the component tree, as exported.
// ParentID is empty for roots. Children are ordered by registration.
type HierarchyNode struct {
	ComponentName string          `json:"component_name"`
	ComponentID   string          `json:"component_id"`
	Depth         int             `json:"depth"`
	ParentID      string          `json:"parent_id,omitempty"`
	Children      []HierarchyNode `json:"children"`
}

// Walk visits n and every descendant depth-first, parents before children.
func (n HierarchyNode) Walk(fn func(HierarchyNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ============================================
// Performance Metrics
// ============================================

// PerformanceMetrics is the running aggregate of completed renders for one entity.
type PerformanceMetrics struct {
	ComponentID    string  `json:"component_id"`
	ComponentName  string  `json:"component_name"`
	RenderCount    int     `json:"render_count"`
	TotalTime      float64 `json:"total_time_ms"`
	AverageTime    float64 `json:"average_time_ms"`
	LastRenderTime float64 `json:"last_render_time_ms"`
	SlowRenders    int     `json:"slow_renders"`
	MaxRenderTime  float64 `json:"max_render_time_ms"`
	MinRenderTime  float64 `json:"min_render_time_ms"`
}

// Record folds one completed render into the aggregate. slow marks the render
// as exceeding the threshold in force when it completed.
func (m *PerformanceMetrics) Record(duration float64, slow bool) {
	if m.RenderCount == 0 || duration < m.MinRenderTime {
		m.MinRenderTime = duration
	}
	if m.RenderCount == 0 || duration > m.MaxRenderTime {
		m.MaxRenderTime = duration
	}
	m.RenderCount++
	m.TotalTime += duration
	// Clamp: float summation can push the mean one ulp outside [min, max].
	m.AverageTime = math.Min(math.Max(m.TotalTime/float64(m.RenderCount), m.MinRenderTime), m.MaxRenderTime)
	m.LastRenderTime = duration
	if slow {
		m.SlowRenders++
	}
}

// SlowPercentage returns the share of slow renders in percent (0 when nothing rendered).
func (m PerformanceMetrics) SlowPercentage() float64 {
	if m.RenderCount == 0 {
		return 0
	}
	return float64(m.SlowRenders) / float64(m.RenderCount) * 100
}

// ============================================
// Export
// ============================================

// Export is the aggregated engine state pulled by dashboards on render end.
type Export struct {
	SessionID  string                        `json:"session_id"`
	ExportedAt time.Time                     `json:"exported_at"`
	History    []RenderEvent                 `json:"history"`
	Hierarchy  []HierarchyNode               `json:"hierarchy"`
	Metrics    map[string]PerformanceMetrics `json:"metrics"`
}
