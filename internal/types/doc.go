// doc.go — Package documentation for the render data model.

// Package types provides the foundational, zero-dependency types for renderlens.
//
// This package contains the data model shared by every engine package:
//   - Change and Reason (differ output)
//   - RenderEvent (one observed render, pending until commit)
//   - HierarchyNode (export shape of the component tree)
//   - PerformanceMetrics (per-entity running aggregate)
//   - Suggestion and Severity (diagnostics)
//   - Event bus topics and payloads
//   - Export (the aggregated view pulled by dashboards)
//
// Design Principle: Zero Dependencies
// This package imports only the Go standard library so that diff, bus, timing,
// tracker and suggest can all depend on it without import cycles.
//
// Architecture Layer: Foundation
//
//	Layer 1: types (zero deps) ← YOU ARE HERE
//	Layer 2: Engine packages (diff, bus, timing, tracker, suggest)
//	Layer 3: engine (context object wiring the layer 2 packages)
//	Layer 4: Periphery and wiring (telemetry, relay, dashboard, mcpserver, cmd/renderlens)
package types
