// types.go — Trace types for render recording and replay.
// A trace is a JSONL stream of steps, one per lifecycle call, timestamped in
// milliseconds from the start of the recording.
package recording

import "errors"

// ============================================
// Trace Types
// ============================================

// Op is a lifecycle call recorded in a trace.
type Op string

const (
	OpMount   Op = "mount"
	OpRender  Op = "render"
	OpCommit  Op = "commit"
	OpUnmount Op = "unmount"
)

// Step is one recorded lifecycle call.
type Step struct {
	Op       Op             `json:"op"`
	AtMs     int64          `json:"at_ms"`               // Milliseconds since the start of the trace
	Name     string         `json:"name,omitempty"`      // Component name (mount, render, commit)
	ID       string         `json:"id"`                  // Stable component instance id
	ParentID string         `json:"parent_id,omitempty"` // mount only
	Props    map[string]any `json:"props,omitempty"`     // render only; may carry $fn / $ref markers
}

// Marker keys inside encoded props.
const (
	markerFn    = "$fn"
	markerRef   = "$ref"
	markerValue = "value"
)

// ErrUnknownOp is returned for steps whose op is not a lifecycle call.
var ErrUnknownOp = errors.New("unknown trace op")
