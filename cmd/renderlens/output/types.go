// types.go — Command reports rendered by every output format.
package output

import (
	"io"
	"time"

	"github.com/brennhill/renderlens/internal/types"
)

// ReplayReport is the outcome of replaying one trace.
type ReplayReport struct {
	Session    SessionSummary     `json:"session"`
	Components []ComponentSummary `json:"components"`
}

// OK reports whether every trace step applied.
func (r *ReplayReport) OK() bool { return r.Session.StepsFailed == 0 }

// SessionSummary describes the replay run itself.
type SessionSummary struct {
	Trace           string   `json:"trace"`
	Status          string   `json:"status"` // ok, partial or failed
	StepsExecuted   int      `json:"steps_executed"`
	StepsFailed     int      `json:"steps_failed"`
	TraceDurationMs int64    `json:"trace_duration_ms"`
	Failures        []string `json:"failures,omitempty"`
}

// ComponentSummary condenses one component report. Timing fields are zero
// when no render of the component was committed.
type ComponentSummary struct {
	ComponentID string             `json:"component_id"`
	Name        string             `json:"name"`
	Depth       int                `json:"depth"` // -1 when not mounted
	Renders     int                `json:"renders"`
	Committed   bool               `json:"committed"`
	AvgMs       float64            `json:"avg_ms"`
	MaxMs       float64            `json:"max_ms"`
	SlowRenders int                `json:"slow_renders"`
	LastChanges []types.Change     `json:"last_changes"`
	Suggestions []types.Suggestion `json:"suggestions"`
}

// DiffReport is the outcome of diffing two prop objects.
type DiffReport struct {
	Prev     string               `json:"prev"`
	Next     string               `json:"next"`
	Strategy string               `json:"strategy"`
	ByReason map[types.Reason]int `json:"by_reason"`
	Changes  []types.Change       `json:"changes"`
}

// StreamEvent is one relayed engine event printed by watch.
type StreamEvent struct {
	SessionID string    `json:"session_id"`
	Topic     string    `json:"topic"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload"`
}

// Formatter renders command reports in one output format.
type Formatter interface {
	Replay(w io.Writer, r *ReplayReport) error
	Diff(w io.Writer, r *DiffReport) error
}

// GetFormatter returns the formatter for format, falling back to human.
func GetFormatter(format string) Formatter {
	switch format {
	case "json":
		return JSONFormatter{}
	case "csv":
		return CSVFormatter{}
	default:
		return HumanFormatter{}
	}
}
