// playback_engine.go — Trace replay against an engine.
// Replays recorded steps on a manual clock so durations and timestamps match
// the recording. Playback is non-blocking: a failing step is recorded and the
// remaining steps still run.
package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/timing"
)

// ============================================================================
// Playback Result Types
// ============================================================================

// StepResult is the outcome of one replayed step.
type StepResult struct {
	Index       int    `json:"index"`
	Op          Op     `json:"op"`
	ComponentID string `json:"component_id"`
	Status      string `json:"status"` // "ok", "error"
	Changes     int    `json:"changes,omitempty"`
	Error       string `json:"error,omitempty"`
}

// PlaybackSession summarizes one replay.
type PlaybackSession struct {
	StartedAt       time.Time    `json:"started_at"`
	TraceDurationMs int64        `json:"trace_duration_ms"`
	Results         []StepResult `json:"results"`
	StepsExecuted   int          `json:"steps_executed"`
	StepsFailed     int          `json:"steps_failed"`
}

// Status is "ok" when every step ran, "partial" when some failed and
// "failed" when none ran.
func (s *PlaybackSession) Status() string {
	switch {
	case s.StepsExecuted == 0:
		return "failed"
	case s.StepsFailed > 0:
		return "partial"
	default:
		return "ok"
	}
}

// ============================================================================
// Playback Execution
// ============================================================================

// Replay drives eng through steps. clock must be the engine's clock; it is
// set to start + at_ms before each step. Replay stops early only when ctx is
// cancelled, returning the partial session together with ctx.Err().
func Replay(ctx context.Context, eng *engine.Engine, clock *timing.ManualClock, steps []Step) (*PlaybackSession, error) {
	start := clock.Now()
	session := &PlaybackSession{
		StartedAt: start,
		Results:   make([]StepResult, 0, len(steps)),
	}
	res := newResolver()

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return session, err
		}
		clock.Set(start.Add(time.Duration(step.AtMs) * time.Millisecond))
		session.TraceDurationMs = step.AtMs

		result := executeStep(eng, res, i, step)
		session.Results = append(session.Results, result)
		if result.Status == "error" {
			session.StepsFailed++
		} else {
			session.StepsExecuted++
		}
	}
	return session, nil
}

// executeStep applies one step to eng.
func executeStep(eng *engine.Engine, res *resolver, index int, step Step) StepResult {
	result := StepResult{
		Index:       index,
		Op:          step.Op,
		ComponentID: step.ID,
		Status:      "ok",
	}

	switch step.Op {
	case OpMount:
		eng.Mount(step.Name, step.ID, step.ParentID)
	case OpRender:
		changes := eng.Observe(step.Name, step.ID, res.decode(step.Props))
		result.Changes = len(changes)
	case OpCommit:
		eng.Commit(step.Name, step.ID)
	case OpUnmount:
		eng.Unmount(step.ID)
	default:
		result.Status = "error"
		result.Error = fmt.Errorf("%w: %q", ErrUnknownOp, step.Op).Error()
	}
	return result
}

// ReplayFile reads the trace at path and replays it into a fresh engine built
// from opts, with a manual clock starting at the current time.
func ReplayFile(ctx context.Context, path string, opts engine.Options) (*engine.Engine, *PlaybackSession, error) {
	steps, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	clock := timing.NewManualClock(time.Now())
	opts.Clock = clock
	eng := engine.New(opts)
	session, err := Replay(ctx, eng, clock, steps)
	return eng, session, err
}
