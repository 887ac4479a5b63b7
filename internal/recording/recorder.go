// recorder.go — Records lifecycle calls into a trace while forwarding them
// to a live engine.
package recording

import (
	"sync"
	"time"

	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/timing"
	"github.com/brennhill/renderlens/internal/types"
)

// Recorder captures every lifecycle call made through it. Callables and
// composites passed as top-level props are encoded with identity markers so
// a replay reproduces the same change reasons.
type Recorder struct {
	eng   *engine.Engine
	clock timing.Clock
	start time.Time

	mu    sync.Mutex
	enc   *encoder
	steps []Step
}

// NewRecorder starts recording calls forwarded to eng. clock must be the
// engine's clock (timing.SystemClock for a default engine).
func NewRecorder(eng *engine.Engine, clock timing.Clock) *Recorder {
	if clock == nil {
		clock = timing.SystemClock
	}
	return &Recorder{
		eng:   eng,
		clock: clock,
		start: clock.Now(),
		enc:   newEncoder(),
	}
}

// Mount records and forwards a mount.
func (r *Recorder) Mount(name, id, parentID string) {
	r.record(Step{Op: OpMount, Name: name, ID: id, ParentID: parentID})
	r.eng.Mount(name, id, parentID)
}

// Render records and forwards an observed render.
func (r *Recorder) Render(name, id string, props map[string]any) []types.Change {
	r.mu.Lock()
	encoded := r.enc.encode(props)
	r.mu.Unlock()
	r.record(Step{Op: OpRender, Name: name, ID: id, Props: encoded})
	return r.eng.Observe(name, id, props)
}

// Commit records and forwards a commit.
func (r *Recorder) Commit(name, id string) {
	r.record(Step{Op: OpCommit, Name: name, ID: id})
	r.eng.Commit(name, id)
}

// Unmount records and forwards an unmount.
func (r *Recorder) Unmount(id string) {
	r.record(Step{Op: OpUnmount, ID: id})
	r.eng.Unmount(id)
}

// Steps returns a copy of the recorded trace.
func (r *Recorder) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

func (r *Recorder) record(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	step.AtMs = r.clock.Now().Sub(r.start).Milliseconds()
	if n := len(r.steps); n > 0 && step.AtMs < r.steps[n-1].AtMs {
		step.AtMs = r.steps[n-1].AtMs
	}
	r.steps = append(r.steps, step)
}
