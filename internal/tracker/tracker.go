// tracker.go — Render lifecycle coordinator.
// Pairs TrackRender/CommitRender per entity id through the timing monitor,
// keeps a bounded FIFO history of render events and a per-id render counter.
// Hierarchy bookkeeping lives in hierarchy.go.
//
// Locking: one mutex guards all tracker tables. Bus events are published after
// the mutex is released so subscribers may call back into the tracker.
package tracker

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/internal/buffers"
	"github.com/brennhill/renderlens/internal/bus"
	"github.com/brennhill/renderlens/internal/logging"
	"github.com/brennhill/renderlens/internal/timing"
	"github.com/brennhill/renderlens/internal/types"
)

// DefaultMaxHistorySize caps the history ring when no size is configured.
const DefaultMaxHistorySize = 1000

// Options configures a Tracker.
type Options struct {
	MaxHistorySize int
	SessionID      string
	Logger         *log.Logger
}

// Tracker records renders, hierarchy and counters for one engine instance.
type Tracker struct {
	mu sync.Mutex

	history *buffers.RingBuffer[types.RenderEvent]
	pending map[string]int64 // component id -> ring position of its latest pending render
	counts  map[string]int
	seq     uint64

	nodes map[string]*node
	roots []string

	sessionID string
	monitor   *timing.Monitor
	bus       *bus.Bus
	logger    *log.Entry
}

// New creates a tracker timing renders with monitor and publishing on b.
func New(monitor *timing.Monitor, b *bus.Bus, opts Options) *Tracker {
	if opts.MaxHistorySize <= 0 {
		opts.MaxHistorySize = DefaultMaxHistorySize
	}
	return &Tracker{
		history:   buffers.NewRingBuffer[types.RenderEvent](opts.MaxHistorySize),
		pending:   make(map[string]int64),
		counts:    make(map[string]int),
		nodes:     make(map[string]*node),
		sessionID: opts.SessionID,
		monitor:   monitor,
		bus:       b,
		logger:    logging.Component(opts.Logger, "tracker"),
	}
}

// Monitor returns the timing monitor used by the tracker.
func (t *Tracker) Monitor() *timing.Monitor { return t.monitor }

// ============================================
// Render lifecycle
// ============================================

// TrackRender starts timing a render of id and records it as pending in the
// history. changes is the diff against the previous props (empty on first
// render). Returns the pending event.
func (t *Tracker) TrackRender(name, id string, props map[string]any, changes []types.Change) types.RenderEvent {
	started := t.monitor.MarkStart(name, id)

	if changes == nil {
		changes = []types.Change{}
	}

	t.mu.Lock()
	t.counts[id]++
	count := t.counts[id]
	t.seq++
	event := types.RenderEvent{
		ID:            fmt.Sprintf("%s-%d-%d", id, started.UnixMilli(), t.seq),
		ComponentName: name,
		ComponentID:   id,
		Timestamp:     started,
		Changes:       append([]types.Change(nil), changes...),
		Props:         maps.Clone(props),
		RenderCount:   count,
	}
	t.pending[id] = t.history.WriteOne(event)
	t.mu.Unlock()

	if len(changes) > 0 {
		t.publish(types.TopicChangeDetected, types.ChangeDetectedPayload{
			ComponentName: name,
			ComponentID:   id,
			RenderCount:   count,
			Changes:       event.Changes,
		})
	}
	return event
}

// CommitRender ends timing for id, finalizes its latest pending history
// event and publishes render:end. Without a pending start it logs a warning
// and does nothing else.
func (t *Tracker) CommitRender(name, id string) {
	duration, ok := t.monitor.Finish(name, id)
	if !ok {
		return
	}

	t.mu.Lock()
	pos, found := t.pending[id]
	delete(t.pending, id)
	var event types.RenderEvent
	finalized := found && t.history.UpdateAt(pos, func(e *types.RenderEvent) {
		e.Duration = duration
		e.Committed = true
		event = *e
	})
	t.mu.Unlock()

	fields := log.Fields{"component": name, "component_id": id}
	switch {
	case !found:
		t.logger.WithFields(fields).Debug("commit without tracked render event")
	case !finalized:
		t.logger.WithFields(fields).Debug("pending render evicted from history before commit")
	}

	t.publish(types.TopicRenderEnd, types.RenderEndPayload{
		ComponentName: name,
		ComponentID:   id,
		Duration:      duration,
		Event:         event,
	})
}

// ============================================
// Queries
// ============================================

// History returns the retained renders of id, oldest first.
func (t *Tracker) History(id string) []types.RenderEvent {
	return t.history.Filter(func(e types.RenderEvent) bool { return e.ComponentID == id }, 0)
}

// AllHistory returns every retained render ordered by timestamp. Equal
// timestamps keep insertion order.
func (t *Tracker) AllHistory() []types.RenderEvent {
	all := t.history.ReadAll()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all
}

// RecentRenders returns the n most recently recorded renders, oldest first.
func (t *Tracker) RecentRenders(n int) []types.RenderEvent {
	return t.history.ReadLast(n)
}

// PendingRender returns the started, uncommitted render of id while its
// history entry is still retained.
func (t *Tracker) PendingRender(id string) (types.RenderEvent, bool) {
	if !t.monitor.Pending(id) {
		return types.RenderEvent{}, false
	}
	t.mu.Lock()
	pos, ok := t.pending[id]
	t.mu.Unlock()
	if !ok {
		return types.RenderEvent{}, false
	}
	return t.history.At(pos)
}

// HistoryStats describes the history ring.
type HistoryStats struct {
	Len    int   `json:"len"`
	Cap    int   `json:"cap"`
	Cursor int64 `json:"cursor"` // position the next render will receive
}

// Stats returns the current history ring occupancy.
func (t *Tracker) Stats() HistoryStats {
	return HistoryStats{
		Len:    t.history.Len(),
		Cap:    t.history.Cap(),
		Cursor: t.history.Position(),
	}
}

// HistorySince returns renders recorded at or after cursor, in insertion
// order, and the cursor for the next poll.
func (t *Tracker) HistorySince(cursor buffers.Cursor) ([]types.RenderEvent, buffers.Cursor) {
	return t.history.ReadFrom(cursor)
}

// RenderCount returns how many renders of id were tracked since the last Clear.
func (t *Tracker) RenderCount(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[id]
}

// Export snapshots history, hierarchy and metrics.
func (t *Tracker) Export() types.Export {
	return types.Export{
		SessionID:  t.sessionID,
		ExportedAt: t.monitor.Clock().Now(),
		History:    t.AllHistory(),
		Hierarchy:  t.Roots(),
		Metrics:    t.monitor.AllMetrics(),
	}
}

// Clear wipes history, hierarchy, counters and pending renders, and resets
// the monitor's metrics.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.history.Clear()
	t.pending = make(map[string]int64)
	t.counts = make(map[string]int)
	t.nodes = make(map[string]*node)
	t.roots = nil
	t.mu.Unlock()

	t.monitor.Reset()
	t.logger.Debug("tracker cleared")
}

func (t *Tracker) publish(topic types.Topic, payload any) {
	if t.bus != nil {
		t.bus.Publish(topic, payload)
	}
}
