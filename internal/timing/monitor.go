// monitor.go — Per-entity start/end pairing and rolling render metrics.
// Each entity id moves idle -> active on MarkStart and back to idle on the
// matching end, at which point its PerformanceMetrics absorb the duration.
package timing

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/internal/bus"
	"github.com/brennhill/renderlens/internal/logging"
	"github.com/brennhill/renderlens/internal/types"
)

// DefaultThresholdMs is one frame at 60Hz.
const DefaultThresholdMs = 16.0

// Options configures a Monitor. Zero values select defaults.
type Options struct {
	ThresholdMs float64
	Clock       Clock
	Logger      *log.Logger
}

type pendingStart struct {
	name  string
	start time.Time
}

// Monitor pairs render starts with ends per entity id.
type Monitor struct {
	mu        sync.Mutex
	pending   map[string]pendingStart
	metrics   map[string]*types.PerformanceMetrics
	threshold float64

	clock  Clock
	bus    *bus.Bus
	logger *log.Entry
}

// NewMonitor creates a monitor publishing to b. A nil bus publishes nowhere.
func NewMonitor(b *bus.Bus, opts Options) *Monitor {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.ThresholdMs <= 0 {
		opts.ThresholdMs = DefaultThresholdMs
	}
	return &Monitor{
		pending:   make(map[string]pendingStart),
		metrics:   make(map[string]*types.PerformanceMetrics),
		threshold: opts.ThresholdMs,
		clock:     opts.Clock,
		bus:       b,
		logger:    logging.Component(opts.Logger, "timing"),
	}
}

// Clock returns the clock the monitor timestamps with.
func (m *Monitor) Clock() Clock { return m.clock }

// MarkStart records the start of a render for id and publishes render:start.
// A second start before the end replaces the first.
func (m *Monitor) MarkStart(name, id string) time.Time {
	now := m.clock.Now()

	m.mu.Lock()
	if _, active := m.pending[id]; active {
		m.logger.WithField("component_id", id).Debug("render restarted before end; keeping latest start")
	}
	m.pending[id] = pendingStart{name: name, start: now}
	m.mu.Unlock()

	m.publish(types.TopicRenderStart, types.RenderStartPayload{
		ComponentName: name,
		ComponentID:   id,
		Timestamp:     now,
	})
	return now
}

// MarkEnd ends the render for id, folds its duration into the metrics and
// publishes render:end (and performance:warning when slow). Without a
// matching start it logs a warning and returns 0.
func (m *Monitor) MarkEnd(name, id string) float64 {
	duration, ok := m.Finish(name, id)
	if !ok {
		return 0
	}
	m.publish(types.TopicRenderEnd, types.RenderEndPayload{
		ComponentName: name,
		ComponentID:   id,
		Duration:      duration,
	})
	return duration
}

// Finish is MarkEnd without the render:end event, for callers that publish
// their own richer end payload. ok is false when no start was pending.
func (m *Monitor) Finish(name, id string) (duration float64, ok bool) {
	now := m.clock.Now()

	m.mu.Lock()
	start, found := m.pending[id]
	if !found {
		m.mu.Unlock()
		m.logger.WithFields(log.Fields{
			"component":    name,
			"component_id": id,
		}).Warn("render end without matching start")
		return 0, false
	}
	delete(m.pending, id)

	duration = float64(now.Sub(start.start)) / float64(time.Millisecond)
	if duration < 0 {
		duration = 0
	}
	threshold := m.threshold
	slow := duration > threshold

	metrics, exists := m.metrics[id]
	if !exists {
		metrics = &types.PerformanceMetrics{ComponentID: id}
		m.metrics[id] = metrics
	}
	metrics.ComponentName = name
	metrics.Record(duration, slow)
	m.mu.Unlock()

	if slow {
		m.logger.WithFields(log.Fields{
			"component":    name,
			"component_id": id,
			"duration_ms":  duration,
			"threshold_ms": threshold,
		}).Debug("slow render")
		m.publish(types.TopicPerformanceWarning, types.PerformanceWarningPayload{
			ComponentName: name,
			ComponentID:   id,
			Duration:      duration,
			Threshold:     threshold,
		})
	}
	return duration, true
}

// SetThreshold changes the slow-render threshold for future ends only.
// Non-positive values are ignored.
func (m *Monitor) SetThreshold(ms float64) {
	if ms <= 0 {
		return
	}
	m.mu.Lock()
	m.threshold = ms
	m.mu.Unlock()
}

// Threshold returns the slow-render threshold in milliseconds.
func (m *Monitor) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Metrics returns a copy of the metrics for id.
func (m *Monitor) Metrics(id string) (types.PerformanceMetrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics, ok := m.metrics[id]
	if !ok {
		return types.PerformanceMetrics{}, false
	}
	return *metrics, true
}

// AllMetrics returns a copy of every entity's metrics keyed by id.
func (m *Monitor) AllMetrics() map[string]types.PerformanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]types.PerformanceMetrics, len(m.metrics))
	for id, metrics := range m.metrics {
		out[id] = *metrics
	}
	return out
}

// SlowComponents returns entities with at least one slow render, slowest
// average first. limit <= 0 returns all.
func (m *Monitor) SlowComponents(limit int) []types.PerformanceMetrics {
	all := m.AllMetrics()
	var out []types.PerformanceMetrics
	for _, metrics := range all {
		if metrics.SlowRenders > 0 {
			out = append(out, metrics)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageTime != out[j].AverageTime {
			return out[i].AverageTime > out[j].AverageTime
		}
		return out[i].ComponentID < out[j].ComponentID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Pending reports whether id has a started render awaiting its end.
func (m *Monitor) Pending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[id]
	return ok
}

// ClearMetrics drops the metrics for id.
func (m *Monitor) ClearMetrics(id string) {
	m.mu.Lock()
	delete(m.metrics, id)
	m.mu.Unlock()
}

// Reset drops all metrics and pending starts. The threshold is kept.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.metrics = make(map[string]*types.PerformanceMetrics)
	m.pending = make(map[string]pendingStart)
	m.mu.Unlock()
}

func (m *Monitor) publish(topic types.Topic, payload any) {
	if m.bus != nil {
		m.bus.Publish(topic, payload)
	}
}
