// events.go — Event bus topics and their payload shapes.
//
// JSON CONVENTION: All fields use snake_case.
package types

import "time"

// Topic names one event bus channel.
type Topic string

const (
	TopicRenderStart        Topic = "render:start"
	TopicRenderEnd          Topic = "render:end"
	TopicChangeDetected     Topic = "change:detected"
	TopicPerformanceWarning Topic = "performance:warning"
	TopicComponentMounted   Topic = "component:mounted"
	TopicComponentUnmounted Topic = "component:unmounted"
)

// AllTopics lists every topic in a stable order.
var AllTopics = []Topic{
	TopicRenderStart,
	TopicRenderEnd,
	TopicChangeDetected,
	TopicPerformanceWarning,
	TopicComponentMounted,
	TopicComponentUnmounted,
}

// RenderStartPayload is published when timing starts for an entity.
type RenderStartPayload struct {
	ComponentName string    `json:"component_name"`
	ComponentID   string    `json:"component_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// RenderEndPayload carries the finalized render event after commit.
type RenderEndPayload struct {
	ComponentName string      `json:"component_name"`
	ComponentID   string      `json:"component_id"`
	Duration      float64     `json:"duration_ms"`
	Event         RenderEvent `json:"event"`
}

// ChangeDetectedPayload is published when a tracked render carries changes.
type ChangeDetectedPayload struct {
	ComponentName string   `json:"component_name"`
	ComponentID   string   `json:"component_id"`
	RenderCount   int      `json:"render_count"`
	Changes       []Change `json:"changes"`
}

// PerformanceWarningPayload is published when a render exceeds the slow threshold.
type PerformanceWarningPayload struct {
	ComponentName string  `json:"component_name"`
	ComponentID   string  `json:"component_id"`
	Duration      float64 `json:"duration_ms"`
	Threshold     float64 `json:"threshold_ms"`
}

// ComponentMountedPayload is published on registration.
type ComponentMountedPayload struct {
	ComponentName string `json:"component_name"`
	ComponentID   string `json:"component_id"`
	ParentID      string `json:"parent_id,omitempty"`
	Depth         int    `json:"depth"`
}

// ComponentUnmountedPayload is published once per removed hierarchy node.
type ComponentUnmountedPayload struct {
	ComponentName string `json:"component_name"`
	ComponentID   string `json:"component_id"`
}
