// Package events provides the in-process event bus used for playerd
// telemetry: session lifecycle, engine discovery, and system events.
// Per-handle video event streams are NOT routed through this bus; they are
// ordered channels owned by their sessions.
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

// System-wide event types
const (
	// Playback session events
	EventSessionCreated   EventType = "playback.session.created"
	EventSessionDisposed  EventType = "playback.session.disposed"
	EventSessionCompleted EventType = "playback.session.completed"
	EventSessionError     EventType = "playback.session.error"

	// Analytics events
	EventAnalyticsAttached EventType = "analytics.attached"
	EventAnalyticsDetached EventType = "analytics.detached"

	// Engine events
	EventEngineDiscovered EventType = "engine.discovered"
	EventEngineRemoved    EventType = "engine.removed"
	EventEngineError      EventType = "engine.error"

	// Module lifecycle events
	EventModuleInitialized EventType = "module.initialized"
	EventModuleStopped     EventType = "module.stopped"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"

	// General events
	EventError   EventType = "error"
	EventWarning EventType = "warning"
	EventInfo    EventType = "info"
)

// EventPriority represents the priority level of an event
type EventPriority int

const (
	PriorityLow      EventPriority = 1
	PriorityNormal   EventPriority = 5
	PriorityHigh     EventPriority = 10
	PriorityCritical EventPriority = 20
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"` // system, module:id, engine:id
	Target    string                 `json:"target"` // specific target if applicable
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Priority  EventPriority          `json:"priority"`
	Tags      []string               `json:"tags"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler represents a function that handles events
type EventHandler func(event Event) error

// EventFilter represents filters for event subscriptions
type EventFilter struct {
	Types    []EventType    `json:"types,omitempty"`
	Sources  []string       `json:"sources,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Priority *EventPriority `json:"priority,omitempty"`
}

// Subscription represents an event subscription
type Subscription struct {
	ID            string       `json:"id"`
	Filter        EventFilter  `json:"filter"`
	Handler       EventHandler `json:"-"`
	Subscriber    string       `json:"subscriber"`
	Created       time.Time    `json:"created"`
	LastTriggered *time.Time   `json:"last_triggered,omitempty"`
	TriggerCount  int64        `json:"trigger_count"`
}

// EventStats represents statistics about events
type EventStats struct {
	TotalEvents         int64            `json:"total_events"`
	EventsByType        map[string]int64 `json:"events_by_type"`
	EventsBySource      map[string]int64 `json:"events_by_source"`
	RecentEvents        []Event          `json:"recent_events"`
	ActiveSubscriptions int              `json:"active_subscriptions"`
}

// EventBusConfig represents configuration for the event bus
type EventBusConfig struct {
	BufferSize        int           `json:"buffer_size"`
	MaxEventAge       time.Duration `json:"max_event_age"`
	EnablePersistence bool          `json:"enable_persistence"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() EventBusConfig {
	return EventBusConfig{
		BufferSize:        1000,
		MaxEventAge:       24 * time.Hour,
		EnablePersistence: true,
	}
}

// SessionEventData carries the common payload of playback session events.
type SessionEventData struct {
	Handle     int64  `json:"handle"`
	EngineID   string `json:"engine_id"`
	SourceType string `json:"source_type"`
	URI        string `json:"uri,omitempty"`
	Error      string `json:"error,omitempty"`
}

// EngineEventData carries the payload of engine discovery events.
type EngineEventData struct {
	EngineID        string `json:"engine_id"`
	Name            string `json:"name"`
	ProtocolVersion int    `json:"protocol_version"`
	ManifestPath    string `json:"manifest_path,omitempty"`
}
