// Package events publishes a best-effort activity feed of observer and
// self-improvement actions.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of activity that occurred
type EventType string

const (
	// EventTypeObservation indicates an observer check completed
	EventTypeObservation EventType = "observation"
	// EventTypeViolation indicates a rule violation was recorded
	EventTypeViolation EventType = "violation"
	// EventTypeHalted indicates the observer entered the HALTED state
	EventTypeHalted EventType = "observer_halted"
	// EventTypeResumed indicates the observer returned to ACTIVE
	EventTypeResumed EventType = "observer_resumed"

	// EventTypePlanCreated indicates an improvement plan was created
	EventTypePlanCreated EventType = "plan_created"
	// EventTypePlanApplied indicates an improvement plan was applied
	EventTypePlanApplied EventType = "plan_applied"

	// EventTypeABTestCreated indicates an A/B test was created
	EventTypeABTestCreated EventType = "abtest_created"
	// EventTypeABTestCompleted indicates an A/B test winner was selected
	EventTypeABTestCompleted EventType = "abtest_completed"
	// EventTypeScoreRecorded indicates a report was scored
	EventTypeScoreRecorded EventType = "score_recorded"
	// EventTypeLearningRecorded indicates a learning capture was recorded
	EventTypeLearningRecorded EventType = "learning_recorded"
)

// EventSeverity represents the severity level of an event
type EventSeverity string

const (
	// SeverityInfo indicates informational events
	SeverityInfo EventSeverity = "info"
	// SeverityWarning indicates potentially problematic events
	SeverityWarning EventSeverity = "warning"
	// SeverityCritical indicates events requiring immediate attention
	SeverityCritical EventSeverity = "critical"
)

// Event is one entry of the activity feed
type Event struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// Type is the type of event
	Type EventType `json:"type"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// Component is the brain component that produced the event
	Component string `json:"component"`
	// Severity is the severity level of this event
	Severity EventSeverity `json:"severity"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
	// Data contains structured, type-specific data (must be JSON-serializable)
	Data map[string]interface{} `json:"data,omitempty"`
}

// New creates an event with a fresh ID
func New(ts time.Time, eventType EventType, component string, severity EventSeverity, message string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: ts,
		Component: component,
		Severity:  severity,
		Message:   message,
		Data:      data,
	}
}
