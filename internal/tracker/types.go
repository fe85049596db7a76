package tracker

import (
	"time"

	"github.com/rairaimanish/kidsGPT/domain/entities"
)

// EventType names a run lifecycle transition
type EventType string

// Event types
const (
	EventRunStarted     EventType = "run_started"
	EventRunCompleted   EventType = "run_completed"
	EventRunFailed      EventType = "run_failed"
	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventStageFailed    EventType = "stage_failed"
)

// Event represents an event in the run lifecycle
type Event struct {
	RunID     string             `json:"run_id"`
	Stage     entities.StageName `json:"stage,omitempty"`
	Type      EventType          `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Data      interface{}        `json:"data,omitempty"`
}
