package orchestrator

import (
	"log"
	"time"
)

// EventType identifies the kind of orchestrator event.
type EventType string

const (
	// EventWorkflowCreated is emitted when a workflow is decomposed and saved.
	EventWorkflowCreated EventType = "workflow_created"
	// EventWorkflowStarted is emitted when a run begins.
	EventWorkflowStarted EventType = "workflow_started"
	// EventWorkflowCompleted is emitted when the last task completes.
	EventWorkflowCompleted EventType = "workflow_completed"
	// EventTaskStarted is emitted when a task moves to in progress.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted is emitted when a task completes.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed is emitted when a task fails.
	EventTaskFailed EventType = "task_failed"
	// EventTaskWaiting is emitted when a task parks for a user action.
	EventTaskWaiting EventType = "task_waiting"
)

// Event reports workflow progress to whoever is listening, typically the
// TUI. Emission never blocks execution; when nobody drains the channel,
// events are dropped and counted instead.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// WorkflowID identifies the workflow the event belongs to.
	WorkflowID string
	// TaskID identifies the task, empty for workflow-level events.
	TaskID string
	// TaskTitle is the human-readable task name.
	TaskTitle string
	// Message carries event detail such as instructions or a result digest.
	Message string
	// Err is set on failure events.
	Err error
	// Timestamp is when the event was emitted.
	Timestamp time.Time
	// TokensIn and TokensOut are running provider token totals, zero when
	// no token tracker is configured.
	TokensIn  int64
	TokensOut int64
}

// Events returns the channel progress events are delivered on, or nil when
// events are disabled.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// DroppedEvents returns how many events were discarded because the channel
// was full.
func (o *Orchestrator) DroppedEvents() uint64 {
	return o.dropped.Load()
}

// emit delivers an event without blocking. A full channel drops the event.
func (o *Orchestrator) emit(event Event) {
	if o.events == nil {
		return
	}
	event.Timestamp = time.Now()
	if o.tokens != nil {
		event.TokensIn, event.TokensOut = o.tokens.Total()
	}
	select {
	case o.events <- event:
	default:
		dropped := o.dropped.Add(1)
		if dropped%10 == 1 {
			log.Printf("[orchestrator] event channel full, %d events dropped", dropped)
		}
	}
}
