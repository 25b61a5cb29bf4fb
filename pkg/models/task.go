package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being executed.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusWaitingUser indicates the task is paused pending a manual action.
	TaskStatusWaitingUser TaskStatus = "waiting_user"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed, TaskStatusWaitingUser:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransition reports whether moving from s to the given status is allowed.
// Completed and failed are terminal; reopening a finished task means creating
// a new one, never mutating the old.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return to == TaskStatusInProgress
	case TaskStatusInProgress:
		return to == TaskStatusCompleted || to == TaskStatusFailed || to == TaskStatusWaitingUser
	case TaskStatusWaitingUser:
		return to == TaskStatusInProgress || to == TaskStatusCompleted
	default:
		return false
	}
}

// TaskKind identifies which handler executes a task.
type TaskKind string

const (
	// KindCollect gathers candidate paper information for the topic.
	KindCollect TaskKind = "collect"
	// KindUpload is the manual step where the user provides paper files.
	KindUpload TaskKind = "upload"
	// KindAnalyze summarizes each stored paper.
	KindAnalyze TaskKind = "analyze"
	// KindOutline builds the document outline from the analyses.
	KindOutline TaskKind = "outline"
	// KindWrite produces the final document in Markdown.
	KindWrite TaskKind = "write"
	// KindGenerate is a generic model-generated task from decomposition.
	KindGenerate TaskKind = "generate"
)

// Valid returns true if the kind is a known value.
func (k TaskKind) Valid() bool {
	switch k {
	case KindCollect, KindUpload, KindAnalyze, KindOutline, KindWrite, KindGenerate:
		return true
	default:
		return false
	}
}

// Manual returns true if the kind requires a human action instead of a
// provider call.
func (k TaskKind) Manual() bool {
	return k == KindUpload
}

// Task represents one unit of work inside a workflow.
type Task struct {
	// ID is the unique identifier, assigned once at creation.
	ID string `json:"id"`
	// Kind selects the handler that executes this task.
	Kind TaskKind `json:"kind"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed instructions for the task.
	Description string `json:"description,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Result holds the output produced by execution, if any.
	Result string `json:"result,omitempty"`
	// Error contains the failure message if the task failed.
	Error string `json:"error,omitempty"`
	// Metadata holds task-scoped working data keyed by string.
	Metadata map[string]any `json:"metadata,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal status, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask creates a pending task with a fresh ID.
func NewTask(kind TaskKind, title, description string) *Task {
	return &Task{
		ID:          uuid.New().String(),
		Kind:        kind,
		Title:       title,
		Description: description,
		Status:      TaskStatusPending,
		Metadata:    make(map[string]any),
		CreatedAt:   time.Now(),
	}
}

// Transition moves the task to the given status, rejecting moves the state
// machine does not allow.
func (t *Task) Transition(to TaskStatus) error {
	if !to.Valid() {
		return fmt.Errorf("task %s: unknown status %q", t.ID, to)
	}
	if !t.Status.CanTransition(to) {
		return fmt.Errorf("task %s: disallowed transition %s -> %s", t.ID, t.Status, to)
	}
	t.Status = to
	return nil
}

// Start marks the task as in progress.
func (t *Task) Start() error {
	return t.Transition(TaskStatusInProgress)
}

// Complete marks the task as completed with the given result. Any prior
// error message is cleared; result and error never coexist.
func (t *Task) Complete(result string) error {
	if err := t.Transition(TaskStatusCompleted); err != nil {
		return err
	}
	t.Result = result
	t.Error = ""
	now := time.Now()
	t.CompletedAt = &now
	return nil
}

// Fail marks the task as failed with the given message. Any partial result
// is cleared; result and error never coexist.
func (t *Task) Fail(msg string) error {
	if err := t.Transition(TaskStatusFailed); err != nil {
		return err
	}
	t.Error = msg
	t.Result = ""
	now := time.Now()
	t.CompletedAt = &now
	return nil
}

// Await parks the task waiting for a manual action. The partial argument
// may carry instructions or partial output shown to the user.
func (t *Task) Await(partial string) error {
	if err := t.Transition(TaskStatusWaitingUser); err != nil {
		return err
	}
	if partial != "" {
		t.Result = partial
	}
	return nil
}

// SetMeta records a metadata value, allocating the map on first use.
func (t *Task) SetMeta(key string, value any) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	t.Metadata[key] = value
}
