package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Workflow is an ordered, resumable sequence of tasks working toward one
// top-level goal, plus the context data the tasks accumulate along the way.
type Workflow struct {
	// ID is the unique identifier for this workflow.
	ID string `json:"id"`
	// Title is the short name of the overarching goal.
	Title string `json:"title"`
	// Description provides detail about the goal.
	Description string `json:"description,omitempty"`
	// Tasks is the ordered task list; insertion order is execution order.
	Tasks []*Task `json:"tasks"`
	// CurrentIndex points at the next task to execute. It equals
	// len(Tasks) when the workflow is complete.
	CurrentIndex int `json:"current_index"`
	// Context accumulates cross-task data, written by one task and read
	// by later ones.
	Context map[string]string `json:"context,omitempty"`
	// CreatedAt is when the workflow was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the workflow was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkflow creates a workflow from a decomposed task list. The task list
// must be non-empty; decomposition never legitimately produces zero tasks.
func NewWorkflow(title, description string, tasks []*Task) (*Workflow, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("workflow %q: task list is empty", title)
	}
	now := time.Now()
	return &Workflow{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Tasks:       tasks,
		Context:     make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CurrentTask returns the task at the current index, or nil when the
// workflow is complete.
func (w *Workflow) CurrentTask() *Task {
	if w.CurrentIndex < 0 || w.CurrentIndex >= len(w.Tasks) {
		return nil
	}
	return w.Tasks[w.CurrentIndex]
}

// Completed returns true when every task has been passed.
func (w *Workflow) Completed() bool {
	return w.CurrentIndex >= len(w.Tasks)
}

// Advance moves the current index past the current task. Only a completed
// task may be advanced past; failed tasks halt the workflow and waiting
// tasks block until resolved.
func (w *Workflow) Advance() error {
	cur := w.CurrentTask()
	if cur == nil {
		return fmt.Errorf("workflow %s: already complete", w.ID)
	}
	if cur.Status != TaskStatusCompleted {
		return fmt.Errorf("workflow %s: cannot advance past task %s with status %s", w.ID, cur.ID, cur.Status)
	}
	w.CurrentIndex++
	w.Touch()
	return nil
}

// TaskByID returns the task with the given ID, or nil if absent.
func (w *Workflow) TaskByID(id string) *Task {
	for _, t := range w.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// SetContext records a context value visible to later tasks.
func (w *Workflow) SetContext(key, value string) {
	if w.Context == nil {
		w.Context = make(map[string]string)
	}
	w.Context[key] = value
	w.Touch()
}

// ContextValue returns a context value and whether it was present.
func (w *Workflow) ContextValue(key string) (string, bool) {
	v, ok := w.Context[key]
	return v, ok
}

// Touch bumps the updated timestamp.
func (w *Workflow) Touch() {
	w.UpdatedAt = time.Now()
}

// Validate checks the structural invariants. A workflow loaded from disk
// must pass this before it is used; a snapshot that fails is rejected
// rather than repaired.
func (w *Workflow) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("workflow: missing id")
	}
	if len(w.Tasks) == 0 {
		return fmt.Errorf("workflow %s: task list is empty", w.ID)
	}
	if w.CurrentIndex < 0 || w.CurrentIndex > len(w.Tasks) {
		return fmt.Errorf("workflow %s: current_index %d out of range [0,%d]", w.ID, w.CurrentIndex, len(w.Tasks))
	}
	seen := make(map[string]bool, len(w.Tasks))
	for i, t := range w.Tasks {
		if t == nil {
			return fmt.Errorf("workflow %s: task %d is nil", w.ID, i)
		}
		if t.ID == "" {
			return fmt.Errorf("workflow %s: task %d has no id", w.ID, i)
		}
		if seen[t.ID] {
			return fmt.Errorf("workflow %s: duplicate task id %s", w.ID, t.ID)
		}
		seen[t.ID] = true
		if !t.Status.Valid() {
			return fmt.Errorf("workflow %s: task %s has unknown status %q", w.ID, t.ID, t.Status)
		}
		if t.Result != "" && t.Error != "" {
			return fmt.Errorf("workflow %s: task %s has both result and error", w.ID, t.ID)
		}
		if i < w.CurrentIndex {
			switch t.Status {
			case TaskStatusCompleted, TaskStatusFailed, TaskStatusWaitingUser:
			default:
				return fmt.Errorf("workflow %s: task %s before current_index has status %s", w.ID, t.ID, t.Status)
			}
		}
	}
	return nil
}
