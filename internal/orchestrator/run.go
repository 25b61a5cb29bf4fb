package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/quillworks/quill/pkg/models"
)

// Decompose turns a goal into an ordered task list. When a registered
// policy matches the domain, its fixed template is used and no provider
// call is made; otherwise the goal is decomposed by the model.
func (o *Orchestrator) Decompose(ctx context.Context, goal, domain string) ([]*models.Task, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("%w: goal is empty", ErrPrecondition)
	}
	if p, ok := o.policies[domain]; ok {
		tasks := p.Tasks(goal)
		log.Printf("[orchestrator] using %s template: %d tasks", domain, len(tasks))
		return tasks, nil
	}
	return o.decomposer.Decompose(ctx, goal)
}

// CreateWorkflow decomposes the goal, builds a workflow around the
// resulting tasks, and persists it. Nothing is persisted when
// decomposition fails.
func (o *Orchestrator) CreateWorkflow(ctx context.Context, goal, domain string) (*models.Workflow, error) {
	tasks, err := o.Decompose(ctx, goal, domain)
	if err != nil {
		return nil, err
	}

	title := goal
	if p, ok := o.policies[domain]; ok {
		title = p.Title(goal)
	}
	wf, err := models.NewWorkflow(title, goal, tasks)
	if err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	if err := o.save(wf); err != nil {
		return nil, err
	}

	log.Printf("[orchestrator] created workflow %s (%q, %d tasks)", wf.ID, wf.Title, len(wf.Tasks))
	o.emit(Event{Type: EventWorkflowCreated, WorkflowID: wf.ID, Message: wf.Title})
	return wf, nil
}

// ExecuteTask runs a single task through its handler. The task must be
// pending or waiting for the user; executing a finished task returns
// ErrPrecondition and changes nothing.
//
// The in-progress status is persisted before the handler runs, so a crash
// mid-execution is visible on the next load. The workflow is persisted
// again after the final transition whether the task completed, failed, or
// parked. ExecuteTask never advances the workflow index; Run owns that.
func (o *Orchestrator) ExecuteTask(ctx context.Context, wf *models.Workflow, task *models.Task) error {
	if wf == nil || task == nil {
		return fmt.Errorf("%w: nil workflow or task", ErrPrecondition)
	}
	if wf.TaskByID(task.ID) == nil {
		return fmt.Errorf("%w: task %s is not part of workflow %s", ErrPrecondition, task.ID, wf.ID)
	}
	switch task.Status {
	case models.TaskStatusPending, models.TaskStatusWaitingUser:
	default:
		return fmt.Errorf("%w: task %s: cannot execute from status %s", ErrPrecondition, task.ID, task.Status)
	}

	if err := task.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	wf.Touch()
	o.emit(Event{Type: EventTaskStarted, WorkflowID: wf.ID, TaskID: task.ID, TaskTitle: task.Title})
	if err := o.save(wf); err != nil {
		return err
	}
	log.Printf("[orchestrator] executing task %s (%s)", task.ID, task.Title)

	reg, ok := o.handlers[task.Kind]
	if !ok {
		msg := fmt.Sprintf("no handler registered for kind %q", task.Kind)
		task.Fail(msg)
		o.emit(Event{Type: EventTaskFailed, WorkflowID: wf.ID, TaskID: task.ID, TaskTitle: task.Title, Err: errors.New(msg)})
		if err := o.save(wf); err != nil {
			return err
		}
		return fmt.Errorf("%w: task %s: %s", ErrPrecondition, task.ID, msg)
	}

	result, handlerErr := reg.handler.Execute(ctx, &HandlerContext{Task: task, Workflow: wf})

	var outcome error
	switch {
	case handlerErr != nil:
		task.Fail(handlerErr.Error())
		o.emit(Event{Type: EventTaskFailed, WorkflowID: wf.ID, TaskID: task.ID, TaskTitle: task.Title, Err: handlerErr})
		log.Printf("[orchestrator] task %s failed: %v", task.ID, handlerErr)
		outcome = fmt.Errorf("task %s: %w", task.ID, handlerErr)

	case result == nil:
		task.Fail("handler returned no result")
		o.emit(Event{Type: EventTaskFailed, WorkflowID: wf.ID, TaskID: task.ID, TaskTitle: task.Title, Err: errors.New("handler returned no result")})
		outcome = fmt.Errorf("task %s: handler returned no result", task.ID)

	case result.Await:
		task.Await(result.Output)
		mergeMeta(task, result.Metadata)
		o.emit(Event{Type: EventTaskWaiting, WorkflowID: wf.ID, TaskID: task.ID, TaskTitle: task.Title, Message: result.Output})
		log.Printf("[orchestrator] task %s waiting for user", task.ID)

	default:
		task.Complete(result.Output)
		mergeMeta(task, result.Metadata)
		key := reg.contextKey
		if key == "" {
			key = task.ID
		}
		wf.SetContext(key, result.Output)
		o.emit(Event{Type: EventTaskCompleted, WorkflowID: wf.ID, TaskID: task.ID, TaskTitle: task.Title})
		log.Printf("[orchestrator] task %s completed", task.ID)
	}

	wf.Touch()
	if err := o.save(wf); err != nil {
		if outcome != nil {
			return errors.Join(outcome, err)
		}
		return err
	}
	return outcome
}

// Run executes the workflow from its current position until it finishes,
// a task fails, or a task parks for a user action.
//
// A failed task halts the run with an error naming the task; running
// again returns the same error without re-executing anything. A waiting
// task ends the run normally with the index unchanged, so a later Run
// picks the same task back up. A task found in progress at the current
// index is a crash leftover and is reset for re-dispatch.
func (o *Orchestrator) Run(ctx context.Context, wf *models.Workflow) error {
	if wf == nil {
		return fmt.Errorf("%w: nil workflow", ErrPrecondition)
	}
	if wf.Completed() {
		log.Printf("[orchestrator] workflow %s already complete", wf.ID)
		return nil
	}

	o.emit(Event{Type: EventWorkflowStarted, WorkflowID: wf.ID, Message: wf.Title})
	log.Printf("[orchestrator] running workflow %s from task %d/%d", wf.ID, wf.CurrentIndex+1, len(wf.Tasks))

	if cur := wf.CurrentTask(); cur != nil && cur.Status == models.TaskStatusInProgress {
		// Crash leftover: the in-progress write survived but the outcome
		// never landed. Reset outside the transition rules and redo it.
		cur.Status = models.TaskStatusPending
		log.Printf("[orchestrator] task %s was in progress at load, resetting for retry", cur.ID)
	}

	for !wf.Completed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		task := wf.CurrentTask()

		switch task.Status {
		case models.TaskStatusFailed:
			return haltError(wf, task)
		case models.TaskStatusCompleted:
			// Completed out of band, typically via MarkTaskComplete.
			if err := wf.Advance(); err != nil {
				return err
			}
			if err := o.save(wf); err != nil {
				return err
			}
			continue
		}

		err := o.ExecuteTask(ctx, wf, task)

		switch task.Status {
		case models.TaskStatusCompleted:
			if err := wf.Advance(); err != nil {
				return err
			}
			if err := o.save(wf); err != nil {
				return err
			}

		case models.TaskStatusWaitingUser:
			log.Printf("[orchestrator] workflow %s paused at task %s, waiting for user", wf.ID, task.ID)
			return nil

		case models.TaskStatusFailed:
			return haltError(wf, task)

		default:
			if err != nil {
				return err
			}
			return fmt.Errorf("workflow %s: task %s left in status %s", wf.ID, task.ID, task.Status)
		}
	}

	o.emit(Event{Type: EventWorkflowCompleted, WorkflowID: wf.ID, Message: wf.Title})
	log.Printf("[orchestrator] workflow %s completed", wf.ID)
	return nil
}

// MarkTaskComplete records a user-supplied outcome for a task that is
// waiting on a manual action. Only waiting tasks accept external
// completion. The workflow index does not move; the next Run advances
// past the completed task.
func (o *Orchestrator) MarkTaskComplete(wf *models.Workflow, taskID, payload string) error {
	if wf == nil {
		return fmt.Errorf("%w: nil workflow", ErrPrecondition)
	}
	task := wf.TaskByID(taskID)
	if task == nil {
		return fmt.Errorf("%w: workflow %s has no task %s", ErrPrecondition, wf.ID, taskID)
	}
	if task.Status != models.TaskStatusWaitingUser {
		return fmt.Errorf("%w: task %s: cannot mark complete from status %s", ErrPrecondition, task.ID, task.Status)
	}

	if err := task.Complete(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	if reg, ok := o.handlers[task.Kind]; ok && reg.contextKey != "" {
		wf.SetContext(reg.contextKey, payload)
	}
	wf.Touch()
	o.emit(Event{Type: EventTaskCompleted, WorkflowID: wf.ID, TaskID: task.ID, TaskTitle: task.Title, Message: "completed by user"})
	log.Printf("[orchestrator] task %s marked complete by user", task.ID)
	return o.save(wf)
}

// mergeMeta copies handler metadata onto the task.
func mergeMeta(task *models.Task, meta map[string]any) {
	for k, v := range meta {
		task.SetMeta(k, v)
	}
}

// haltError builds the error a run returns when it stops on a failed
// task. Re-running a halted workflow yields this same error again.
func haltError(wf *models.Workflow, task *models.Task) error {
	return fmt.Errorf("workflow %s halted: task %s (%q) failed: %s", wf.ID, task.ID, task.Title, task.Error)
}
