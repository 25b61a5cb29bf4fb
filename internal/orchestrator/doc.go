// Package orchestrator runs workflows task by task.
//
// The orchestrator package provides functionality for:
//   - Workflow creation: Decomposing a goal into an ordered task list
//   - Task execution: Dispatching each task to its registered handler
//   - Suspension and resume: Parking on manual steps and picking up
//     where a previous run left off
//
// Tasks execute strictly in order. A handler either completes its task,
// fails it, or parks it waiting for a user action; the orchestrator
// persists the workflow after every status change so a crash or restart
// never loses more than the in-flight provider call.
//
// Example usage:
//
//	o := orchestrator.New(orchestrator.Config{Provider: p, Store: s})
//	wf, err := o.CreateWorkflow(ctx, "Survey recent work on sparse attention", "")
//	if err != nil {
//		return err
//	}
//	err = o.Run(ctx, wf)
package orchestrator
