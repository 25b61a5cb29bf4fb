package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillworks/quill/internal/provider"
	"github.com/quillworks/quill/pkg/models"
)

// Handler executes tasks of one kind.
type Handler interface {
	// Execute runs the task described by hc and reports what happened.
	// Returning an error fails the task; the error message becomes the
	// recorded failure reason.
	Execute(ctx context.Context, hc *HandlerContext) (*Result, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, hc *HandlerContext) (*Result, error)

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, hc *HandlerContext) (*Result, error) {
	return f(ctx, hc)
}

// HandlerContext is what a handler sees while executing: the task itself
// and the workflow it belongs to, including context entries written by
// earlier tasks.
type HandlerContext struct {
	// Task is the task being executed, already marked in progress.
	Task *models.Task
	// Workflow is the workflow the task belongs to. Handlers may read its
	// context but should leave status changes to the orchestrator.
	Workflow *models.Workflow
}

// Result describes the outcome of a handler execution.
type Result struct {
	// Output is the produced text. It becomes the task result, or the
	// instructions shown to the user when Await is set.
	Output string
	// Await parks the task waiting for a manual user action instead of
	// completing it.
	Await bool
	// Metadata entries are merged into the task metadata.
	Metadata map[string]any
}

// Policy supplies a fixed decomposition for one domain, bypassing the
// model-driven decomposer with a known-good task sequence.
type Policy interface {
	// Domain names the policy; CreateWorkflow matches it against the
	// requested domain string.
	Domain() string
	// Title derives the workflow title from the goal.
	Title(goal string) string
	// Tasks returns a fresh pending task list for the goal.
	Tasks(goal string) []*models.Task
}

// registration binds a handler to a task kind. contextKey, when set, names
// the workflow context entry that receives the task output on completion.
type registration struct {
	handler    Handler
	contextKey string
}

// maxPriorResultChars caps how much of each earlier task result is quoted
// into a generic prompt.
const maxPriorResultChars = 1500

// generateHandler executes generic decomposed tasks: it prompts the
// provider with the task description plus the results of earlier tasks.
func (o *Orchestrator) generateHandler(ctx context.Context, hc *HandlerContext) (*Result, error) {
	output, err := o.provider.Generate(ctx, provider.Request{
		Prompt: buildGenericPrompt(hc.Task, hc.Workflow),
	})
	if err != nil {
		return nil, err
	}
	return &Result{Output: output}, nil
}

// buildGenericPrompt renders the prompt for a generic task. Results from
// earlier completed tasks are included so each step builds on the last.
func buildGenericPrompt(task *models.Task, wf *models.Workflow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Execute the following task:\n\nTask: %s\nDescription: %s\n", task.Title, task.Description)

	var prior []string
	for _, t := range wf.Tasks {
		if t.ID == task.ID {
			break
		}
		if t.Status == models.TaskStatusCompleted && t.Result != "" {
			prior = append(prior, fmt.Sprintf("### %s\n%s", t.Title, truncate(t.Result, maxPriorResultChars)))
		}
	}
	if len(prior) > 0 {
		b.WriteString("\nResults from earlier tasks:\n\n")
		b.WriteString(strings.Join(prior, "\n\n"))
		b.WriteString("\n")
	}

	b.WriteString("\nProvide a detailed response on how to complete this task or the results of completing it.")
	return b.String()
}

// truncate shortens s to at most n bytes, marking the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n[truncated]"
}
