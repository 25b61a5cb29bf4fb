package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quillworks/quill/internal/decompose"
	"github.com/quillworks/quill/internal/provider"
	"github.com/quillworks/quill/internal/store"
	"github.com/quillworks/quill/pkg/models"
)

func TestCreateWorkflowPersists(t *testing.T) {
	p := &scriptedProvider{responses: []string{"1. Plan: sketch the approach\n2. Build: write the code"}}
	o, st := newTestOrchestrator(t, p, 0)

	wf, err := o.CreateWorkflow(context.Background(), "ship the feature", "")
	if err != nil {
		t.Fatalf("CreateWorkflow() error = %v", err)
	}
	if wf.Title != "ship the feature" {
		t.Errorf("Title = %q, want the goal", wf.Title)
	}
	if len(wf.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(wf.Tasks))
	}

	loaded, err := st.Load(wf.ID)
	if err != nil {
		t.Fatalf("Load() after create error = %v", err)
	}
	if loaded.Tasks[0].Title != "Plan" {
		t.Errorf("loaded first task title = %q, want %q", loaded.Tasks[0].Title, "Plan")
	}
}

func TestCreateWorkflowPolicyTitle(t *testing.T) {
	p := &scriptedProvider{}
	o, _ := newTestOrchestrator(t, p, 0)
	o.RegisterPolicy(&stubPolicy{domain: "review", kinds: []models.TaskKind{models.KindCollect, models.KindUpload}})

	wf, err := o.CreateWorkflow(context.Background(), "graph neural networks", "review")
	if err != nil {
		t.Fatalf("CreateWorkflow() error = %v", err)
	}
	if wf.Title != "Review: graph neural networks" {
		t.Errorf("Title = %q, want the policy title", wf.Title)
	}
	if p.calls != 0 {
		t.Errorf("provider calls = %d, want 0 for a policy workflow", p.calls)
	}
}

func TestCreateWorkflowDecompositionFailure(t *testing.T) {
	p := &scriptedProvider{responses: []string{"I am unable to break this down."}}
	o, st := newTestOrchestrator(t, p, 0)

	_, err := o.CreateWorkflow(context.Background(), "an impossible goal", "")
	if !errors.Is(err, decompose.ErrDecomposition) {
		t.Fatalf("CreateWorkflow() error = %v, want ErrDecomposition", err)
	}

	summaries, err := st.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("stored workflows = %d, want 0 after a failed decomposition", len(summaries))
	}
}

func TestExecuteTaskCompletes(t *testing.T) {
	p := &scriptedProvider{responses: []string{"the answer"}}
	o, st := newTestOrchestrator(t, p, 0)
	wf := genericWorkflow(t, 1)
	task := wf.Tasks[0]

	if err := o.ExecuteTask(context.Background(), wf, task); err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("Status = %s, want completed", task.Status)
	}
	if task.Result != "the answer" {
		t.Errorf("Result = %q, want %q", task.Result, "the answer")
	}
	if got, ok := wf.ContextValue(task.ID); !ok || got != "the answer" {
		t.Errorf("context[%s] = %q, %t; want the result present", task.ID, got, ok)
	}

	loaded, err := st.Load(wf.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Tasks[0].Status != models.TaskStatusCompleted {
		t.Errorf("persisted status = %s, want completed", loaded.Tasks[0].Status)
	}
}

func TestExecuteTaskWritesInProgressFirst(t *testing.T) {
	o, st := newTestOrchestrator(t, &scriptedProvider{}, 0)
	wf := genericWorkflow(t, 1)

	var persisted models.TaskStatus
	o.Register(models.KindCollect, HandlerFunc(func(_ context.Context, hc *HandlerContext) (*Result, error) {
		loaded, err := st.Load(hc.Workflow.ID)
		if err != nil {
			t.Fatalf("Load() inside handler error = %v", err)
		}
		persisted = loaded.Tasks[0].Status
		return &Result{Output: "ok"}, nil
	}))
	wf.Tasks[0].Kind = models.KindCollect

	if err := o.ExecuteTask(context.Background(), wf, wf.Tasks[0]); err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if persisted != models.TaskStatusInProgress {
		t.Errorf("status on disk during handler = %s, want in_progress", persisted)
	}
}

func TestExecuteTaskRejectsFinishedTask(t *testing.T) {
	p := &scriptedProvider{}
	o, _ := newTestOrchestrator(t, p, 0)
	wf := genericWorkflow(t, 2)

	done := wf.Tasks[0]
	done.Start()
	done.Complete("kept result")
	failed := wf.Tasks[1]
	failed.Start()
	failed.Fail("kept error")

	for _, task := range []*models.Task{done, failed} {
		err := o.ExecuteTask(context.Background(), wf, task)
		if !errors.Is(err, ErrPrecondition) {
			t.Errorf("ExecuteTask(%s task) error = %v, want ErrPrecondition", task.Status, err)
		}
	}
	if done.Result != "kept result" || failed.Error != "kept error" {
		t.Error("finished tasks were mutated by a rejected execution")
	}
	if p.calls != 0 {
		t.Errorf("provider calls = %d, want 0", p.calls)
	}
}

func TestExecuteTaskRejectsForeignTask(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedProvider{}, 0)
	wf := genericWorkflow(t, 1)
	stray := models.NewTask(models.KindGenerate, "stray", "not in the workflow")

	err := o.ExecuteTask(context.Background(), wf, stray)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("ExecuteTask() error = %v, want ErrPrecondition", err)
	}
}

func TestExecuteTaskProviderFailure(t *testing.T) {
	p := &scriptedProvider{failOn: 1}
	o, st := newTestOrchestrator(t, p, 0)
	wf := genericWorkflow(t, 1)
	task := wf.Tasks[0]

	err := o.ExecuteTask(context.Background(), wf, task)
	if !errors.Is(err, provider.ErrProvider) {
		t.Fatalf("ExecuteTask() error = %v, want ErrProvider", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("Status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.Error, "scripted failure") {
		t.Errorf("Error = %q, want the provider message recorded", task.Error)
	}

	loaded, err := st.Load(wf.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Tasks[0].Status != models.TaskStatusFailed {
		t.Errorf("persisted status = %s, want failed", loaded.Tasks[0].Status)
	}
}

func TestExecuteTaskNoHandler(t *testing.T) {
	o, st := newTestOrchestrator(t, &scriptedProvider{}, 0)
	wf := genericWorkflow(t, 1)
	task := wf.Tasks[0]
	task.Kind = models.KindAnalyze

	err := o.ExecuteTask(context.Background(), wf, task)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("ExecuteTask() error = %v, want ErrPrecondition", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("Status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.Error, "no handler registered") {
		t.Errorf("Error = %q, want a missing-handler message", task.Error)
	}

	loaded, err := st.Load(wf.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Tasks[0].Status != models.TaskStatusFailed {
		t.Errorf("persisted status = %s, want failed", loaded.Tasks[0].Status)
	}
}

func TestExecuteTaskAwaitParks(t *testing.T) {
	p := &scriptedProvider{}
	o, st := newTestOrchestrator(t, p, 0)
	o.Register(models.KindUpload, HandlerFunc(func(context.Context, *HandlerContext) (*Result, error) {
		return &Result{Output: "please upload the papers", Await: true}, nil
	}))

	task := models.NewTask(models.KindUpload, "provide papers", "drop files in the papers dir")
	wf, err := models.NewWorkflow("manual", "goal", []*models.Task{task})
	if err != nil {
		t.Fatalf("NewWorkflow() error = %v", err)
	}

	if err := o.ExecuteTask(context.Background(), wf, task); err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if task.Status != models.TaskStatusWaitingUser {
		t.Errorf("Status = %s, want waiting_user", task.Status)
	}
	if task.Result != "please upload the papers" {
		t.Errorf("Result = %q, want the instructions", task.Result)
	}
	if p.calls != 0 {
		t.Errorf("provider calls = %d, want 0 for a manual task", p.calls)
	}

	loaded, err := st.Load(wf.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Tasks[0].Status != models.TaskStatusWaitingUser {
		t.Errorf("persisted status = %s, want waiting_user", loaded.Tasks[0].Status)
	}
}

func TestExecuteTaskKeyedContext(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedProvider{}, 0)
	o.RegisterKeyed(models.KindOutline, "outline", HandlerFunc(func(context.Context, *HandlerContext) (*Result, error) {
		return &Result{Output: "I. Introduction"}, nil
	}))

	task := models.NewTask(models.KindOutline, "outline the review", "")
	wf, err := models.NewWorkflow("keyed", "goal", []*models.Task{task})
	if err != nil {
		t.Fatalf("NewWorkflow() error = %v", err)
	}

	if err := o.ExecuteTask(context.Background(), wf, task); err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if got, ok := wf.ContextValue("outline"); !ok || got != "I. Introduction" {
		t.Errorf("context[outline] = %q, %t; want the task output", got, ok)
	}
	if _, ok := wf.ContextValue(task.ID); ok {
		t.Error("context has a task-id entry despite a declared key")
	}
}

func TestExecuteTaskPersistenceFailure(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p := &scriptedProvider{}
	o := New(Config{Provider: p, Store: store.New(filepath.Join(blocker, "workflows"))})
	wf := genericWorkflow(t, 1)

	err := o.ExecuteTask(context.Background(), wf, wf.Tasks[0])
	if !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("ExecuteTask() error = %v, want ErrPersistence", err)
	}
	if p.calls != 0 {
		t.Errorf("provider calls = %d, want 0 when the in-progress write fails", p.calls)
	}
	if wf.Tasks[0].Status != models.TaskStatusInProgress {
		t.Errorf("in-memory status = %s, want in_progress kept for a retried save", wf.Tasks[0].Status)
	}
}

func TestRunCompletesAllTasks(t *testing.T) {
	p := &scriptedProvider{responses: []string{"r1", "r2", "r3"}}
	o, st := newTestOrchestrator(t, p, 0)
	wf := genericWorkflow(t, 3)

	if err := o.Run(context.Background(), wf); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !wf.Completed() {
		t.Errorf("Completed() = false, CurrentIndex = %d", wf.CurrentIndex)
	}
	for i, task := range wf.Tasks {
		if task.Status != models.TaskStatusCompleted {
			t.Errorf("task %d status = %s, want completed", i, task.Status)
		}
	}
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want 3", p.calls)
	}

	loaded, err := st.Load(wf.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.CurrentIndex != 3 {
		t.Errorf("persisted CurrentIndex = %d, want 3", loaded.CurrentIndex)
	}
}

func TestRunHaltsOnFailedTask(t *testing.T) {
	p := &scriptedProvider{responses: []string{"r1"}, failOn: 2}
	o, st := newTestOrchestrator(t, p, 0)
	wf := genericWorkflow(t, 3)

	err := o.Run(context.Background(), wf)
	if err == nil {
		t.Fatal("Run() error = nil, want a halt error")
	}
	if !strings.Contains(err.Error(), wf.Tasks[1].ID) {
		t.Errorf("halt error %q does not name the failed task", err)
	}
	if wf.Tasks[0].Status != models.TaskStatusCompleted {
		t.Errorf("task 0 status = %s, want completed", wf.Tasks[0].Status)
	}
	if wf.Tasks[1].Status != models.TaskStatusFailed {
		t.Errorf("task 1 status = %s, want failed", wf.Tasks[1].Status)
	}
	if wf.Tasks[2].Status != models.TaskStatusPending {
		t.Errorf("task 2 status = %s, want pending", wf.Tasks[2].Status)
	}
	if wf.CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1", wf.CurrentIndex)
	}

	// Running again returns the same error without executing anything.
	again := o.Run(context.Background(), wf)
	if again == nil || again.Error() != err.Error() {
		t.Errorf("second Run() error = %v, want %v", again, err)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (no re-execution)", p.calls)
	}

	loaded, err2 := st.Load(wf.ID)
	if err2 != nil {
		t.Fatalf("Load() error = %v", err2)
	}
	if loaded.Tasks[1].Status != models.TaskStatusFailed {
		t.Errorf("persisted task 1 status = %s, want failed", loaded.Tasks[1].Status)
	}
}

func TestRunParksOnWaitingTaskAndResumes(t *testing.T) {
	p := &scriptedProvider{responses: []string{"r1", "r3"}}
	o, st := newTestOrchestrator(t, p, 0)
	o.Register(models.KindUpload, HandlerFunc(func(context.Context, *HandlerContext) (*Result, error) {
		return &Result{Output: "waiting for papers", Await: true}, nil
	}))

	tasks := []*models.Task{
		models.NewTask(models.KindGenerate, "step 1", "do step 1"),
		models.NewTask(models.KindUpload, "provide papers", "drop files in the papers dir"),
		models.NewTask(models.KindGenerate, "step 3", "do step 3"),
	}
	wf, err := models.NewWorkflow("with manual step", "goal", tasks)
	if err != nil {
		t.Fatalf("NewWorkflow() error = %v", err)
	}

	if err := o.Run(context.Background(), wf); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if wf.CurrentIndex != 1 {
		t.Errorf("CurrentIndex after park = %d, want 1", wf.CurrentIndex)
	}
	if wf.Tasks[1].Status != models.TaskStatusWaitingUser {
		t.Errorf("task 1 status = %s, want waiting_user", wf.Tasks[1].Status)
	}

	// Resume from the persisted snapshot, the way the CLI does.
	loaded, err := st.Load(wf.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := o.MarkTaskComplete(loaded, loaded.Tasks[1].ID, "5 papers uploaded"); err != nil {
		t.Fatalf("MarkTaskComplete() error = %v", err)
	}
	if err := o.Run(context.Background(), loaded); err != nil {
		t.Fatalf("resumed Run() error = %v", err)
	}
	if !loaded.Completed() {
		t.Errorf("Completed() = false after resume, CurrentIndex = %d", loaded.CurrentIndex)
	}
	if loaded.Tasks[1].Result != "5 papers uploaded" {
		t.Errorf("task 1 result = %q, want the user payload", loaded.Tasks[1].Result)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2", p.calls)
	}
}

func TestRunReDispatchesWaitingTask(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedProvider{}, 0)

	attempts := 0
	o.Register(models.KindUpload, HandlerFunc(func(context.Context, *HandlerContext) (*Result, error) {
		attempts++
		if attempts == 1 {
			return &Result{Output: "waiting for papers", Await: true}, nil
		}
		return &Result{Output: "2 papers registered"}, nil
	}))

	task := models.NewTask(models.KindUpload, "provide papers", "")
	wf, err := models.NewWorkflow("re-dispatch", "goal", []*models.Task{task})
	if err != nil {
		t.Fatalf("NewWorkflow() error = %v", err)
	}

	if err := o.Run(context.Background(), wf); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if task.Status != models.TaskStatusWaitingUser {
		t.Fatalf("status after first run = %s, want waiting_user", task.Status)
	}

	if err := o.Run(context.Background(), wf); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("handler attempts = %d, want 2", attempts)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status after second run = %s, want completed", task.Status)
	}
	if !wf.Completed() {
		t.Error("Completed() = false after the waiting task resolved")
	}
}

func TestRunResetsInProgressLeftover(t *testing.T) {
	p := &scriptedProvider{responses: []string{"recovered"}}
	o, st := newTestOrchestrator(t, p, 0)
	wf := genericWorkflow(t, 1)

	// Simulate a crash after the in-progress write landed.
	wf.Tasks[0].Status = models.TaskStatusInProgress
	if err := st.Save(wf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := st.Load(wf.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := o.Run(context.Background(), loaded); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if loaded.Tasks[0].Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed after re-dispatch", loaded.Tasks[0].Status)
	}
	if loaded.Tasks[0].Result != "recovered" {
		t.Errorf("Result = %q, want %q", loaded.Tasks[0].Result, "recovered")
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
}

func TestRunAlreadyComplete(t *testing.T) {
	p := &scriptedProvider{}
	o, _ := newTestOrchestrator(t, p, 0)
	wf := genericWorkflow(t, 1)
	wf.Tasks[0].Start()
	wf.Tasks[0].Complete("done")
	wf.CurrentIndex = 1

	if err := o.Run(context.Background(), wf); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.calls != 0 {
		t.Errorf("provider calls = %d, want 0", p.calls)
	}
}

func TestRunContextCancelled(t *testing.T) {
	p := &scriptedProvider{}
	o, _ := newTestOrchestrator(t, p, 0)
	wf := genericWorkflow(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Run(ctx, wf)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if wf.Tasks[0].Status != models.TaskStatusPending {
		t.Errorf("task status = %s, want pending", wf.Tasks[0].Status)
	}
	if p.calls != 0 {
		t.Errorf("provider calls = %d, want 0", p.calls)
	}
}

func TestMarkTaskCompleteRejectsNonWaiting(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedProvider{}, 0)
	wf := genericWorkflow(t, 2)
	wf.Tasks[1].Start()
	wf.Tasks[1].Complete("done")

	for _, task := range []*models.Task{wf.Tasks[0], wf.Tasks[1]} {
		err := o.MarkTaskComplete(wf, task.ID, "payload")
		if !errors.Is(err, ErrPrecondition) {
			t.Errorf("MarkTaskComplete(%s task) error = %v, want ErrPrecondition", task.Status, err)
		}
	}
}

func TestMarkTaskCompleteUnknownTask(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedProvider{}, 0)
	wf := genericWorkflow(t, 1)

	err := o.MarkTaskComplete(wf, "no-such-task", "payload")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("MarkTaskComplete() error = %v, want ErrPrecondition", err)
	}
}

func TestMarkTaskCompleteKeyedContext(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedProvider{}, 0)
	o.RegisterKeyed(models.KindUpload, "upload_note", HandlerFunc(func(context.Context, *HandlerContext) (*Result, error) {
		return &Result{Output: "unused", Await: true}, nil
	}))

	task := models.NewTask(models.KindUpload, "provide papers", "")
	task.Start()
	task.Await("instructions")
	wf, err := models.NewWorkflow("keyed manual", "goal", []*models.Task{task})
	if err != nil {
		t.Fatalf("NewWorkflow() error = %v", err)
	}

	if err := o.MarkTaskComplete(wf, task.ID, "3 papers"); err != nil {
		t.Fatalf("MarkTaskComplete() error = %v", err)
	}
	if got, ok := wf.ContextValue("upload_note"); !ok || got != "3 papers" {
		t.Errorf("context[upload_note] = %q, %t; want the payload", got, ok)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("Status = %s, want completed", task.Status)
	}
}

func TestMarkTaskCompleteUnkeyedLeavesContext(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedProvider{}, 0)
	o.Register(models.KindUpload, HandlerFunc(func(context.Context, *HandlerContext) (*Result, error) {
		return &Result{Output: "unused", Await: true}, nil
	}))

	task := models.NewTask(models.KindUpload, "provide papers", "")
	task.Start()
	task.Await("instructions")
	wf, err := models.NewWorkflow("unkeyed manual", "goal", []*models.Task{task})
	if err != nil {
		t.Fatalf("NewWorkflow() error = %v", err)
	}

	if err := o.MarkTaskComplete(wf, task.ID, "3 papers"); err != nil {
		t.Fatalf("MarkTaskComplete() error = %v", err)
	}
	if len(wf.Context) != 0 {
		t.Errorf("context = %v, want empty without a declared key", wf.Context)
	}
}

func TestRunEmitsEvents(t *testing.T) {
	p := &scriptedProvider{responses: []string{"r1", "r2"}}
	o, _ := newTestOrchestrator(t, p, 32)
	wf := genericWorkflow(t, 2)

	if err := o.Run(context.Background(), wf); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := drainEvents(o)
	want := []EventType{
		EventWorkflowStarted,
		EventTaskStarted, EventTaskCompleted,
		EventTaskStarted, EventTaskCompleted,
		EventWorkflowCompleted,
	}
	if len(got) != len(want) {
		t.Fatalf("event count = %d (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}
