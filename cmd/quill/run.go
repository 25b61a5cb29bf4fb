package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/orchestrator"
	"github.com/quillworks/quill/internal/papers"
	"github.com/quillworks/quill/pkg/models"
)

var (
	runDomain string
	runTUI    bool
	runWatch  bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Create a workflow for a goal and execute it",
	Long: `Create a workflow for a research goal and execute its tasks in order.

With the default literature_review domain the workflow always has the
same five stages: collect papers, upload papers, analyze, outline, and
write the review. Pass --domain "" to let the model decompose the goal
into its own task list instead.

Manual stages pause the run. The workflow stays persisted, so you can
mark the task complete and resume later:

  quill run "attention mechanisms in speech recognition"
  ... run pauses at "Upload Papers" ...
  quill complete <workflow-id> <task-id>
  quill resume <workflow-id>

With --tui the run is shown in a full-screen interface where waiting
tasks can be completed inline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringVar(&runDomain, "domain", "literature_review", "Domain template for decomposition (empty for model-driven)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show the interactive terminal UI")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Watch the papers directory and register dropped files")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")

	ws, err := openWorkspace(orchestrator.DefaultEventBuffer)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown. The workflow is persisted at
	// every transition, so an interrupted run resumes from where it stopped.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	if watchEnabled(cmd, ws) {
		stop := startWatcher(ws)
		defer stop()
	}

	wf, err := ws.orch.CreateWorkflow(ctx, goal, runDomain)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	fmt.Printf("Created workflow %s\n  %s (%d tasks)\n\n", wf.ID, wf.Title, len(wf.Tasks))

	if runTUI {
		return runWorkflowTUI(ctx, ws, wf)
	}
	return runWorkflowHeadless(ctx, ws, wf)
}

// watchEnabled resolves the watcher setting: an explicit --watch flag wins,
// otherwise the config default applies.
func watchEnabled(cmd *cobra.Command, ws *workspace) bool {
	if cmd.Flags().Changed("watch") {
		return runWatch
	}
	return ws.cfg.Workspace.Watch
}

// startWatcher begins watching the papers directory, sweeping it once for
// files that predate the watcher. Returns a stop function.
func startWatcher(ws *workspace) func() {
	w, err := papers.NewWatcher(ws.cfg.PapersDir(), ws.papers)
	if err != nil {
		fmt.Printf("Warning: papers watcher unavailable: %v\n", err)
		return func() {}
	}
	if n, err := w.Scan(); err == nil && n > 0 {
		fmt.Printf("Registered %d papers already in %s\n", n, w.Dir())
	}
	return w.Close
}

// runWorkflowHeadless executes the workflow printing events to stdout.
func runWorkflowHeadless(ctx context.Context, ws *workspace, wf *models.Workflow) error {
	go consumeEvents(ws.orch.Events())

	if err := ws.orch.Run(ctx, wf); err != nil {
		return err
	}
	return reportOutcome(ws, wf)
}

// consumeEvents prints orchestrator events as colored progress lines.
func consumeEvents(events <-chan orchestrator.Event) {
	if events == nil {
		return
	}
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventTaskStarted:
			fmt.Printf("→ %s\n", ev.TaskTitle)
		case orchestrator.EventTaskCompleted:
			printStatus("✓", ev.TaskTitle, color.FgGreen)
		case orchestrator.EventTaskFailed:
			msg := ev.TaskTitle
			if ev.Err != nil {
				msg = fmt.Sprintf("%s: %v", ev.TaskTitle, ev.Err)
			}
			printStatus("✗", msg, color.FgRed)
		case orchestrator.EventTaskWaiting:
			printStatus("⏳", fmt.Sprintf("%s (waiting for you)", ev.TaskTitle), color.FgYellow)
		}
	}
}

// reportOutcome prints the post-run summary: done, or paused with the
// commands that move the workflow forward.
func reportOutcome(ws *workspace, wf *models.Workflow) error {
	in, out := ws.tracker.Total()

	if wf.Completed() {
		color.New(color.FgGreen, color.Bold).Printf("\nWorkflow complete: %s\n", wf.Title)
		fmt.Printf("Tokens: %d in / %d out across %d calls\n", in, out, ws.tracker.Calls())
		return nil
	}

	cur := wf.CurrentTask()
	if cur != nil && cur.Status == models.TaskStatusWaitingUser {
		color.New(color.FgYellow, color.Bold).Printf("\nWorkflow paused at: %s\n", cur.Title)
		if cur.Result != "" {
			fmt.Printf("\n%s\n", cur.Result)
		}
		fmt.Printf("\nWhen done, continue with:\n")
		fmt.Printf("  quill complete %s %s\n", wf.ID, cur.ID)
		fmt.Printf("  quill resume %s\n", wf.ID)
	}
	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
