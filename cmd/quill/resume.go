package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/orchestrator"
)

var resumeTUI bool

var resumeCmd = &cobra.Command{
	Use:   "resume <workflow-id>",
	Short: "Resume a persisted workflow",
	Long: `Resume a workflow from where it stopped.

Completed tasks are skipped. A task that was interrupted mid-execution
is re-executed from the start; a task waiting on you pauses the run
again until it is marked complete.

Find workflow IDs with: quill status`,
	Args: cobra.ExactArgs(1),
	RunE: resumeWorkflow,
}

func init() {
	resumeCmd.Flags().BoolVar(&resumeTUI, "tui", false, "Show the interactive terminal UI")
}

func resumeWorkflow(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(orchestrator.DefaultEventBuffer)
	if err != nil {
		return err
	}
	defer ws.Close()

	wf, err := ws.store.Load(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	if ws.cfg.Workspace.Watch {
		stop := startWatcher(ws)
		defer stop()
	}

	fmt.Printf("Resuming workflow %s\n  %s (%d/%d tasks done)\n\n",
		wf.ID, wf.Title, completedCount(wf), len(wf.Tasks))

	if resumeTUI {
		return runWorkflowTUI(ctx, ws, wf)
	}
	return runWorkflowHeadless(ctx, ws, wf)
}
