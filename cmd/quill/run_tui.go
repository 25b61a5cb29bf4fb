package main

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quillworks/quill/internal/orchestrator"
	"github.com/quillworks/quill/internal/tui"
	"github.com/quillworks/quill/pkg/models"
)

// runWorkflowTUI executes the workflow behind the full-screen interface.
// Waiting tasks are completed inline; the run restarts automatically
// after each completion.
func runWorkflowTUI(ctx context.Context, ws *workspace, wf *models.Workflow) (retErr error) {
	// Suppress log output while the TUI is active (it corrupts the display)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	program, app := tui.NewProgram(wf)

	go forwardEvents(program, ws.orch.Events())

	runDone := make(chan error, 1)
	startRun := func() {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					runDone <- fmt.Errorf("PANIC in run: %v", r)
				}
			}()
			runDone <- ws.orch.Run(ctx, wf)
		}()
	}

	app.SetCompleteHandler(func(taskID, payload string) {
		if err := ws.orch.MarkTaskComplete(wf, taskID, payload); err != nil {
			program.Send(tui.LogMsg{Level: "ERROR", Message: fmt.Sprintf("mark complete: %v", err)})
			return
		}
		startRun()
	})

	tuiDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				tuiDone <- fmt.Errorf("PANIC in TUI: %v", r)
			}
		}()
		_, err := program.Run()
		tuiDone <- err
	}()

	startRun()

	var runErr error
	for {
		select {
		case err := <-runDone:
			runErr = err
			program.Send(runOutcomeMsg(wf, err))

		case err := <-tuiDone:
			if err != nil {
				return err
			}
			return runErr
		}
	}
}

// runOutcomeMsg translates the run result into the TUI's done message.
// A run that parked on a manual task reopens as a waiting prompt.
func runOutcomeMsg(wf *models.Workflow, err error) tui.RunDoneMsg {
	if err == nil {
		if cur := wf.CurrentTask(); cur != nil && cur.Status == models.TaskStatusWaitingUser {
			return tui.RunDoneMsg{
				Waiting:      true,
				TaskID:       cur.ID,
				Instructions: cur.Result,
			}
		}
	}
	return tui.RunDoneMsg{Err: err}
}

// forwardEvents delivers orchestrator events to the TUI.
func forwardEvents(program *tea.Program, events <-chan orchestrator.Event) {
	if events == nil {
		return
	}
	for ev := range events {
		program.Send(tui.EventMsg{Event: ev})
	}
}
