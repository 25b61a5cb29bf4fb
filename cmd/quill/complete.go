package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completeNote string

var completeCmd = &cobra.Command{
	Use:   "complete <workflow-id> <task-id>",
	Short: "Mark a waiting task as complete",
	Long: `Mark a task that is waiting on you as complete.

Only tasks in the waiting state can be completed this way; running,
finished, and pending tasks are rejected. The note becomes the task's
recorded result.

After completing the task, continue the workflow with:
  quill resume <workflow-id>`,
	Args: cobra.ExactArgs(2),
	RunE: completeTask,
}

func init() {
	completeCmd.Flags().StringVar(&completeNote, "note", "", "Result text recorded on the task")
}

func completeTask(cmd *cobra.Command, args []string) error {
	workflowID, taskID := args[0], args[1]

	ws, err := openWorkspace(0)
	if err != nil {
		return err
	}
	defer ws.Close()

	wf, err := ws.store.Load(workflowID)
	if err != nil {
		return err
	}

	note := completeNote
	if note == "" {
		note = "Completed by user"
	}

	if err := ws.orch.MarkTaskComplete(wf, taskID, note); err != nil {
		return err
	}

	task := wf.TaskByID(taskID)
	fmt.Printf("Marked task complete: %s\n", task.Title)
	fmt.Printf("Continue with: quill resume %s\n", wf.ID)
	return nil
}
