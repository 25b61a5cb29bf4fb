package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/config"
	"github.com/quillworks/quill/internal/store"
	"github.com/quillworks/quill/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [workflow-id]",
	Short: "Show workflow status",
	Long: `Show stored workflows, or the full task list of one workflow.

Without arguments, lists every stored workflow with its progress.
With a workflow ID, shows each task's status, errors, and the commands
that move a paused workflow forward.`,
	Args: cobra.MaximumNArgs(1),
	RunE: showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st := store.New(cfg.WorkflowsDir())

	if len(args) == 0 {
		return listWorkflows(st)
	}
	return showWorkflow(st, args[0])
}

// listWorkflows prints one line per stored workflow, newest first.
func listWorkflows(st *store.Store) error {
	summaries, err := st.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No workflows yet. Start one with: quill run \"<goal>\"")
		return nil
	}

	for _, s := range summaries {
		state, attr := summaryState(s)
		c := color.New(attr)
		fmt.Printf("%s  %s\n", c.Sprintf("%-8s", state), s.Title)
		fmt.Printf("          %d/%d tasks · updated %s · %s\n",
			s.Completed, s.Tasks, formatAge(time.Since(s.UpdatedAt)), s.ID)
	}
	return nil
}

// summaryState condenses a listing entry into one word and its color.
func summaryState(s store.Summary) (string, color.Attribute) {
	switch {
	case s.Failed:
		return "failed", color.FgRed
	case s.Waiting:
		return "waiting", color.FgYellow
	case s.Completed == s.Tasks:
		return "done", color.FgGreen
	default:
		return "ready", color.FgCyan
	}
}

// showWorkflow prints the full task list of one workflow.
func showWorkflow(st *store.Store, id string) error {
	wf, err := st.Load(id)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", wf.Title)
	if wf.Description != "" && wf.Description != wf.Title {
		fmt.Printf("%s\n", wf.Description)
	}
	fmt.Printf("ID: %s · created %s\n\n", wf.ID, wf.CreatedAt.Format("2006-01-02 15:04"))

	for i, task := range wf.Tasks {
		symbol, attr := taskSymbol(task.Status)
		c := color.New(attr)
		fmt.Printf("%s %d. %s (%s)\n", c.Sprint(symbol), i+1, task.Title, task.Status)
		if task.Error != "" {
			fmt.Printf("     %s\n", color.New(color.FgRed).Sprint(task.Error))
		}
		if task.Status == models.TaskStatusWaitingUser {
			fmt.Printf("     complete with: quill complete %s %s\n", wf.ID, task.ID)
		}
	}

	if len(wf.Context) > 0 {
		keys := make([]string, 0, len(wf.Context))
		for k := range wf.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Printf("\nContext: %s\n", strings.Join(keys, ", "))
	}

	fmt.Printf("\n%d/%d tasks complete\n", completedCount(wf), len(wf.Tasks))
	if !wf.Completed() {
		fmt.Printf("Resume with: quill resume %s\n", wf.ID)
	}
	return nil
}

// taskSymbol maps a task status to its listing glyph and color.
func taskSymbol(s models.TaskStatus) (string, color.Attribute) {
	switch s {
	case models.TaskStatusCompleted:
		return "✓", color.FgGreen
	case models.TaskStatusFailed:
		return "✗", color.FgRed
	case models.TaskStatusWaitingUser:
		return "⏳", color.FgYellow
	case models.TaskStatusInProgress:
		return "→", color.FgCyan
	default:
		return "○", color.FgWhite
	}
}

// completedCount counts tasks that finished successfully.
func completedCount(wf *models.Workflow) int {
	n := 0
	for _, t := range wf.Tasks {
		if t.Status == models.TaskStatusCompleted {
			n++
		}
	}
	return n
}

// formatAge renders a duration as a compact age like "3m" or "2h".
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
