// Package tui renders workflow runs in the terminal.
//
// The App model shows the task list with live status, a tail of run
// events, and running token totals. When a run parks on a manual task
// the app opens an inline input so the user can supply the completion
// payload without leaving the screen.
//
// The app never touches the orchestrator directly. The command layer
// forwards orchestrator events via Program.Send and registers a
// completion handler that the app calls when the user submits a
// payload.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quillworks/quill/internal/orchestrator"
	"github.com/quillworks/quill/pkg/models"
)

// EventMsg wraps an orchestrator event for delivery via Program.Send.
type EventMsg struct {
	Event orchestrator.Event
}

// RunDoneMsg signals that the run loop returned.
type RunDoneMsg struct {
	// Err is the run error, nil on success or when parked.
	Err error
	// Waiting is set when the run parked on a manual task.
	Waiting bool
	// TaskID identifies the parked task when Waiting is set.
	TaskID string
	// Instructions holds the parked task's partial result, shown
	// above the payload input.
	Instructions string
}

// PayloadSubmittedMsg is emitted when the user submits a completion
// payload for a waiting task.
type PayloadSubmittedMsg struct {
	TaskID  string
	Payload string
}

// LogMsg appends a line to the event log. The command layer uses it to
// surface out-of-band conditions while the TUI owns the terminal.
type LogMsg struct {
	Level   string
	Message string
}

// LogEntry is a single line in the event log.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// taskRow is the app's view of one workflow task.
type taskRow struct {
	id     string
	title  string
	status models.TaskStatus
}

const maxLogEntries = 200

// App is the Bubble Tea model for a workflow run.
type App struct {
	title string
	rows  []taskRow
	logs  []LogEntry

	spin  spinner.Model
	input textinput.Model

	width  int
	height int

	inputOpen     bool
	waitingTaskID string
	instructions  string

	done     bool
	failed   bool
	doneMsg  string
	quitting bool

	start    time.Time
	finished time.Time

	tokensIn  int64
	tokensOut int64

	onComplete func(taskID, payload string)

	styles appStyles
}

// New creates an App seeded from the workflow's current tasks.
func New(wf *models.Workflow) *App {
	st := newAppStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.spinner

	in := textinput.New()
	in.Placeholder = "Describe what was done, then press Enter"
	in.CharLimit = 500
	in.Width = 60

	app := &App{
		title:  wf.Title,
		spin:   sp,
		input:  in,
		start:  time.Now(),
		styles: st,
	}
	for _, t := range wf.Tasks {
		app.rows = append(app.rows, taskRow{id: t.ID, title: t.Title, status: t.Status})
	}
	return app
}

// SetCompleteHandler registers the callback invoked when the user
// submits a payload for a waiting task. The callback runs on the UI
// goroutine and should hand real work off to the command layer.
func (a *App) SetCompleteHandler(fn func(taskID, payload string)) {
	a.onComplete = fn
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case EventMsg:
		a.handleEvent(msg.Event)
		return a, nil

	case LogMsg:
		level := msg.Level
		if level == "" {
			level = "INFO"
		}
		a.appendLog(level, msg.Message)
		return a, nil

	case RunDoneMsg:
		return a.handleRunDone(msg)

	case PayloadSubmittedMsg:
		if a.onComplete != nil {
			a.onComplete(msg.TaskID, msg.Payload)
		}
		a.setRowStatus(msg.TaskID, models.TaskStatusCompleted)
		a.appendLog("INFO", fmt.Sprintf("task marked complete: %s", msg.TaskID))
		return a, nil
	}

	if a.inputOpen {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		a.quitting = true
		return a, tea.Quit
	case "q":
		// While the input is open "q" is just a letter.
		if !a.inputOpen {
			a.quitting = true
			return a, tea.Quit
		}
	case "enter":
		if a.inputOpen {
			return a.submitPayload()
		}
	case "esc":
		if a.inputOpen {
			a.closeInput()
			return a, nil
		}
	}

	if a.inputOpen {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) submitPayload() (tea.Model, tea.Cmd) {
	payload := a.input.Value()
	if payload == "" {
		return a, nil
	}
	taskID := a.waitingTaskID
	a.closeInput()
	return a, func() tea.Msg {
		return PayloadSubmittedMsg{TaskID: taskID, Payload: payload}
	}
}

func (a *App) closeInput() {
	a.inputOpen = false
	a.input.Blur()
	a.input.Reset()
}

func (a *App) handleRunDone(msg RunDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Waiting {
		a.inputOpen = true
		a.waitingTaskID = msg.TaskID
		a.instructions = msg.Instructions
		a.appendLog("INFO", "run paused, waiting for user input")
		return a, a.input.Focus()
	}

	a.done = true
	a.finished = time.Now()
	if msg.Err != nil {
		a.failed = true
		a.doneMsg = msg.Err.Error()
		a.appendLog("ERROR", msg.Err.Error())
	} else {
		a.doneMsg = "workflow complete"
	}
	return a, nil
}

// elapsed returns the run duration, frozen once the run finished.
func (a *App) elapsed() time.Duration {
	if !a.finished.IsZero() {
		return a.finished.Sub(a.start)
	}
	return time.Since(a.start)
}

func (a *App) handleEvent(ev orchestrator.Event) {
	if ev.TokensIn > 0 || ev.TokensOut > 0 {
		a.tokensIn = ev.TokensIn
		a.tokensOut = ev.TokensOut
	}

	switch ev.Type {
	case orchestrator.EventWorkflowStarted:
		a.appendLog("INFO", "run started")
	case orchestrator.EventWorkflowCompleted:
		a.appendLog("INFO", "workflow complete")
	case orchestrator.EventTaskStarted:
		a.setRowStatus(ev.TaskID, models.TaskStatusInProgress)
		a.appendLog("INFO", fmt.Sprintf("started: %s", ev.TaskTitle))
	case orchestrator.EventTaskCompleted:
		a.setRowStatus(ev.TaskID, models.TaskStatusCompleted)
		a.appendLog("INFO", fmt.Sprintf("completed: %s", ev.TaskTitle))
	case orchestrator.EventTaskFailed:
		a.setRowStatus(ev.TaskID, models.TaskStatusFailed)
		if ev.Err != nil {
			a.appendLog("ERROR", fmt.Sprintf("failed: %s: %v", ev.TaskTitle, ev.Err))
		} else {
			a.appendLog("ERROR", fmt.Sprintf("failed: %s", ev.TaskTitle))
		}
	case orchestrator.EventTaskWaiting:
		a.setRowStatus(ev.TaskID, models.TaskStatusWaitingUser)
		a.appendLog("INFO", fmt.Sprintf("waiting for user: %s", ev.TaskTitle))
	}
}

func (a *App) setRowStatus(taskID string, status models.TaskStatus) {
	for i := range a.rows {
		if a.rows[i].id == taskID {
			a.rows[i].status = status
			return
		}
	}
}

func (a *App) appendLog(level, message string) {
	a.logs = append(a.logs, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	})
	if len(a.logs) > maxLogEntries {
		a.logs = a.logs[len(a.logs)-maxLogEntries:]
	}
}

// NewProgram creates the Bubble Tea program for a workflow run and
// returns both the program and the app so callers can Send events.
func NewProgram(wf *models.Workflow) (*tea.Program, *App) {
	app := New(wf)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
