// Package decompose turns a free-text goal into an ordered list of tasks.
package decompose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/quillworks/quill/internal/provider"
	"github.com/quillworks/quill/pkg/models"
)

// ErrDecomposition indicates the provider returned output that could not be
// turned into a usable task list.
var ErrDecomposition = errors.New("decomposition error")

// decomposedTask is the JSON structure some models return for a single task.
type decomposedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Decomposer breaks a goal into ordered subtasks using a content provider.
type Decomposer struct {
	provider provider.Provider
}

// New creates a Decomposer backed by the given provider.
func New(p provider.Provider) *Decomposer {
	return &Decomposer{provider: p}
}

// Decompose asks the provider to split the goal into subtasks and parses the
// response. The returned tasks are pending and carry fresh IDs; the list is
// never empty when the error is nil.
func (d *Decomposer) Decompose(ctx context.Context, goal string) ([]*models.Task, error) {
	prompt := fmt.Sprintf(decompositionPrompt, goal)

	response, err := d.provider.Generate(ctx, provider.Request{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("generate decomposition: %w", err)
	}

	tasks, err := ParseResponse(response)
	if err != nil {
		return nil, err
	}

	log.Printf("[decompose] goal split into %d tasks", len(tasks))
	return tasks, nil
}

// ParseResponse parses provider output into pending tasks. The expected
// format is a numbered list of "Title: description" items; a JSON array of
// {title, description} objects is accepted as a fallback since some models
// return one regardless of instructions.
func ParseResponse(response string) ([]*models.Task, error) {
	tasks := parseNumberedList(response)
	if len(tasks) == 0 {
		tasks = parseJSONArray(response)
	}

	if len(tasks) == 0 {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, fmt.Errorf("%w: no tasks found in response (got %d chars): %q", ErrDecomposition, len(response), preview)
	}

	return tasks, nil
}

// parseNumberedList extracts "1. Title: description" items, tolerating the
// "1)" numbering variant and items without a description.
func parseNumberedList(response string) []*models.Task {
	var tasks []*models.Task

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !isNumberedItem(line) {
			continue
		}

		title := line
		description := ""
		if before, after, ok := strings.Cut(line, ": "); ok {
			title = before
			description = strings.TrimSpace(after)
		}

		title = stripOrdinal(title)
		if title == "" {
			continue
		}
		if description == "" {
			description = title
		}

		tasks = append(tasks, models.NewTask(models.KindGenerate, title, description))
	}

	return tasks
}

// parseJSONArray extracts the first JSON array in the response, ignoring any
// prose around it.
func parseJSONArray(response string) []*models.Task {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end <= start {
		return nil
	}

	var decomposed []decomposedTask
	if err := json.Unmarshal([]byte(response[start:end+1]), &decomposed); err != nil {
		return nil
	}

	var tasks []*models.Task
	for _, dt := range decomposed {
		title := strings.TrimSpace(dt.Title)
		if title == "" {
			continue
		}
		description := strings.TrimSpace(dt.Description)
		if description == "" {
			description = title
		}
		tasks = append(tasks, models.NewTask(models.KindGenerate, title, description))
	}

	return tasks
}

func isNumberedItem(line string) bool {
	if line[0] < '0' || line[0] > '9' {
		return false
	}
	return strings.Contains(line, ". ") || strings.Contains(line, ") ")
}

// stripOrdinal removes a leading "1. " or "1) " marker. Only the leading
// marker is stripped; punctuation later in the title stays put.
func stripOrdinal(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		rest := s[i:]
		if strings.HasPrefix(rest, ". ") || strings.HasPrefix(rest, ") ") {
			return strings.TrimSpace(rest[2:])
		}
	}
	return strings.TrimSpace(s)
}
