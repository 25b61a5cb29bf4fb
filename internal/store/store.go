// Package store persists workflows as JSON documents on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/quillworks/quill/pkg/models"
)

// ErrPersistence indicates a workflow could not be written or read back.
var ErrPersistence = errors.New("persistence error")

// ErrNotFound indicates no workflow exists with the requested ID.
var ErrNotFound = errors.New("workflow not found")

// Store reads and writes workflows under a base directory, one JSON
// document per workflow.
type Store struct {
	baseDir string
}

// New creates a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{baseDir: dir}
}

// Dir returns the directory workflows are stored in.
func (s *Store) Dir() string {
	return s.baseDir
}

func (s *Store) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Save writes the workflow to disk. The write goes through a temp file in
// the same directory that is renamed over the previous snapshot, so a crash
// mid-write never leaves a truncated document behind.
func (s *Store) Save(wf *models.Workflow) error {
	if wf == nil {
		return fmt.Errorf("%w: nil workflow", ErrPersistence)
	}
	if err := wf.Validate(); err != nil {
		return fmt.Errorf("%w: refusing to save invalid workflow: %v", ErrPersistence, err)
	}
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return fmt.Errorf("%w: create workflows directory: %v", ErrPersistence, err)
	}

	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal workflow %s: %v", ErrPersistence, wf.ID, err)
	}

	if err := writeFileAtomic(s.path(wf.ID), data); err != nil {
		return fmt.Errorf("%w: write workflow %s: %v", ErrPersistence, wf.ID, err)
	}
	return nil
}

// Load reads the workflow with the given ID and checks its invariants. A
// document that does not reconstruct a valid workflow fails loudly rather
// than being coerced into one.
func (s *Store) Load(id string) (*models.Workflow, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: read workflow %s: %v", ErrPersistence, id, err)
	}

	var wf models.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: unmarshal workflow %s: %v", ErrPersistence, id, err)
	}
	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: workflow %s: %v", ErrPersistence, id, err)
	}
	if wf.Context == nil {
		wf.Context = make(map[string]string)
	}

	return &wf, nil
}

// Exists reports whether a workflow with the given ID is on disk.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Summary is a listing entry for one stored workflow.
type Summary struct {
	ID        string
	Title     string
	Tasks     int
	Completed int
	Waiting   bool
	Failed    bool
	UpdatedAt time.Time
}

// List returns a summary per stored workflow, most recently updated first.
// Documents that fail to load are skipped rather than aborting the listing.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read workflows directory: %v", ErrPersistence, err)
	}

	var summaries []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		wf, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}

		sum := Summary{
			ID:        wf.ID,
			Title:     wf.Title,
			Tasks:     len(wf.Tasks),
			UpdatedAt: wf.UpdatedAt,
		}
		for _, task := range wf.Tasks {
			switch task.Status {
			case models.TaskStatusCompleted:
				sum.Completed++
			case models.TaskStatusWaitingUser:
				sum.Waiting = true
			case models.TaskStatusFailed:
				sum.Failed = true
			}
		}
		summaries = append(summaries, sum)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return summaries, nil
}

// writeFileAtomic writes data to path via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
