package papers

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/quillworks/quill/pkg/models"
)

// paperExts are the file extensions the watcher treats as uploaded papers.
var paperExts = map[string]bool{
	".pdf": true,
	".md":  true,
	".txt": true,
}

// Watcher registers paper files dropped into the watched directory during
// the manual upload stage. Each new file becomes a skeleton record named
// after the file; richer metadata arrives later through upsert merges.
type Watcher struct {
	dir   string
	store *Store

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu   sync.Mutex
	seen map[string]bool
}

// NewWatcher watches dir for paper files and records them in the store.
// If the file watcher cannot be started the Watcher still works through
// explicit Scan calls.
func NewWatcher(dir string, store *Store) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:   dir,
		store: store,
		done:  make(chan struct{}),
		seen:  make(map[string]bool),
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - Scan is the polling fallback
		return w, nil
	}

	if err := fw.Add(dir); err != nil {
		fw.Close()
		return w, nil
	}
	w.watcher = fw

	go w.watch()

	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// watch consumes file events until Close.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0 {
				w.register(event.Name)
			}
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// Scan walks the directory once and registers any paper files that are not
// yet recorded. It returns the number of newly registered papers.
func (w *Watcher) Scan() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if w.register(filepath.Join(w.dir, entry.Name())) {
			added++
		}
	}
	return added, nil
}

// register records one file as a paper, returning true when the file was
// newly registered.
func (w *Watcher) register(path string) bool {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	if strings.HasPrefix(base, ".") || !paperExts[ext] {
		return false
	}

	w.mu.Lock()
	if w.seen[base] {
		w.mu.Unlock()
		return false
	}
	w.seen[base] = true
	w.mu.Unlock()

	title := strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), "_", " ")
	if err := w.store.Upsert(&models.Paper{Title: title, Filepath: path}); err != nil {
		log.Printf("[papers] register %s: %v", base, err)
		w.mu.Lock()
		delete(w.seen, base)
		w.mu.Unlock()
		return false
	}

	log.Printf("[papers] registered %s", base)
	return true
}

// Close stops the watcher goroutine.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}
