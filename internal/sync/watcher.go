package sync

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ampdev/amplifier-insights/internal/parser"
)

// sessionDirDepth is the depth of <project>/sessions/<id> relative to
// the projects root. Directories created deeper than this hold session
// payload, not sessions, and are not watched.
const sessionDirDepth = 3

// Watcher observes an Amplifier projects tree and reports which
// session directories had log writes, debounced so the burst of
// events/transcript/metadata writes from one active session collapses
// into a single notification.
type Watcher struct {
	onChange func(sessionDirs []string)
	fsw      *fsnotify.Watcher
	debounce time.Duration
	root     string

	mu      sync.Mutex
	touched map[string]time.Time // session dir -> last log write

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewWatcher creates a watcher that calls onChange with the session
// directories whose logs changed, once the debounce period has passed
// without further writes to them.
func NewWatcher(
	debounce time.Duration, onChange func(sessionDirs []string),
) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		onChange: onChange,
		fsw:      fsw,
		debounce: debounce,
		touched:  make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}, nil
}

// WatchRecursive registers root and every directory below it. Returns
// the number of directories watched and unwatched (failed to add).
func (w *Watcher) WatchRecursive(root string) (watched, unwatched int, err error) {
	w.root = root
	err = filepath.WalkDir(root,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip inaccessible dirs
			}
			if d.IsDir() {
				if addErr := w.fsw.Add(path); addErr != nil {
					unwatched++
				} else {
					watched++
				}
			}
			return nil
		})
	return watched, unwatched, err
}

// Start begins processing file events in a goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops the watcher and waits for it to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.fsw.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

// handleEvent marks a session directory as touched when one of its
// log files is written, and watches newly created layout directories
// so sessions started after the watch began are still picked up.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		w.watchIfLayoutDir(event.Name)
	}

	if !parser.IsSessionLogFile(filepath.Base(event.Name)) {
		return
	}

	w.mu.Lock()
	w.touched[filepath.Dir(event.Name)] = w.now()
	w.mu.Unlock()
}

// watchIfLayoutDir adds a created directory to the watch list when it
// sits within the <project>/sessions/<id> layout. Anything deeper is
// session payload the parser never reads.
func (w *Watcher) watchIfLayoutDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if !w.withinLayout(path) {
		return
	}
	_ = w.fsw.Add(path)
}

func (w *Watcher) withinLayout(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	depth := strings.Count(rel, string(filepath.Separator)) + 1
	return depth <= sessionDirDepth
}

// flush reports the session directories whose last log write is at
// least a debounce period old.
func (w *Watcher) flush() {
	w.mu.Lock()
	now := w.now()
	var ready []string
	for dir, last := range w.touched {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, dir)
		}
	}
	for _, dir := range ready {
		delete(w.touched, dir)
	}
	w.mu.Unlock()

	if len(ready) > 0 {
		log.Printf("watcher: %d session(s) changed, refreshing metrics",
			len(ready))
		w.onChange(ready)
	}
}
