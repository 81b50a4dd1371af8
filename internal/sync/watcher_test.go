package sync

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func startTestWatcherNoCleanup(
	t *testing.T, onChange func([]string),
) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewWatcher(50*time.Millisecond, onChange)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if _, _, err := w.WatchRecursive(dir); err != nil {
		t.Fatalf("WatchRecursive: %v", err)
	}
	w.Start()
	return w, dir
}

func startTestWatcher(
	t *testing.T, onChange func([]string),
) (*Watcher, string) {
	t.Helper()
	w, dir := startTestWatcherNoCleanup(t, onChange)
	t.Cleanup(func() { w.Stop() })
	return w, dir
}

func waitWithTimeout(
	t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string,
) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal(msg)
	}
}

// pollUntil polls fn until it returns true or the timeout expires.
func pollUntil(
	t *testing.T, timeout, interval time.Duration, msg string, fn func() bool,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(interval)
	}
	if fn() {
		return
	}
	t.Fatal(msg)
}

// newBareWatcher builds a Watcher struct for unit tests that never
// start the event loop.
func newBareWatcher(debounce time.Duration, onChange func([]string)) *Watcher {
	return &Watcher{
		onChange: onChange,
		debounce: debounce,
		touched:  make(map[string]time.Time),
		now:      time.Now,
	}
}

func touchedCount(w *Watcher) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.touched)
}

func TestWatcherReportsSessionDir(t *testing.T) {
	var gotDirs []string
	done := make(chan struct{})

	_, dir := startTestWatcher(t, func(sessionDirs []string) {
		gotDirs = sessionDirs
		close(done)
	})

	path := filepath.Join(dir, "events.jsonl")
	if err := os.WriteFile(path, []byte(`{"event":"tool:pre"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitWithTimeout(t, done, 5*time.Second,
		"timed out waiting for onChange callback")

	// The callback reports the directory holding the log, not the
	// log file itself.
	if !slices.Contains(gotDirs, dir) {
		t.Fatalf("onChange missing session dir %s, got %v", dir, gotDirs)
	}
}

func TestWatcherAutoWatchesNewSessionDirs(t *testing.T) {
	var mu sync.Mutex
	var allDirs []string

	w, dir := startTestWatcher(t, func(sessionDirs []string) {
		mu.Lock()
		allDirs = append(allDirs, sessionDirs...)
		mu.Unlock()
	})

	sessionDir := filepath.Join(dir, "proj", "sessions", "abc123")
	for _, sub := range []string{
		filepath.Join(dir, "proj"),
		filepath.Join(dir, "proj", "sessions"),
		sessionDir,
	} {
		if err := os.Mkdir(sub, 0o755); err != nil {
			t.Fatalf("Mkdir: %v", err)
		}
		pollUntil(t, 5*time.Second, 10*time.Millisecond,
			"timed out waiting for watcher to add "+sub,
			func() bool {
				return slices.Contains(w.fsw.WatchList(), sub)
			},
		)
	}

	nested := filepath.Join(sessionDir, "transcript.jsonl")
	if err := os.WriteFile(nested, []byte(`{"role":"user"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	pollUntil(t, 5*time.Second, 50*time.Millisecond,
		"timed out waiting for session dir change",
		func() bool {
			mu.Lock()
			defer mu.Unlock()
			return slices.Contains(allDirs, sessionDir)
		},
	)
}

func TestWatcherStopIsClean(t *testing.T) {
	w, _ := startTestWatcherNoCleanup(t, func(_ []string) {})

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	waitWithTimeout(t, stopped, 5*time.Second, "Stop() did not return in time")
}

func TestWatcherStopIdempotent(t *testing.T) {
	w, _ := startTestWatcherNoCleanup(t, func(_ []string) {})
	w.Stop()
	w.Stop()
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	if _, err := NewWatcher(time.Second, nil); err == nil {
		t.Fatal("expected error for nil callback")
	}
}

func TestHandleEventFiltersFiles(t *testing.T) {
	w := newBareWatcher(time.Second, nil)
	sessionDir := filepath.Join("proj", "sessions", "abc")

	// Non-log writes in a session dir are session payload and never
	// trigger a refresh.
	for _, name := range []string{"notes.txt", "output.log", "events.jsonl.bak"} {
		w.handleEvent(fsnotify.Event{
			Name: filepath.Join(sessionDir, name), Op: fsnotify.Write,
		})
	}
	if got := touchedCount(w); got != 0 {
		t.Fatalf("unrelated files marked %d session dirs, want 0", got)
	}

	// Chmod and Remove are ignored even for log files.
	w.handleEvent(fsnotify.Event{
		Name: filepath.Join(sessionDir, "events.jsonl"), Op: fsnotify.Chmod,
	})
	w.handleEvent(fsnotify.Event{
		Name: filepath.Join(sessionDir, "events.jsonl"), Op: fsnotify.Remove,
	})
	if got := touchedCount(w); got != 0 {
		t.Fatalf("ignored ops marked %d session dirs, want 0", got)
	}

	// All three log files collapse onto one session dir entry.
	for _, name := range []string{"events.jsonl", "transcript.jsonl", "metadata.json"} {
		w.handleEvent(fsnotify.Event{
			Name: filepath.Join(sessionDir, name), Op: fsnotify.Write,
		})
	}
	w.mu.Lock()
	_, ok := w.touched[sessionDir]
	count := len(w.touched)
	w.mu.Unlock()
	if !ok || count != 1 {
		t.Fatalf("touched = %d entries (has dir: %v), want exactly the session dir",
			count, ok)
	}
}

func TestWithinLayoutDepth(t *testing.T) {
	w := newBareWatcher(time.Second, nil)
	w.root = filepath.Join("home", "projects")

	tests := []struct {
		path string
		want bool
	}{
		{w.root, true},
		{filepath.Join(w.root, "proj"), true},
		{filepath.Join(w.root, "proj", "sessions"), true},
		{filepath.Join(w.root, "proj", "sessions", "abc"), true},
		{filepath.Join(w.root, "proj", "sessions", "abc", "artifacts"), false},
		{filepath.Join("home", "elsewhere"), false},
	}
	for _, tt := range tests {
		if got := w.withinLayout(tt.path); got != tt.want {
			t.Errorf("withinLayout(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFlushRespectsDebounce(t *testing.T) {
	var calls int
	w := newBareWatcher(100*time.Millisecond, func(_ []string) { calls++ })

	w.touched["fresh"] = time.Now()
	w.flush()
	if calls != 0 {
		t.Fatal("flush fired before debounce elapsed")
	}

	w.touched["old"] = time.Now().Add(-time.Second)
	w.flush()
	if calls != 1 {
		t.Fatalf("expected 1 callback, got %d", calls)
	}
	if _, ok := w.touched["fresh"]; !ok {
		t.Error("fresh entry should still be pending")
	}
	if _, ok := w.touched["old"]; ok {
		t.Error("old entry should have been flushed")
	}
}
