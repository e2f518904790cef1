package reload

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsMatchingChange(t *testing.T) {
	root := t.TempDir()
	scope := BuildScope(Input{Dirs: []string{root}, Includes: []string{"*.go"}})

	w, err := NewWatcher(scope, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.Start()

	target := filepath.Join(root, "changed.go")
	// Give the watcher a moment to arm before producing the event.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(target, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-w.Changes():
		if filepath.Base(path) != "changed.go" {
			t.Errorf("unexpected change reported: %s", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatcherIgnoresNonMatchingChange(t *testing.T) {
	root := t.TempDir()
	scope := BuildScope(Input{Dirs: []string{root}, Includes: []string{"*.go"}})

	w, err := NewWatcher(scope, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.Start()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-w.Changes():
		t.Errorf("unexpected notification for %s", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(BuildScope(Input{Dirs: []string{root}}), time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	w.Start()
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	_ = w.Stop()
}
