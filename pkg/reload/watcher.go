package reload

// pkg/reload/watcher.go — fsnotify-backed change detector. It watches every
// directory in the resolved scope (recursively, skipping excluded subtrees)
// and reports matching paths on a channel. Restarting the application on a
// reported change is the supervisor's job, not ours.

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shashiranjanraj/vayu/pkg/logger"
)

// Watcher delivers file-change notifications scoped by a Scope.
type Watcher struct {
	scope   *Scope
	delay   time.Duration
	fsw     *fsnotify.Watcher
	changes chan string
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// NewWatcher creates a watcher over the scope's directories. delay is the
// settle time between a burst of events and the notification.
func NewWatcher(scope *Scope, delay time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		scope:   scope,
		delay:   delay,
		fsw:     fsw,
		changes: make(chan string, 16),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	for _, dir := range scope.WatchDirs {
		if err := w.addTree(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addTree registers dir and every non-excluded subdirectory with fsnotify.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		for _, ex := range w.scope.ExcludeDirs {
			if containsDir(ex, path) {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(path)
	})
}

// Changes is the channel on which matching changed paths are delivered.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Start begins watching in a background goroutine. Calling it twice is a
// no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var pending string
	var settle <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories must be picked up so nested changes keep
			// arriving.
			if ev.Op&fsnotify.Create != 0 {
				_ = w.addTree(ev.Name)
			}
			if w.scope.Matches(ev.Name) {
				pending = ev.Name
				settle = time.After(w.delay)
			}
		case <-settle:
			settle = nil
			select {
			case w.changes <- pending:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error("reload watcher error", "error", err)
		}
	}
}

// Stop halts watching and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	if started {
		<-w.doneCh
	}
	return w.fsw.Close()
}
