package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the Claude projects directory and fires a callback when
// session logs change. Claude Code appends many lines in quick bursts, so
// changes are debounced; the idempotent store makes it safe to re-ingest the
// full files on every trigger.
type Watcher struct {
	dir      string
	delay    time.Duration
	onChange func()

	mu         sync.Mutex
	generation int

	fsw  *fsnotify.Watcher
	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher over the given directory. onChange is invoked after
// writes have been quiet for the debounce delay.
func New(dir string, delay time.Duration, onChange func()) *Watcher {
	return &Watcher{
		dir:      dir,
		delay:    delay,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
}

// Start begins watching. Subdirectories are registered recursively, and new
// project directories are picked up as they appear.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if err := w.addRecursive(w.dir); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				w.handle(event)
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			case <-w.stop:
				fsw.Close()
				return
			}
		}
	}()

	return nil
}

// Stop signals the watch goroutine to exit and waits for it
func (w *Watcher) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() {
			_ = w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			return
		}
	}

	if filepath.Ext(event.Name) != ".jsonl" {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.schedule()
}

// schedule resets the debounce timer. Each write bumps the generation;
// only the timer carrying the latest generation fires the callback.
func (w *Watcher) schedule() {
	w.mu.Lock()
	w.generation++
	gen := w.generation
	w.mu.Unlock()

	time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		stale := gen != w.generation
		w.mu.Unlock()
		if stale {
			return
		}

		select {
		case <-w.stop:
		default:
			w.onChange()
		}
	})
}
