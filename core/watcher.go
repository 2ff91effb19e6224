package core

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watcher reports file-system changes under a set of paths. Bursts of events
// (editors typically write, chmod and rename in quick succession) are folded
// into a single callback per path.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onChange func(path string)
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// WatchPaths watches each path; directories are watched recursively. Paths
// that do not exist are skipped.
func WatchPaths(paths []string, onChange func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		onChange: onChange,
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}

	for _, p := range paths {
		if err := w.add(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if !info.IsDir() {
		return w.fsw.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return w.fsw.Add(p)
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.add(ev.Name)
				}
			}
			w.schedule(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCH] %v", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(watchDebounce)
		return
	}
	w.pending[path] = time.AfterFunc(watchDebounce, func() {
		w.fire(path)
	})
}

// fire reports a settled change unless the watcher has been closed.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}
	w.onChange(path)
}

func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()
	return err
}
