package confloader

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/arvhen/respd/internal/telemetry/logger"
)

// Watcher watches a configuration file for changes and invokes callbacks
// when it is rewritten. The server uses it to apply log-level changes
// without a restart.
type Watcher struct {
	fs        *fsnotify.Watcher
	log       logger.Logger
	mu        sync.RWMutex
	callbacks []func(path string)
	done      chan struct{}
	once      sync.Once
}

// NewWatcher creates a configuration file watcher.
func NewWatcher(log logger.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		fs:   fs,
		log:  log,
		done: make(chan struct{}),
	}, nil
}

// Watch adds a file to watch. The containing directory is watched rather
// than the file itself, so editor rename-and-replace saves are still seen.
func (w *Watcher) Watch(path string) error {
	dir := filepath.Dir(path)
	if err := w.fs.Add(dir); err != nil {
		return err
	}
	w.log.Debug("watching directory for config changes", "dir", dir, "file", filepath.Base(path))
	return nil
}

// OnChange registers a callback invoked with the changed file's path.
func (w *Watcher) OnChange(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start blocks, dispatching change events until Stop is called.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.log.Debug("config file changed", "file", event.Name, "op", event.Op.String())
				w.notify(event.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() error {
	w.once.Do(func() { close(w.done) })
	return w.fs.Close()
}

func (w *Watcher) notify(path string) {
	w.mu.RLock()
	callbacks := make([]func(string), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, fn := range callbacks {
		fn(path)
	}
}
