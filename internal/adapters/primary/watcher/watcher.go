package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"prediction-service/internal/core/domain"
)

const defaultDebounce = 250 * time.Millisecond

// Reloader activates the artifact at ref.
type Reloader interface {
	Reload(ctx context.Context, ref string) (*domain.ReloadResult, error)
}

// FileWatcher reloads an artifact file whenever it is written, created or
// renamed into place. Bursts of events within the debounce window trigger
// one reload.
type FileWatcher struct {
	reloader Reloader
	ref      string
	path     string
	debounce time.Duration

	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	done   chan struct{}
}

func New(reloader Reloader, ref, path string, debounce time.Duration) *FileWatcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &FileWatcher{
		reloader: reloader,
		ref:      ref,
		path:     filepath.Clean(path),
		debounce: debounce,
	}
}

// Start watches the directory holding the artifact so atomic renames are seen.
func (w *FileWatcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx)

	log.WithField("path", w.path).Info("watching artifact file")
	return nil
}

func (w *FileWatcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	w.cancel()
	err := w.fsw.Close()
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *FileWatcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule(ctx)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("artifact file watcher error")
		}
	}
}

func (w *FileWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.reload(ctx) })
}

func (w *FileWatcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := w.reloader.Reload(ctx, w.ref)
	if err != nil {
		log.WithError(err).WithField("ref", w.ref).Warn("artifact change ignored")
		return
	}
	log.WithFields(log.Fields{
		"ref":     w.ref,
		"status":  result.Status,
		"version": result.Version,
	}).Info("artifact file reloaded")
}
