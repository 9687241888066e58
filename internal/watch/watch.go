// Package watch заново экспортирует сцены при изменении их файлов.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ivlev/memeshot/internal/logging"
)

const DefaultDebounce = 300 * time.Millisecond

// Handler вызывается один раз на устоявшееся изменение.
type Handler func(ctx context.Context, path string)

// Watcher собирает события записи и создания файлов сцен в одной папке и
// передает путь обработчику, когда файл не менялся в течение Debounce.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Exts     []string
	Logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

func New(dir string) *Watcher {
	return &Watcher{
		Dir:      dir,
		Debounce: DefaultDebounce,
		Exts:     []string{".yaml", ".yml"},
		pending:  make(map[string]time.Time),
	}
}

// Run блокируется до отмены ctx. Обработчики вызываются по одному из цикла
// тикера в вызывающей горутине.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return err
	}
	if w.pending == nil {
		w.pending = make(map[string]time.Time)
	}
	log := logging.Or(w.Logger)
	log.Info("watching", "dir", w.Dir, "debounce", w.Debounce)

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.touch(event.Name, time.Now())
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.forget(event.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				log.Debug("changed", "path", path)
				h(ctx, path)
			}
		}
	}
}

func (w *Watcher) tick() time.Duration {
	t := w.Debounce / 3
	if t < 10*time.Millisecond {
		t = 10 * time.Millisecond
	}
	return t
}

func (w *Watcher) matches(path string) bool {
	if len(w.Exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.Exts {
		if ext == e {
			return true
		}
	}
	return false
}

func (w *Watcher) touch(path string, at time.Time) {
	if !w.matches(path) {
		return
	}
	w.mu.Lock()
	w.pending[path] = at
	w.mu.Unlock()
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
}

// settled забирает пути, которые не менялись хотя бы Debounce.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}
