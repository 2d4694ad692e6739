package storage

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"highlight-bot/internal/infra/concurrency"
	"highlight-bot/internal/infra/logger"
)

const watchDebounce = 250 * time.Millisecond

// Watcher следит за файлом и вызывает onChange после серии изменений.
// Следим за каталогом, а не за файлом: AtomicWriteFile и редакторы заменяют
// файл через rename, и наблюдение за самим inode после этого теряется.
type Watcher struct {
	target   string
	onChange func()
	debounce *concurrency.Debouncer[string]

	runMu  sync.Mutex
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher создаёт наблюдатель за path. onChange вызывается из фоновой горутины.
func NewWatcher(path string, onChange func()) *Watcher {
	return &Watcher{
		target:   filepath.Clean(path),
		onChange: onChange,
		debounce: concurrency.NewDebouncer[string](watchDebounce),
	}
}

// Start начинает наблюдение. Повторный вызов игнорируется.
func (w *Watcher) Start(ctx context.Context) error {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.cancel != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create fs watcher")
	}
	if err := fsw.Add(filepath.Dir(w.target)); err != nil {
		_ = fsw.Close()
		return errors.Wrapf(err, "watch dir of %s", w.target)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.debounce.Start(runCtx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(runCtx, fsw)
	}()
	return nil
}

// Stop прекращает наблюдение и дожидается фоновой горутины.
func (w *Watcher) Stop() {
	w.runMu.Lock()
	cancel, fsw := w.cancel, w.fsw
	w.cancel, w.fsw = nil, nil
	w.runMu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	_ = fsw.Close()
	w.wg.Wait()
	w.debounce.Stop()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("storage: file changed", zap.String("path", w.target), zap.Stringer("op", event.Op))
			w.debounce.Do(w.target, w.onChange)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("storage: watcher error", zap.Error(err))
		}
	}
}
