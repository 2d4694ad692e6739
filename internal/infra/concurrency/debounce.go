// Package concurrency — утилиты конкурентного исполнения.
//
// Debouncer сглаживает серии одинаковых событий: действие по ключу
// откладывается, пока события по этому ключу не утихнут на timeout, и
// выполняется один раз с последним переданным колбэком. Так хранилище
// перечитывает файл профилей один раз на пачку уведомлений файловой системы.
package concurrency

import (
	"context"
	"sync"
	"time"
)

// Debouncer группирует действия по ключу. Потокобезопасен.
type Debouncer[K comparable] struct {
	mu      sync.Mutex
	pending map[K]pendingEntry
	timeout time.Duration

	runMu  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type pendingEntry struct {
	timer *time.Timer
	fn    func()
}

// NewDebouncer создаёт дебаунсер с паузой timeout.
func NewDebouncer[K comparable](timeout time.Duration) *Debouncer[K] {
	return &Debouncer[K]{
		pending: make(map[K]pendingEntry),
		timeout: timeout,
	}
}

// Start привязывает дебаунсер к контексту. При отмене ctx накопленные действия
// выполняются сразу. Повторные вызовы игнорируются; nil-контекст не запускает.
func (d *Debouncer[K]) Start(ctx context.Context) {
	if ctx == nil {
		return
	}
	d.runMu.Lock()
	defer d.runMu.Unlock()

	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.ctx = runCtx
	d.cancel = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		<-runCtx.Done()
		d.flushPending()
	}()
}

// Stop останавливает дебаунсер и синхронно выполняет все отложенные действия.
func (d *Debouncer[K]) Stop() {
	d.runMu.Lock()
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.ctx = nil
	d.mu.Unlock()
	d.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	d.wg.Wait()
	d.flushPending()
}

// Do откладывает fn по ключу key. Повторный вызов с тем же ключом перезапускает
// таймер и заменяет колбэк. Если дебаунсер не запущен, fn выполняется сразу.
func (d *Debouncer[K]) Do(key K, fn func()) {
	d.mu.Lock()
	if d.ctx == nil || d.ctx.Err() != nil {
		d.mu.Unlock()
		fn()
		return
	}
	if entry, ok := d.pending[key]; ok && entry.timer != nil {
		entry.timer.Stop()
	}
	d.pending[key] = pendingEntry{
		timer: time.AfterFunc(d.timeout, func() { d.execute(key) }),
		fn:    fn,
	}
	d.mu.Unlock()
}

// execute выполняет отложенное действие вне критической секции. Отсутствие
// записи — норма: её мог забрать flushPending.
func (d *Debouncer[K]) execute(key K) {
	var fn func()

	d.mu.Lock()
	if entry, ok := d.pending[key]; ok {
		delete(d.pending, key)
		fn = entry.fn
	}
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (d *Debouncer[K]) flushPending() {
	var fns []func()

	d.mu.Lock()
	for key, entry := range d.pending {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		fns = append(fns, entry.fn)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
