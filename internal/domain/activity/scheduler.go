package activity

import (
	"context"
	"sync"
	"time"

	"highlight-bot/internal/infra/logger"
)

// Scheduler откладывает продолжения (перепроверку активности перед отправкой)
// на заданное время. Каждое продолжение — отдельный таймер, одновременно их
// может быть сколько угодно. Отменить отдельное продолжение нельзя: решение
// принимается внутри него, когда таймер сработал.
//
// Жизненный цикл как у остальных фоновых сервисов: Start привязывает к
// контексту, Stop гасит все ожидающие таймеры. Ожидающие продолжения при Stop
// отбрасываются, а не выполняются досрочно: досрочная перепроверка отправила бы
// подсветку, не дождавшись окна активности.
type Scheduler struct {
	mu      sync.Mutex            // mu защищает pending, seq и ctx.
	pending map[uint64]*time.Timer // pending — активные таймеры по порядковому номеру.
	seq     uint64
	ctx     context.Context // ctx передаётся продолжениям; nil — сервис не запущен.

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup // wg ждёт выполняющиеся продолжения при Stop.
}

// NewScheduler создаёт остановленный планировщик.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[uint64]*time.Timer)}
}

// Start запускает планировщик. Повторный вызов игнорируется.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		return
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.mu.Lock()
	s.ctx = runCtx
	s.mu.Unlock()
}

// Stop гасит все ожидающие таймеры и дожидается продолжений, которые уже
// начали выполняться.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	s.mu.Lock()
	s.ctx = nil
	dropped := len(s.pending)
	for id, timer := range s.pending {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	if dropped > 0 {
		logger.Debugf("scheduler: dropped %d pending rechecks", dropped)
	}
}

// After планирует fn через d. Если планировщик не запущен, fn отбрасывается.
func (s *Scheduler) After(d time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil || s.ctx.Err() != nil {
		logger.Debug("scheduler: not running, continuation dropped")
		return
	}

	ctx := s.ctx
	s.seq++
	id := s.seq
	s.wg.Add(1)
	s.pending[id] = time.AfterFunc(d, func() {
		defer s.wg.Done()
		s.mu.Lock()
		_, alive := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if !alive || ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
}

// Pending — число ожидающих продолжений.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
