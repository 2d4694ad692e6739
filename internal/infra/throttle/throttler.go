// Package throttle — ограничение скорости и повторные попытки для исходящих
// вызовов API (личные сообщения с подсветками).
//
// Скорость держит rate.Limiter (RPS + burst). Ошибку вызова можно разобрать
// цепочкой WaitExtractor: если сервер сказал «подожди N», ждём столько и
// повторяем. Остальные ошибки повторяются с экспоненциальным backoff и
// джиттером, пока не исчерпан лимит. StopRetryer прекращает попытки сразу.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// burstMultiplier задаёт burst по умолчанию как кратный rate.
const burstMultiplier = 2

// WaitExtractor достаёт из ошибки серверную паузу. false — формат не распознан.
type WaitExtractor func(err error) (time.Duration, bool)

// StopRetryer — ошибка, после которой повторять бессмысленно.
type StopRetryer interface {
	StopRetry() bool
}

// Option настраивает Throttler.
type Option func(*Throttler)

// WithMaxRetries ограничивает число повторов; <=0 — без ограничения.
func WithMaxRetries(n int) Option { return func(t *Throttler) { t.maxRetries = n } }

// WithBurst переопределяет ёмкость бакета.
func WithBurst(burst int) Option { return func(t *Throttler) { t.burst = burst } }

// WithWaitExtractors добавляет экстракторы серверных пауз.
func WithWaitExtractors(extractors ...WaitExtractor) Option {
	return func(t *Throttler) { t.waitExtractors = append(t.waitExtractors, extractors...) }
}

// WithRandom подменяет источник джиттера (для тестов).
func WithRandom(fn func() float64) Option {
	return func(t *Throttler) {
		if fn != nil {
			t.randomFn = fn
		}
	}
}

// WithSleep подменяет ожидание между попытками (для тестов).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(t *Throttler) {
		if fn != nil {
			t.sleep = fn
		}
	}
}

// ErrNotStarted — Do вызван до Start или после Stop.
var ErrNotStarted = errors.New("throttle: not started")

// Throttler потокобезопасен: Do вызывается из любых горутин.
type Throttler struct {
	rps   int
	burst int

	limiter        *rate.Limiter
	waitExtractors []WaitExtractor
	maxRetries     int
	randomFn       func() float64
	sleep          func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	rootCtx context.Context
	cancel  context.CancelFunc
}

// New создаёт троттлер на rps операций в секунду (минимум 1).
func New(rps int, opts ...Option) *Throttler {
	if rps <= 0 {
		rps = 1
	}
	t := &Throttler{
		rps:        rps,
		burst:      rps * burstMultiplier,
		maxRetries: -1,
		randomFn:   rand.Float64,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.burst < 1 {
		t.burst = 1
	}
	t.limiter = rate.NewLimiter(rate.Limit(t.rps), t.burst)
	return t
}

// Start привязывает троттлер к контексту. Повторный вызов игнорируется.
func (t *Throttler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rootCtx != nil {
		return
	}
	t.rootCtx, t.cancel = context.WithCancel(ctx)
}

// Stop прерывает ожидающие вызовы Do.
func (t *Throttler) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Do выполняет fn с учётом лимита и стратегии повторов. Возвращает nil или
// последнюю ошибку.
func (t *Throttler) Do(ctx context.Context, fn func() error) error {
	t.mu.Lock()
	root := t.rootCtx
	t.mu.Unlock()
	if root == nil || root.Err() != nil {
		return ErrNotStarted
	}

	// Вызов прерывается и отменой ctx, и остановкой троттлера.
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(root, cancel)
	defer stop()

	attempt := 0
	for {
		if err := t.limiter.Wait(callCtx); err != nil {
			return err
		}

		callErr := fn()
		if callErr == nil {
			return nil
		}

		var stopper StopRetryer
		waitDur, hasWait := t.extractWait(callErr)
		switch {
		case errors.As(callErr, &stopper) && stopper.StopRetry():
			return callErr
		case errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded):
			return callErr
		case hasWait:
			if err := t.sleep(callCtx, waitDur); err != nil {
				return err
			}
			continue
		}

		if t.maxRetries > 0 && attempt >= t.maxRetries {
			return fmt.Errorf("throttle: max retries reached (%d): last error: %w", t.maxRetries, callErr)
		}
		backoff := t.expBackoff(attempt)
		attempt++
		if err := t.sleep(callCtx, backoff); err != nil {
			return err
		}
	}
}

func (t *Throttler) extractWait(err error) (time.Duration, bool) {
	for _, extractor := range t.waitExtractors {
		if extractor == nil {
			continue
		}
		if wait, ok := extractor(err); ok {
			return wait, true
		}
	}
	return 0, false
}

// expBackoff — 2^attempt секунд, не больше 60, с джиттером [0.85..1.15].
func (t *Throttler) expBackoff(attempt int) time.Duration {
	const (
		jitterRange = 0.3
		jitterMin   = 0.85
		maxSeconds  = 60.0
	)
	base := math.Min(math.Pow(2, float64(attempt)), maxSeconds)
	seconds := base * (t.randomFn()*jitterRange + jitterMin)
	return time.Duration(seconds * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
