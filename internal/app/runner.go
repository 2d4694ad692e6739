// Файл runner.go — точка оркестрации: сервисы запускаются в заданном порядке,
// а при отмене главного контекста останавливаются в обратном, чтобы шлюз
// перестал приносить события раньше, чем закроются очередь доставки и хранилище.
package app

import (
	"context"

	"github.com/go-faster/errors"

	"highlight-bot/internal/infra/logger"
)

// service — узел с жизненным циклом Start/Stop.
type service struct {
	name  string
	start func(ctx context.Context) error
	stop  func()
}

// startFunc приводит Start без ошибки к общему виду.
func startFunc(fn func(ctx context.Context)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		fn(ctx)
		return nil
	}
}

// Runner запускает и останавливает сервисы приложения.
type Runner struct {
	mainCtx  context.Context // Внешний контекст процесса: отменяется по Ctrl+C/сигналам.
	services []service
	started  []service
}

// NewRunner подготавливает Runner со списком сервисов в порядке запуска.
func NewRunner(mainCtx context.Context, services ...service) *Runner {
	return &Runner{mainCtx: mainCtx, services: services}
}

// Run стартует сервисы и блокируется до отмены mainCtx. Ошибка запуска любого
// узла останавливает уже запущенные и возвращается наружу.
func (r *Runner) Run() error {
	logger.Info("Highlight bot starting...")
	if err := r.startAllServices(); err != nil {
		r.stopAllServices()
		return err
	}
	logger.Info("Highlight bot running...")

	<-r.mainCtx.Done()
	logger.Debug("Shutdown signal received, stopping runner...")
	r.stopAllServices()
	return nil
}

func (r *Runner) startAllServices() error {
	for _, s := range r.services {
		if r.mainCtx.Err() != nil {
			return nil
		}
		logger.Debugf("starting service %s", s.name)
		if err := s.start(r.mainCtx); err != nil {
			return errors.Wrapf(err, "start %s", s.name)
		}
		r.started = append(r.started, s)
		logger.Debugf("service %s started", s.name)
	}
	return nil
}

func (r *Runner) stopAllServices() {
	for i := len(r.started) - 1; i >= 0; i-- {
		s := r.started[i]
		logger.Debugf("stopping service %s", s.name)
		s.stop()
		logger.Debugf("service %s stopped", s.name)
	}
	r.started = nil
}
