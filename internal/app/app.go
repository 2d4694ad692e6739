// Package app — верхний уровень сборки бота подсветок. Здесь связываются
// конфигурация, хранилище профилей, конвейер подсветок, доставка уведомлений,
// команды, консоль и шлюз Discord. Отсюда стартуют сервисы и обеспечивается
// корректный shutdown.
package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"highlight-bot/internal/adapters/cli"
	"highlight-bot/internal/adapters/discord"
	"highlight-bot/internal/domain/activity"
	"highlight-bot/internal/domain/commands"
	"highlight-bot/internal/domain/highlights"
	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/notifications"
	"highlight-bot/internal/domain/profiles"
	"highlight-bot/internal/infra/concurrency"
	"highlight-bot/internal/infra/config"
	"highlight-bot/internal/infra/logger"
	"highlight-bot/internal/infra/pr"
	"highlight-bot/internal/infra/storage"
	"highlight-bot/internal/infra/throttle"
)

// profileStore — бэкенд профилей с закрытием.
type profileStore interface {
	profiles.Store
	Close() error
}

// App агрегирует зависимости бота и управляет их связью.
type App struct {
	mainCtx    context.Context    // Контекст жизненного цикла приложения.
	mainCancel context.CancelFunc // Инициирует отмену mainCtx.

	store     profileStore
	registry  *profiles.Registry
	watcher   *storage.Watcher // nil, если STORE_WATCH выключен.
	throttler *throttle.Throttler
	scheduler *activity.Scheduler
	dedup     *concurrency.Deduplicator
	gateway   *discord.Gateway
	console   *cli.Service // nil, если консоль выключена.
	runner    *Runner
}

// NewApp создаёт пустой каркас приложения. Фактическая инициализация выполняется в Init().
func NewApp() *App {
	return &App{}
}

// Init собирает все узлы. Сеть не трогает: соединение со шлюзом открывается в Run.
func (a *App) Init(ctx context.Context, cancel context.CancelFunc) error {
	a.mainCtx, a.mainCancel = ctx, cancel
	env := config.Env()

	store, err := openStore(env)
	if err != nil {
		return err
	}
	a.store = store

	a.registry = profiles.NewRegistry(store)
	if err := a.registry.Reload(ctx); err != nil {
		_ = store.Close()
		return errors.Wrap(err, "load profiles")
	}
	logger.Infof("Profiles loaded: %d", a.registry.Len())

	if env.StoreWatch {
		a.watcher = storage.NewWatcher(env.StoreFile, func() {
			if err := a.registry.Reload(a.mainCtx); err != nil {
				logger.Errorf("reload profiles after external edit: %v", err)
				return
			}
			logger.Infof("Profiles reloaded from %s: %d", env.StoreFile, a.registry.Len())
		})
	}

	session, err := discord.NewSession(env.DiscordToken)
	if err != nil {
		_ = store.Close()
		return err
	}
	dir := discord.NewDirectory(session.State)
	msgs := discord.NewMessages(dir, session)

	// Доставка: x/time/rate плюс Retry-After из ответов Discord.
	a.throttler = throttle.New(env.NotifyRPS, throttle.WithWaitExtractors(discord.RetryAfterExtractor()))
	dispatcher := notifications.NewDispatcher(msgs, msgs, a.throttler, notifications.Options{
		ContextMessages: env.ContextMessages,
		ContentLimit:    env.ContentLimit,
	})

	regexes := matcher.NewRegexCache(matcher.RE2{})
	eval := matcher.NewEvaluator(regexes)
	tracker := activity.NewTracker(time.Now)
	a.scheduler = activity.NewScheduler()
	svc := highlights.NewService(a.registry, dir, eval, tracker, a.scheduler, dispatcher, highlights.Options{
		Freshness: time.Duration(env.FreshnessSec) * time.Second,
	})

	exec := commands.NewExecutor(a.registry, dir, dir, eval, dispatcher)
	router := commands.NewRouter(exec)

	a.dedup = concurrency.NewDeduplicator(time.Duration(env.DedupWindowSec) * time.Second)
	a.gateway = discord.NewGateway(session, msgs, svc, router, a.dedup)

	// Без терминала (pr не инициализирован) консоль не поднимаем.
	if env.CLIEnable && pr.Active() {
		a.console = cli.NewService(cli.Deps{
			Profiles:  a.registry,
			Router:    router,
			Evaluator: eval,
			Tracker:   tracker,
			Scheduler: a.scheduler,
			Regexes:   regexes,
			Resolver:  dir,
		}, a.mainCancel)
	}

	a.runner = NewRunner(a.mainCtx, a.services()...)
	logger.Debugf("Discord session prepared: intents=%d", session.Identify.Intents)
	return nil
}

// Run запускает сервисы и блокируется до остановки приложения.
func (a *App) Run() error {
	defer func() {
		if err := a.store.Close(); err != nil {
			logger.Errorf("close profile store: %v", err)
		}
	}()
	return a.runner.Run()
}

// services — порядок запуска. Остановка идёт в обратном порядке, так что шлюз
// гасится первым, а хранилищная часть последней.
func (a *App) services() []service {
	list := []service{
		{name: "deduplicator", start: startFunc(a.dedup.Start), stop: a.dedup.Stop},
		{name: "throttler", start: startFunc(a.throttler.Start), stop: a.throttler.Stop},
		{name: "scheduler", start: startFunc(a.scheduler.Start), stop: a.scheduler.Stop},
	}
	if a.watcher != nil {
		list = append(list, service{name: "store_watcher", start: a.watcher.Start, stop: a.watcher.Stop})
	}
	list = append(list, service{name: "discord_gateway", start: a.gateway.Start, stop: a.gateway.Stop})
	if a.console != nil {
		list = append(list, service{name: "cli", start: startFunc(a.console.Start), stop: a.console.Stop})
	}
	return list
}

func openStore(env config.EnvConfig) (profileStore, error) {
	switch env.StoreBackend {
	case config.StoreJSON:
		s, err := storage.OpenJSON(env.StoreFile)
		if err != nil {
			return nil, errors.Wrap(err, "open json store")
		}
		return s, nil
	default:
		s, err := storage.OpenBolt(env.StoreFile)
		if err != nil {
			return nil, errors.Wrap(err, "open bolt store")
		}
		return s, nil
	}
}
