package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"highlight-bot/internal/app"
	"highlight-bot/internal/infra/config"
	"highlight-bot/internal/infra/logger"
	"highlight-bot/internal/infra/pr"
)

func main() {
	// envPath определяет расположение .env с токеном и общими настройками.
	envPath := flag.String("env", "assets/.env", "path to .env file")
	historyPath := flag.String("history", "data/.console_history", "path to console history file")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Консоль поднимаем только на терминале: под systemd/docker stdin не интерактивен.
	if config.Env().CLIEnable && term.IsTerminal(int(os.Stdin.Fd())) {
		if err := pr.Init(pr.Options{Prompt: "> ", HistoryFile: *historyPath}); err != nil {
			logger.Fatal("failed to init console", zap.Error(err))
		}
		defer pr.Close()
	}

	// logger.Init задаёт уровень, а SetWriters перенаправляет выводы в pr, чтобы логи не рвали строку ввода.
	logger.Init(config.Env().LogLevel)
	logger.SetWriters(pr.Stdout(), pr.Stderr())
	if env := config.Env(); env.LogFile != "" {
		logger.EnableFile(logger.FileOptions{
			Path:       env.LogFile,
			Level:      env.LogFileLevel,
			MaxSizeMB:  env.LogFileMaxSize,
			MaxBackups: env.LogFileMaxBackups,
			MaxAgeDays: env.LogFileMaxAge,
			Compress:   env.LogFileCompress,
		})
	}
	defer logger.Sync()
	for _, msg := range config.Warnings() {
		logger.Warn(msg)
	}

	// Контекст с обработкой системных сигналов (Ctrl+C/SIGTERM). stop снимает подписку.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := app.NewApp()
	if err := a.Init(ctx, stop); err != nil {
		stop()
		logger.Fatal("app init failed", zap.Error(err))
	}

	if err := a.Run(); err != nil {
		stop()
		logger.Fatal("app run failed", zap.Error(err))
	}
	stop()
	logger.Info("Graceful shutdown complete")
}
