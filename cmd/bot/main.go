package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"volatbot/internal/alert"
	"volatbot/internal/config"
	"volatbot/internal/engine"
	"volatbot/internal/exchange/binance"
	"volatbot/internal/exchange/binance/ws"
	"volatbot/internal/ledger"
	"volatbot/internal/logger"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	logger.Info("Бот запущен.")

	notifier, err := alert.New(cfg.Alert.SentryDSN)
	if err != nil {
		logger.WithError(err).Fatal("Не удалось инициализировать Sentry.")
	}
	defer notifier.Flush()

	client := binance.New(cfg.Exchange.BaseUrl, cfg.Exchange.ApiKey, cfg.Exchange.Secret, logger)
	stream := ws.New(cfg.Exchange.WSUrl, logger)
	defer stream.Close()

	led := ledger.New(cfg.Ledger.Dir)

	eng := engine.New(cfg, client, stream, led, logger, notifier)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := eng.Start(ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Fatal("\"Двигатель\" завершился с ошибкой.")
		}
	}()
	<-sigCh

	cancel()

	logger.Info("Бот остановлен.")
}
