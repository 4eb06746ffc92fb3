package alert

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// Notifier — сток для отчётов об ошибках. Вызывается только на границах
// ошибок, никогда на счастливом пути, и никогда не блокирует цикл.
type Notifier interface {
	Capture(err error, tags map[string]string)
	Flush()
}

type sentryNotifier struct{}

type noopNotifier struct{}

// New инициализирует Sentry. Пустой DSN выключает отправку, бот
// продолжает работать только с локальными логами.
func New(dsn string) (Notifier, error) {
	if dsn == "" {
		return noopNotifier{}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return nil, err
	}

	return sentryNotifier{}, nil
}

func (sentryNotifier) Capture(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

func (sentryNotifier) Flush() {
	sentry.Flush(2 * time.Second)
}

func (noopNotifier) Capture(err error, tags map[string]string) {}

func (noopNotifier) Flush() {}
