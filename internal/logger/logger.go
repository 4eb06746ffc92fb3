package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string
	Format     string
	Output     string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type Logger struct {
	log *logrus.Logger
}

// Entry оборачивает logrus.Entry, чтобы помощники полей не терялись при
// цепочке вызовов: каждый With* возвращает снова Entry.
type Entry struct {
	entry *logrus.Entry
}

func New(cfg Config) *Logger {
	log := logrus.New()

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05+07:00",
			ForceColors:     true,
		})
	}

	switch strings.ToLower(cfg.Level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		log.SetLevel(logrus.FatalLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	var writer io.Writer
	if cfg.Output != "" && cfg.Output != "stdout" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
	} else {
		writer = os.Stdout
	}

	log.SetOutput(writer)

	return &Logger{log: log}
}

func (l *Logger) Debug(msg string) {
	l.log.Debug(msg)
}

func (l *Logger) Info(msg string) {
	l.log.Info(msg)
}

func (l *Logger) Warn(msg string) {
	l.log.Warn(msg)
}

func (l *Logger) Error(msg string) {
	l.log.Error(msg)
}

func (l *Logger) Fatal(msg string) {
	l.log.Fatal(msg)
}

func (l *Logger) WithFields(fields logrus.Fields) *Entry {
	return &Entry{entry: l.log.WithFields(fields)}
}

func (l *Logger) WithError(err error) *Entry {
	return &Entry{entry: l.log.WithError(err)}
}

func (l *Logger) WithComponent(component string) *Entry {
	return &Entry{entry: l.log.WithField("component", component)}
}

func (l *Logger) WithSymbol(symbol string) *Entry {
	return &Entry{entry: l.log.WithField("symbol", symbol)}
}

func (l *Logger) WithOrderID(orderID string) *Entry {
	return &Entry{entry: l.log.WithField("order_id", orderID)}
}

func (l *Logger) WithCycle(cycle string) *Entry {
	return &Entry{entry: l.log.WithField("cycle", cycle)}
}

func (e *Entry) Debug(msg string) {
	e.entry.Debug(msg)
}

func (e *Entry) Info(msg string) {
	e.entry.Info(msg)
}

func (e *Entry) Warn(msg string) {
	e.entry.Warn(msg)
}

func (e *Entry) Error(msg string) {
	e.entry.Error(msg)
}

func (e *Entry) Fatal(msg string) {
	e.entry.Fatal(msg)
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{entry: e.entry.WithField(key, value)}
}

func (e *Entry) WithFields(fields logrus.Fields) *Entry {
	return &Entry{entry: e.entry.WithFields(fields)}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{entry: e.entry.WithError(err)}
}

func (e *Entry) WithComponent(component string) *Entry {
	return e.WithField("component", component)
}

func (e *Entry) WithSymbol(symbol string) *Entry {
	return e.WithField("symbol", symbol)
}

func (e *Entry) WithOrderID(orderID string) *Entry {
	return e.WithField("order_id", orderID)
}

func (e *Entry) WithCycle(cycle string) *Entry {
	return e.WithField("cycle", cycle)
}
