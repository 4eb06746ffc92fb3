package logger

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// Помощники полей должны переживать цепочку вызовов: после WithError или
// WithFields запись всё ещё умеет WithSymbol/WithOrderID.
func TestEntryChainingKeepsFields(t *testing.T) {
	t.Parallel()

	log := New(Config{Level: "fatal"})

	entry := log.WithComponent("engine").
		WithCycle("scan").
		WithSymbol("AAAUSDT").
		WithError(errors.New("нет цены")).
		WithOrderID("o-1").
		WithFields(logrus.Fields{"qty": 5.0})

	data := entry.entry.Data
	assert.Equal(t, "engine", data["component"])
	assert.Equal(t, "scan", data["cycle"])
	assert.Equal(t, "AAAUSDT", data["symbol"])
	assert.Equal(t, "o-1", data["order_id"])
	assert.Equal(t, 5.0, data["qty"])
	assert.EqualError(t, data[logrus.ErrorKey].(error), "нет цены")
}

func TestLoggerFieldHelpers(t *testing.T) {
	t.Parallel()

	log := New(Config{Level: "fatal"})

	assert.Equal(t, "AAAUSDT", log.WithSymbol("AAAUSDT").entry.Data["symbol"])
	assert.Equal(t, "o-1", log.WithOrderID("o-1").entry.Data["order_id"])
	assert.Equal(t, "monitor", log.WithCycle("monitor").entry.Data["cycle"])
}
