package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatbot/internal/models"
)

func position(symbol string) models.Position {
	return models.Position{
		Symbol:       symbol,
		Quantity:     10,
		EntryOrderID: "buy-" + symbol,
		EntryPrice:   100,
		PurchaseTime: time.Now().Truncate(time.Second),
		TPThreshold:  103,
		SLThreshold:  98,
		ExitOrderID:  "sl-" + symbol,
	}
}

func TestLedgerEmptyOnFirstRun(t *testing.T) {
	t.Parallel()

	led := New(t.TempDir())

	open, err := led.Open()
	require.NoError(t, err)
	assert.Empty(t, open)

	history, err := led.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLedgerAppendRoundTrip(t *testing.T) {
	t.Parallel()

	led := New(t.TempDir())
	pos := position("AAAUSDT")
	require.NoError(t, led.Append(pos))

	open, err := led.Open()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, pos.Symbol, open[0].Symbol)
	assert.Equal(t, pos.EntryOrderID, open[0].EntryOrderID)
	assert.InDelta(t, pos.TPThreshold, open[0].TPThreshold, 1e-9)
	assert.True(t, pos.PurchaseTime.Equal(open[0].PurchaseTime))
}

func TestLedgerAppendDuplicateSymbol(t *testing.T) {
	t.Parallel()

	led := New(t.TempDir())
	require.NoError(t, led.Append(position("AAAUSDT")))

	err := led.Append(position("AAAUSDT"))
	require.Error(t, err)
	assert.True(t, models.HasKind(err, models.KindLedgerConflict))
}

func TestLedgerReplace(t *testing.T) {
	t.Parallel()

	led := New(t.TempDir())
	pos := position("AAAUSDT")
	require.NoError(t, led.Append(pos))
	require.NoError(t, led.Append(position("BBBUSDT")))

	pos.TPThreshold = 110
	pos.SLThreshold = 105
	require.NoError(t, led.Replace(pos))

	open, err := led.Open()
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, got := range open {
		if got.Symbol == "AAAUSDT" {
			assert.InDelta(t, 110.0, got.TPThreshold, 1e-9)
		} else {
			assert.InDelta(t, 103.0, got.TPThreshold, 1e-9)
		}
	}
}

func TestLedgerReplaceMissing(t *testing.T) {
	t.Parallel()

	led := New(t.TempDir())
	err := led.Replace(position("AAAUSDT"))
	require.Error(t, err)
	assert.True(t, models.HasKind(err, models.KindLedgerConflict))
}

func TestLedgerClose(t *testing.T) {
	t.Parallel()

	led := New(t.TempDir())
	pos := position("AAAUSDT")
	require.NoError(t, led.Append(pos))
	require.NoError(t, led.Append(position("BBBUSDT")))

	closed := models.ClosedPosition{
		Position:      pos,
		ExitPrice:     104,
		ExitTime:      time.Now(),
		ProfitPercent: 4,
		CloseReason:   "TAKE_PROFIT",
	}
	require.NoError(t, led.Close(closed))

	open, err := led.Open()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "BBBUSDT", open[0].Symbol)

	history, err := led.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "AAAUSDT", history[0].Symbol)
	assert.InDelta(t, 104.0, history[0].ExitPrice, 1e-9)
	assert.Equal(t, "TAKE_PROFIT", history[0].CloseReason)
}

func TestLedgerCloseAlreadyClosed(t *testing.T) {
	t.Parallel()

	led := New(t.TempDir())
	pos := position("AAAUSDT")
	require.NoError(t, led.Append(pos))

	closed := models.ClosedPosition{Position: pos, ExitPrice: 104, ExitTime: time.Now()}
	require.NoError(t, led.Close(closed))

	// Второе закрытие — конфликт, история не раздувается.
	err := led.Close(closed)
	require.Error(t, err)
	assert.True(t, models.HasKind(err, models.KindLedgerConflict))

	history, herr := led.History()
	require.NoError(t, herr)
	assert.Len(t, history, 1)
}

func TestLedgerCorruptedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led := New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "positions.json"), []byte("{не json"), 0o644))

	_, err := led.Open()
	require.Error(t, err)
	assert.True(t, models.HasKind(err, models.KindLedgerIO))
}

// Пересекающиеся циклы пишут одновременно: ни одна запись не теряется.
func TestLedgerConcurrentAppends(t *testing.T) {
	t.Parallel()

	led := New(t.TempDir())

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, led.Append(position(fmt.Sprintf("SYM%02dUSDT", i))))
		}(i)
	}
	wg.Wait()

	open, err := led.Open()
	require.NoError(t, err)
	assert.Len(t, open, workers)
}
