package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatbot/internal/models"
)

func snapshot(prices map[string]float64) models.PriceSnapshot {
	now := time.Now()
	snap := models.PriceSnapshot{}
	for symbol, price := range prices {
		snap[symbol] = models.PricePoint{Price: price, Time: now}
	}
	return snap
}

func TestDetectVolatiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		initial map[string]float64
		latest  map[string]float64
		trigger float64
		want    []string
	}{
		{
			name:    "рост ровно на пороге входит",
			initial: map[string]float64{"AAAUSDT": 100},
			latest:  map[string]float64{"AAAUSDT": 103},
			trigger: 3,
			want:    []string{"AAAUSDT"},
		},
		{
			name:    "рост ниже порога не входит",
			initial: map[string]float64{"AAAUSDT": 100},
			latest:  map[string]float64{"AAAUSDT": 102.9},
			trigger: 3,
			want:    nil,
		},
		{
			name:    "падение не входит",
			initial: map[string]float64{"AAAUSDT": 100},
			latest:  map[string]float64{"AAAUSDT": 95},
			trigger: 3,
			want:    nil,
		},
		{
			name:    "результат отсортирован",
			initial: map[string]float64{"BBBUSDT": 10, "AAAUSDT": 100},
			latest:  map[string]float64{"BBBUSDT": 11, "AAAUSDT": 110},
			trigger: 3,
			want:    []string{"AAAUSDT", "BBBUSDT"},
		},
		{
			name:    "пара без второй котировки пропускается",
			initial: map[string]float64{"AAAUSDT": 100, "NEWUSDT": 1},
			latest:  map[string]float64{"AAAUSDT": 110},
			trigger: 3,
			want:    []string{"AAAUSDT"},
		},
		{
			name:    "новая пара без базовой котировки пропускается",
			initial: map[string]float64{"AAAUSDT": 100},
			latest:  map[string]float64{"AAAUSDT": 100, "NEWUSDT": 5},
			trigger: 3,
			want:    nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DetectVolatiles(snapshot(tc.initial), snapshot(tc.latest), tc.trigger)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectVolatilesZeroInitialPrice(t *testing.T) {
	t.Parallel()

	_, err := DetectVolatiles(
		snapshot(map[string]float64{"AAAUSDT": 0}),
		snapshot(map[string]float64{"AAAUSDT": 100}),
		3,
	)
	require.Error(t, err)
	assert.True(t, models.HasKind(err, models.KindMarketData))
}
