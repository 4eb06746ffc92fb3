package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volatbot/internal/models"
)

func openPositions(values ...float64) []models.Position {
	var open []models.Position
	for _, value := range values {
		open = append(open, models.Position{Quantity: 1, EntryPrice: value})
	}
	return open
}

func TestCalcExposure(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, CalcExposure(nil), 1e-9)
	assert.InDelta(t, 55.0, CalcExposure(openPositions(20, 35)), 1e-9)
}

func TestCalcBuyQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		candidates int
		open       []models.Position
		budget     float64
		minOrder   float64
		price      float64
		lotSize    float64
		minQty     float64
		wantQty    float64
		wantKind   models.FailureKind
	}{
		{
			name:       "бюджет делится поровну",
			candidates: 4,
			budget:     100,
			minOrder:   10,
			price:      5,
			lotSize:    0.1,
			minQty:     0.1,
			wantQty:    5, // 100/4 = 25 на символ, 25/5 = 5
		},
		{
			name:       "маленькая доля поднимается до минимума",
			candidates: 4,
			budget:     30,
			minOrder:   20,
			price:      10,
			lotSize:    0.1,
			minQty:     0.1,
			wantQty:    2, // 30/4 = 7.5 < 20, берём 20/10 = 2
		},
		{
			name:       "объём округляется вниз до шага",
			candidates: 1,
			budget:     100,
			minOrder:   10,
			price:      7,
			lotSize:    0.01,
			minQty:     0.01,
			wantQty:    14.28, // 100/7 = 14.2857...
		},
		{
			name:       "экспозиция ровно на лимите блокирует вход",
			candidates: 1,
			open:       openPositions(90),
			budget:     100,
			minOrder:   10,
			price:      5,
			lotSize:    0.1,
			minQty:     0.1,
			wantKind:   models.KindInsufficientBudget,
		},
		{
			name:       "экспозиция под лимитом не блокирует",
			candidates: 1,
			open:       openPositions(89),
			budget:     100,
			minOrder:   10,
			price:      5,
			lotSize:    0.1,
			minQty:     0.1,
			wantQty:    20,
		},
		{
			name:       "объём ниже минимального лота",
			candidates: 1,
			budget:     100,
			minOrder:   10,
			price:      50000,
			lotSize:    0.001,
			minQty:     0.01,
			wantKind:   models.KindSubMinimumOrder,
		},
		{
			name:       "нулевая цена — испорченные данные",
			candidates: 1,
			budget:     100,
			minOrder:   10,
			price:      0,
			lotSize:    0.1,
			minQty:     0.1,
			wantKind:   models.KindMarketData,
		},
		{
			name:       "пустой батч — испорченные данные",
			candidates: 0,
			budget:     100,
			minOrder:   10,
			price:      5,
			lotSize:    0.1,
			minQty:     0.1,
			wantKind:   models.KindMarketData,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			qty, err := CalcBuyQuantity("AAAUSDT", tc.candidates, tc.open, tc.budget, tc.minOrder, tc.price, tc.lotSize, tc.minQty)
			if tc.wantKind != "" {
				require.Error(t, err)
				assert.True(t, models.HasKind(err, tc.wantKind))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.wantQty, qty, 1e-9)
		})
	}
}

func TestCalcBuyQuantitySkipKinds(t *testing.T) {
	t.Parallel()

	_, err := CalcBuyQuantity("AAAUSDT", 1, openPositions(95), 100, 10, 5, 0.1, 0.1)
	assert.True(t, models.IsSkip(err))

	_, err = CalcBuyQuantity("AAAUSDT", 1, nil, 100, 10, 50000, 0.001, 0.01)
	assert.True(t, models.IsSkip(err))
}
