package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 3.0, PercentOf(100, 3), 1e-9)
	assert.InDelta(t, 0.5, PercentOf(25, 2), 1e-9)
	assert.InDelta(t, 0.0, PercentOf(0, 50), 1e-9)
}

func TestRoundDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value float64
		step  float64
		want  float64
	}{
		{"ровно на шаге", 0.5, 0.1, 0.5},
		{"округление вниз", 0.57, 0.1, 0.5},
		{"мелкий шаг", 123.456789, 0.001, 123.456},
		{"нулевой шаг без изменений", 1.234, 0, 1.234},
		{"накопленная погрешность float", 0.3, 0.1, 0.3},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, RoundDown(tc.value, tc.step), 1e-9)
		})
	}
}

func TestCalcThresholds(t *testing.T) {
	t.Parallel()

	th := CalcThresholds(100, 3, 2)
	assert.InDelta(t, 103.0, th.TP, 1e-9)
	assert.InDelta(t, 98.0, th.SL, 1e-9)
}

func TestProfitPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 4.0, ProfitPercent(100, 104), 1e-9)
	assert.InDelta(t, -2.0, ProfitPercent(100, 98), 1e-9)
	assert.InDelta(t, 0.0, ProfitPercent(0, 104), 1e-9)
}
