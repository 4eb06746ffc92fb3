package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"volatbot/internal/models"
)

func TestFormatPlain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		val  float64
		want string
	}{
		{"целое без дробной части", 20, "20"},
		{"хвостовые нули отрезаются", 0.50000, "0.5"},
		{"мелкое значение без экспоненты", 0.00001, "0.00001"},
		{"ноль", 0, "0"},
		{"обычная цена", 5.2015, "5.2015"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, formatPlain(tc.val))
		})
	}
}

func TestIsOrderGone(t *testing.T) {
	t.Parallel()

	assert.False(t, isOrderGone(nil))
	assert.False(t, isOrderGone(assert.AnError))
	gone := models.Failf(models.KindVenueRejected, "", "Ошибка binance: Unknown order sent. (code=-2011)")
	assert.True(t, isOrderGone(gone))
}
