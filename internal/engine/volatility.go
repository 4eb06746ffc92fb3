package engine

import (
	"sort"

	"volatbot/internal/models"
)

// DetectVolatiles сравнивает два снимка цен и возвращает пары, выросшие
// не менее чем на trigger процентов. Пара, отсутствующая в одном из
// снимков, пропускается. Нулевая начальная цена — испорченный вход,
// падаем сразу, а не делим на ноль молча.
func DetectVolatiles(initial, latest models.PriceSnapshot, trigger float64) ([]string, error) {
	seen := make(map[string]bool, len(initial))
	var volatiles []string

	for symbol, initialPoint := range initial {
		latestPoint, ok := latest[symbol]
		if !ok {
			continue
		}
		if initialPoint.Price == 0 {
			return nil, models.Failf(models.KindMarketData, symbol, "Нулевая цена в начальном снимке.")
		}

		change := (latestPoint.Price - initialPoint.Price) / initialPoint.Price * 100
		if change >= trigger && !seen[symbol] {
			seen[symbol] = true
			volatiles = append(volatiles, symbol)
		}
	}

	sort.Strings(volatiles)
	return volatiles, nil
}
