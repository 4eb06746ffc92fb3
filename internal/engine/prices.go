package engine

import (
	"context"
	"sync"
	"time"

	"volatbot/internal/models"
)

// priceCache держит последние цены из WS потока. Монитор читает кэш
// вместо REST запроса на каждую позицию, устаревшие записи добираются
// батчевым запросом тикеров.
type priceCache struct {
	mu     sync.Mutex
	points map[string]models.PricePoint
}

func newPriceCache() *priceCache {
	return &priceCache{points: map[string]models.PricePoint{}}
}

func (c *priceCache) Set(ticker models.Ticker) {
	c.mu.Lock()
	c.points[ticker.Symbol] = models.PricePoint{Price: ticker.LastPrice, Time: ticker.Timestamp}
	c.mu.Unlock()
}

func (c *priceCache) Fresh(symbols []string, maxAge time.Duration, now time.Time) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		point, ok := c.points[symbol]
		if !ok {
			continue
		}
		if now.Sub(point.Time) > maxAge {
			continue
		}
		fresh[symbol] = point.Price
	}
	return fresh
}

// latestPrices собирает цены позиций один раз за цикл: свежие из кэша,
// остальные одним батчевым запросом. Недоступность части цен не ошибка
// цикла, позиции без цены оцениваются по статусу ордера.
func (e *Engine) latestPrices(ctx context.Context, symbols []string) map[string]float64 {
	maxAge := 3 * e.cfg.Scheduler.MonitorInterval
	prices := e.prices.Fresh(symbols, maxAge, time.Now())

	var missing []string
	for _, symbol := range symbols {
		if _, ok := prices[symbol]; !ok {
			missing = append(missing, symbol)
		}
	}
	if len(missing) == 0 {
		return prices
	}

	fetched, err := e.client.GetTickers(ctx, missing)
	if err != nil {
		e.logCycle("monitor").WithError(err).Warn("Не удалось добрать цены батчевым запросом.")
		e.report(models.NewFailure(models.KindMarketData, "", err), nil)
		return prices
	}
	for symbol, price := range fetched {
		prices[symbol] = price
	}
	return prices
}
