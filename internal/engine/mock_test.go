package engine

import (
	"context"
	"testing"
	"time"

	"volatbot/internal/alert"
	"volatbot/internal/config"
	"volatbot/internal/exchange"
	"volatbot/internal/ledger"
	"volatbot/internal/logger"
	"volatbot/internal/models"
)

type orderCall struct {
	symbol string
	qty    float64
}

// fakeClient — подменная биржа для тестов движка. Поведение задаётся
// полями, вызовы ордеров записываются для проверок.
type fakeClient struct {
	rules      exchange.InstrumentRules
	rulesErr   error
	prices     map[string]float64
	pricesErr  error
	candles    []models.Candle
	candlesErr error
	buyResult  exchange.OrderResult
	buyErr     error
	sellResult exchange.OrderResult
	sellErr    error
	bracket    exchange.BracketIDs
	bracketErr error
	limitID    string
	limitErr   error
	statuses   map[string]exchange.OrderStatus
	statusErr  error
	cancelErr  error

	buys     []orderCall
	sells    []orderCall
	brackets []orderCall
	limits   []orderCall
	cancels  []string
}

func (f *fakeClient) GetInstrumentRules(ctx context.Context, symbol string) (exchange.InstrumentRules, error) {
	return f.rules, f.rulesErr
}

func (f *fakeClient) GetPrices(ctx context.Context) (map[string]float64, error) {
	return f.prices, f.pricesErr
}

func (f *fakeClient) GetTickers(ctx context.Context, symbols []string) (map[string]float64, error) {
	if f.pricesErr != nil {
		return nil, f.pricesErr
	}
	out := map[string]float64{}
	for _, symbol := range symbols {
		if price, ok := f.prices[symbol]; ok {
			out[symbol] = price
		}
	}
	return out, nil
}

func (f *fakeClient) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	return f.candles, f.candlesErr
}

func (f *fakeClient) MarketBuy(ctx context.Context, symbol string, qty float64) (exchange.OrderResult, error) {
	f.buys = append(f.buys, orderCall{symbol: symbol, qty: qty})
	return f.buyResult, f.buyErr
}

func (f *fakeClient) MarketSell(ctx context.Context, symbol string, qty float64) (exchange.OrderResult, error) {
	f.sells = append(f.sells, orderCall{symbol: symbol, qty: qty})
	return f.sellResult, f.sellErr
}

func (f *fakeClient) PlaceBracketExit(ctx context.Context, symbol string, qty, tpPrice, slTrigger, slLimit float64) (exchange.BracketIDs, error) {
	f.brackets = append(f.brackets, orderCall{symbol: symbol, qty: qty})
	return f.bracket, f.bracketErr
}

func (f *fakeClient) PlaceLimitExit(ctx context.Context, symbol string, qty, price float64) (string, error) {
	f.limits = append(f.limits, orderCall{symbol: symbol, qty: qty})
	return f.limitID, f.limitErr
}

func (f *fakeClient) GetOrderStatus(ctx context.Context, symbol, orderID string) (exchange.OrderStatus, error) {
	if f.statusErr != nil {
		return exchange.OrderStatus{}, f.statusErr
	}
	return f.statuses[orderID], nil
}

func (f *fakeClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	f.cancels = append(f.cancels, orderID)
	return f.cancelErr
}

func testConfig() *config.Config {
	return &config.Config{
		Bot: config.BotConfig{
			QuoteCurrency:   "USDT",
			VolatileTrigger: 3,
			TPPercent:       3,
			SLPercent:       2,
			Budget:          100,
			MinOrderAmount:  10,
			SellRatio:       100,
			ExcludedFiats:   []string{"EUR", "GBP", "RUB", "TRY", "BRL"},
		},
		Scheduler: config.SchedulerConfig{
			ScanInterval:    5 * time.Minute,
			MonitorInterval: 10 * time.Second,
		},
	}
}

func testEngine(t *testing.T, cfg *config.Config, client exchange.Client) (*Engine, *ledger.Ledger) {
	t.Helper()

	led := ledger.New(t.TempDir())
	log := logger.New(logger.Config{Level: "fatal"})
	notifier, err := alert.New("")
	if err != nil {
		t.Fatalf("alert.New: %v", err)
	}
	return New(cfg, client, nil, led, log, notifier), led
}
