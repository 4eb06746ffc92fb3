package exchange

import (
	"context"
	"errors"

	"volatbot/internal/models"
)

// ErrOrderGone — ордер уже снят или не существует на бирже. Гонка
// "отмена против исполнения" при закрытии позиции считается нормальной,
// вызывающий код проверяет её через errors.Is.
var ErrOrderGone = errors.New("Ордер уже отсутствует на бирже.")

type InstrumentRules struct {
	TickSize    float64
	LotSize     float64
	MinQty      float64
	MinNotional float64
	BaseCoin    string
	QuoteCoin   string
}

// OrderResult — результат рыночного ордера. FillPrice — средняя цена
// фактического исполнения, именно от неё считаются пороги позиции.
type OrderResult struct {
	OrderID   string
	FillPrice float64
	FilledQty float64
}

// BracketIDs — пара ног OCO-брекета. Исполнение одной ноги отменяет
// другую на стороне биржи.
type BracketIDs struct {
	TPOrderID string
	SLOrderID string
}

type OrderStatus struct {
	State     models.OrderState
	FillPrice float64
}

type EventType string

const (
	EventTypeTicker    EventType = "Ticker"
	EventTypeReconnect EventType = "Reconnect"
)

type Event struct {
	Type   EventType
	Ticker *models.Ticker
}

type Client interface {
	GetInstrumentRules(ctx context.Context, symbol string) (InstrumentRules, error)
	GetPrices(ctx context.Context) (map[string]float64, error)
	GetTickers(ctx context.Context, symbols []string) (map[string]float64, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	MarketBuy(ctx context.Context, symbol string, qty float64) (OrderResult, error)
	MarketSell(ctx context.Context, symbol string, qty float64) (OrderResult, error)
	PlaceBracketExit(ctx context.Context, symbol string, qty, tpPrice, slTrigger, slLimit float64) (BracketIDs, error)
	PlaceLimitExit(ctx context.Context, symbol string, qty, price float64) (string, error)
	GetOrderStatus(ctx context.Context, symbol, orderID string) (OrderStatus, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// Stream отдаёт живые тикеры для кэша цен монитора.
type Stream interface {
	Connect(ctx context.Context) error
	Events() <-chan Event
	Close()
}
