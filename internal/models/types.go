package models

import "time"

type OrderSide string
type OrderType string
type OrderState string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	OrderTypeMarket        OrderType = "MARKET"
	OrderTypeLimit         OrderType = "LIMIT"
	OrderTypeLimitMaker    OrderType = "LIMIT_MAKER"
	OrderTypeStopLossLimit OrderType = "STOP_LOSS_LIMIT"

	OrderStateOpen     OrderState = "OPEN"
	OrderStateFilled   OrderState = "FILLED"
	OrderStateCanceled OrderState = "CANCELED"
)

type Ticker struct {
	Symbol    string    `json:"symbol"`
	LastPrice float64   `json:"last_price"`
	Timestamp time.Time `json:"timestamp"`
}

type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}

type PricePoint struct {
	Price float64   `json:"price"`
	Time  time.Time `json:"time"`
}

// PriceSnapshot фиксирует цены набора пар в один момент времени.
// После захвата не изменяется: два снимка сравнивает детектор волатильности.
type PriceSnapshot map[string]PricePoint

// Position — одна открытая позиция. На символ существует не более одной
// записи: создаёт её только вход, удаляет только монитор выходов.
type Position struct {
	Symbol           string    `json:"symbol"`
	Quantity         float64   `json:"quantity"`
	EntryOrderID     string    `json:"entry_order_id"`
	EntryPrice       float64   `json:"entry_price"`
	PurchaseTime     time.Time `json:"purchase_time"`
	PurchaseTimeUnix int64     `json:"purchase_time_unix"`
	TPThreshold      float64   `json:"tp_threshold"`
	SLThreshold      float64   `json:"sl_threshold"`
	// ExitOrderID — защитный ордер на бирже: SL-нога брекета либо,
	// в режиме откупа просадок, единственная TP-нога.
	ExitOrderID string    `json:"exit_order_id"`
	TPOrderID   string    `json:"tp_order_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Position) Age(now time.Time) time.Duration {
	return now.Sub(p.PurchaseTime)
}

// ClosedPosition — снимок позиции на момент закрытия. История только
// дополняется, записи не изменяются.
type ClosedPosition struct {
	Position
	ExitPrice     float64   `json:"exit_price"`
	ExitTime      time.Time `json:"exit_time"`
	ProfitPercent float64   `json:"profit_percent"`
	CloseReason   string    `json:"close_reason"`
}
