package ws

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"volatbot/internal/exchange"
	"volatbot/internal/models"
)

type miniTicker struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

func (w *Client) readLoop() {
	w.logEntry().Debug("readLoop запущен.")

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.stopCh:
				return
			default:
			}
			w.logEntry().WithError(err).Warn("Ошибка чтения WS.")

			if !w.reconnect() {
				return
			}
			continue
		}

		var tickers []miniTicker
		if err := json.Unmarshal(data, &tickers); err != nil {
			w.logEntry().WithError(err).Warn("Не удалось разобрать WS сообщение.")
			continue
		}

		for _, item := range tickers {
			price, err := strconv.ParseFloat(item.Close, 64)
			if err != nil || price <= 0 {
				continue
			}
			w.emit(exchange.Event{
				Type: exchange.EventTypeTicker,
				Ticker: &models.Ticker{
					Symbol:    item.Symbol,
					LastPrice: price,
					Timestamp: time.UnixMilli(item.EventTime),
				},
			})
		}
	}
}

// emit не блокируется на полном канале: читатель держит собственный кэш,
// свежий тикер важнее потерянного.
func (w *Client) emit(event exchange.Event) {
	select {
	case w.events <- event:
	default:
	}
}

func (w *Client) reconnect() bool {
	backoff := w.reconnectMin

	for {
		select {
		case <-w.stopCh:
			return false
		default:
		}

		w.logEntry().Info("Попытка переподключения к WS.")

		time.Sleep(backoff)

		conn, _, err := websocket.DefaultDialer.Dial(w.url, nil)
		if err != nil {
			w.logEntry().WithError(err).Warn("Не удалось переподключиться к WS.")
			backoff = w.nextBackoff(backoff)
			continue
		}

		if w.conn != nil {
			_ = w.conn.Close()
		}

		w.conn = conn
		w.conn.SetReadLimit(4 << 20)

		w.emit(exchange.Event{Type: exchange.EventTypeReconnect})
		w.logEntry().Info("WS переподключён.")
		return true
	}
}

func (w *Client) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > w.reconnectMax {
		return w.reconnectMax
	}
	return next
}
