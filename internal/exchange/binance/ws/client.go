package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"volatbot/internal/exchange"
	"volatbot/internal/logger"
)

// Client читает публичный поток мини-тикеров всего рынка. Авторизация не
// нужна, подписка зашита в URL потока.
type Client struct {
	url          string
	log          *logger.Logger
	conn         *websocket.Conn
	events       chan exchange.Event
	stopCh       chan struct{}
	stopOnce     sync.Once
	reconnectMin time.Duration
	reconnectMax time.Duration
}

func New(baseURL string, log *logger.Logger) *Client {
	return &Client{
		url:          baseURL + "/ws/!miniTicker@arr",
		log:          log,
		events:       make(chan exchange.Event, 100),
		stopCh:       make(chan struct{}),
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}
}

func (w *Client) Connect(ctx context.Context) error {
	w.logEntry().WithField("url", w.url).Info("Подключение к WS.")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("Не удалось подключиться к WS: %w", err)
	}

	w.conn = conn
	w.conn.SetReadLimit(4 << 20)

	w.logEntry().Info("WS соединение установлено.")

	go w.readLoop()

	return nil
}

func (w *Client) Events() <-chan exchange.Event {
	return w.events
}

func (w *Client) Close() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.conn != nil {
			_ = w.conn.Close()
		}
	})
}

func (w *Client) logEntry() *logger.Entry {
	return w.log.WithComponent("binance_ws")
}
