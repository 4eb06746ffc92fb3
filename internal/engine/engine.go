package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"volatbot/internal/alert"
	"volatbot/internal/config"
	"volatbot/internal/exchange"
	"volatbot/internal/ledger"
	"volatbot/internal/logger"
	"volatbot/internal/models"
)

type Engine struct {
	cfg    *config.Config
	client exchange.Client
	stream exchange.Stream
	ledger *ledger.Ledger
	log    *logger.Logger
	alert  alert.Notifier

	mu           sync.Mutex
	prevSnapshot models.PriceSnapshot
	rules        map[string]exchange.InstrumentRules

	prices *priceCache
}

func New(cfg *config.Config, client exchange.Client, stream exchange.Stream, led *ledger.Ledger, log *logger.Logger, notifier alert.Notifier) *Engine {
	return &Engine{
		cfg:    cfg,
		client: client,
		stream: stream,
		ledger: led,
		log:    log,
		alert:  notifier,
		rules:  map[string]exchange.InstrumentRules{},
		prices: newPriceCache(),
	}
}

// Start запускает два независимых таймера: цикл сканирования покупок и
// цикл монитора выходов. Циклы не синхронизированы и могут пересекаться
// по времени; ещё идущий цикл не отменяется — безопасность пересечений
// обеспечивает леджер, а не взаимное исключение циклов.
func (e *Engine) Start(ctx context.Context) error {
	if e.stream != nil {
		if err := e.stream.Connect(ctx); err != nil {
			e.logEntry().WithError(err).Warn("WS поток тикеров недоступен, работаем только через REST.")
		} else {
			go e.handleEvents(ctx, e.stream.Events())
		}
	}

	// Первый снимок — база для сравнения; до следующего тика покупок
	// боту нечего сравнивать.
	if snap, err := e.captureSnapshot(ctx); err != nil {
		e.logEntry().WithError(err).Warn("Не удалось снять начальный снимок цен.")
		e.report(err, nil)
	} else {
		e.setBaseline(snap)
		e.logEntry().WithField("symbols", len(snap)).Info("Начальный снимок цен собран, ждём данных для проверки волатильности.")
	}

	scanTicker := time.NewTicker(e.cfg.Scheduler.ScanInterval)
	defer scanTicker.Stop()
	monitorTicker := time.NewTicker(e.cfg.Scheduler.MonitorInterval)
	defer monitorTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-scanTicker.C:
			go e.runScanCycle(ctx)
		case <-monitorTicker.C:
			go e.runMonitorCycle(ctx)
		}
	}
}

func (e *Engine) handleEvents(ctx context.Context, events <-chan exchange.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				e.logEntry().Warn("Канал событий WS закрыт.")
				return
			}
			switch event.Type {
			case exchange.EventTypeTicker:
				if event.Ticker != nil {
					e.prices.Set(*event.Ticker)
				}
			case exchange.EventTypeReconnect:
				e.logEntry().Info("WS переподключён, кэш цен наполнится заново.")
			}
		}
	}
}

// captureSnapshot снимает цены всех пар с котировкой бота, отфильтровав
// фиатные пары и маржинальные UP/DOWN токены.
func (e *Engine) captureSnapshot(ctx context.Context) (models.PriceSnapshot, error) {
	prices, err := e.client.GetPrices(ctx)
	if err != nil {
		return nil, models.NewFailure(models.KindMarketData, "", err)
	}

	now := time.Now()
	snap := models.PriceSnapshot{}
	for symbol, price := range prices {
		if !e.isWatchable(symbol) {
			continue
		}
		snap[symbol] = models.PricePoint{Price: price, Time: now}
	}
	return snap, nil
}

func (e *Engine) isWatchable(symbol string) bool {
	quote := e.cfg.Bot.QuoteCurrency
	if !strings.HasSuffix(symbol, quote) || symbol == quote {
		return false
	}
	base := strings.TrimSuffix(symbol, quote)
	if base == "" {
		return false
	}
	for _, fiat := range e.cfg.Bot.ExcludedFiats {
		if base == fiat {
			return false
		}
	}
	if strings.HasSuffix(base, "UP") || strings.HasSuffix(base, "DOWN") {
		return false
	}
	return true
}

func (e *Engine) setBaseline(snap models.PriceSnapshot) {
	e.mu.Lock()
	e.prevSnapshot = snap
	e.mu.Unlock()
}

func (e *Engine) swapBaseline(latest models.PriceSnapshot) models.PriceSnapshot {
	e.mu.Lock()
	prev := e.prevSnapshot
	e.prevSnapshot = latest
	e.mu.Unlock()
	return prev
}

// getRules кэширует биржевые ограничения пары: правила меняются редко,
// а запрашиваются на каждое решение о размере и продаже.
func (e *Engine) getRules(ctx context.Context, symbol string) (exchange.InstrumentRules, error) {
	e.mu.Lock()
	rules, ok := e.rules[symbol]
	e.mu.Unlock()
	if ok {
		return rules, nil
	}

	rules, err := e.client.GetInstrumentRules(ctx, symbol)
	if err != nil {
		return exchange.InstrumentRules{}, err
	}

	e.mu.Lock()
	e.rules[symbol] = rules
	e.mu.Unlock()
	return rules, nil
}

func (e *Engine) decisionParams() DecisionParams {
	return DecisionParams{
		TPPercent: e.cfg.Bot.TPPercent,
		SLPercent: e.cfg.Bot.SLPercent,
		Trailing:  e.cfg.Bot.TrailingMode,
		BuyDips:   e.cfg.Bot.BuyDipsMode,
		MaxHold:   e.cfg.Bot.MaxHold,
	}
}

// report отправляет ошибку в телеметрию. Сток не блокирует и не влияет
// на дальнейшую работу цикла.
func (e *Engine) report(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if kind, ok := models.KindOf(err); ok {
		if tags == nil {
			tags = map[string]string{}
		}
		tags["kind"] = string(kind)
	}
	e.alert.Capture(err, tags)
}

func (e *Engine) logEntry() *logger.Entry {
	return e.log.WithComponent("engine")
}

func (e *Engine) logCycle(cycle string) *logger.Entry {
	return e.logEntry().WithCycle(cycle)
}
