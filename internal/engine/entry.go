package engine

import (
	"context"
	"time"

	"volatbot/internal/models"
)

// candleConfirmCount — короткое окно свечей для фильтра подтверждения.
const (
	candleConfirmCount    = 3
	candleConfirmInterval = "1m"
)

// runScanCycle — цикл покупок: снимок цен, детекция волатильности,
// попытка входа по каждому кандидату. Ошибка одного символа не
// останавливает остальных.
func (e *Engine) runScanCycle(ctx context.Context) {
	log := e.logCycle("scan")

	latest, err := e.captureSnapshot(ctx)
	if err != nil {
		log.WithError(err).Error("Не удалось снять снимок цен, цикл пропущен.")
		e.report(err, nil)
		return
	}

	prev := e.swapBaseline(latest)
	if prev == nil {
		log.Info("Базовый снимок собран, сравнивать пока не с чем.")
		return
	}

	volatiles, err := DetectVolatiles(prev, latest, e.cfg.Bot.VolatileTrigger)
	if err != nil {
		log.WithError(err).Error("Детектор волатильности отказал.")
		e.report(err, nil)
		return
	}

	if len(volatiles) == 0 {
		log.WithFields(map[string]interface{}{
			"trigger_pct": e.cfg.Bot.VolatileTrigger,
			"interval":    e.cfg.Scheduler.ScanInterval.String(),
		}).Info("Ни одна пара не выросла выше порога за интервал.")
		return
	}

	log.WithField("symbols", volatiles).Info("Найдены волатильные пары.")

	for _, symbol := range volatiles {
		if err := e.enterPosition(ctx, symbol, len(volatiles), latest); err != nil {
			if models.IsSkip(err) {
				log.WithSymbol(symbol).WithError(err).Info("Вход пропущен.")
				continue
			}
			log.WithSymbol(symbol).WithError(err).Error("Ошибка входа по символу.")
			e.report(err, map[string]string{"symbol": symbol})
		}
	}
}

// enterPosition превращает решение о размере в исполненный вход с
// защитным ордером и записью в леджер. Порядок жёсткий: позиция
// попадает в леджер только после подтверждения защитного ордера биржей,
// чтобы падение между покупкой и постановкой выхода не оставило
// полузаписанную позицию.
func (e *Engine) enterPosition(ctx context.Context, symbol string, batchSize int, snap models.PriceSnapshot) error {
	log := e.logCycle("scan").WithSymbol(symbol)

	point, ok := snap[symbol]
	if !ok || point.Price <= 0 {
		return models.Failf(models.KindMarketData, symbol, "Нет цены в снимке.")
	}

	open, err := e.ledger.Open()
	if err != nil {
		return err
	}
	for _, pos := range open {
		if pos.Symbol == symbol {
			log.Info("Позиция по символу уже открыта, пропуск.")
			return nil
		}
	}

	rules, err := e.getRules(ctx, symbol)
	if err != nil {
		return err
	}

	qty, err := CalcBuyQuantity(symbol, batchSize, open, e.cfg.Bot.Budget, e.cfg.Bot.MinOrderAmount, point.Price, rules.LotSize, rules.MinQty)
	if err != nil {
		return err
	}

	if e.cfg.Bot.SafeMode {
		confirmed, err := e.confirmRise(ctx, symbol)
		if err != nil {
			return err
		}
		if !confirmed {
			log.Info("Последняя свеча закрылась ниже открытия, вход отложен.")
			return nil
		}
	}

	// Будущий защитный ордер проверяется на биржевые минимумы до
	// покупки: позицию нельзя оставлять без защиты, а отменить уже
	// исполненный рыночный вход невозможно.
	estimated := CalcThresholds(point.Price, e.cfg.Bot.TPPercent, e.cfg.Bot.SLPercent)
	if qty < rules.MinQty {
		return models.Failf(models.KindSubMinimumOrder, symbol, "Объём защитного ордера %f ниже минимального %f.", qty, rules.MinQty)
	}
	if rules.MinNotional > 0 && qty*estimated.SL < rules.MinNotional {
		return models.Failf(models.KindSubMinimumOrder, symbol, "Нотионал защитного ордера %f ниже минимального %f.", qty*estimated.SL, rules.MinNotional)
	}

	if e.cfg.Runtime.DryRun {
		log.WithFields(map[string]interface{}{
			"qty":   qty,
			"price": point.Price,
		}).Info("Dry run: покупка не отправлена.")
		return nil
	}

	buy, err := e.client.MarketBuy(ctx, symbol, qty)
	if err != nil {
		return err
	}

	log.WithOrderID(buy.OrderID).WithFields(map[string]interface{}{
		"qty":        qty,
		"fill_price": buy.FillPrice,
	}).Info("Рыночная покупка исполнена.")

	// Пороги считаются от цены фактического исполнения, а не от
	// котировки до сделки: проскальзывание ожидаемо.
	th := CalcThresholds(buy.FillPrice, e.cfg.Bot.TPPercent, e.cfg.Bot.SLPercent)

	now := time.Now()
	pos := models.Position{
		Symbol:           symbol,
		Quantity:         qty,
		EntryOrderID:     buy.OrderID,
		EntryPrice:       buy.FillPrice,
		PurchaseTime:     now,
		PurchaseTimeUnix: now.UnixMilli(),
		TPThreshold:      th.TP,
		SLThreshold:      th.SL,
		UpdatedAt:        now,
	}

	if err := e.placeExit(ctx, &pos, rules.TickSize); err != nil {
		// Покупка прошла, а защита не встала: позиция есть на бирже,
		// но не в леджере. Требуется ручное вмешательство.
		log.WithOrderID(buy.OrderID).WithError(err).Error("Защитный ордер не поставлен, позиция без защиты! Требуется ручное вмешательство.")
		e.report(err, map[string]string{"symbol": symbol, "stage": "exit_placement"})
		return err
	}

	if err := e.ledger.Append(pos); err != nil {
		log.WithOrderID(buy.OrderID).WithError(err).Error("Позиция не записана в леджер! Требуется ручное вмешательство.")
		e.report(err, map[string]string{"symbol": symbol, "stage": "ledger_append"})
		return err
	}

	log.WithFields(map[string]interface{}{
		"qty":          pos.Quantity,
		"entry_price":  pos.EntryPrice,
		"tp_threshold": pos.TPThreshold,
		"sl_threshold": pos.SLThreshold,
		"exit_order":   pos.ExitOrderID,
	}).Info("Позиция открыта и защищена.")

	return nil
}

// placeExit ставит защиту позиции: в обычном режиме OCO-брекет, в
// режиме откупа просадок — одинокую TP-ногу. Откуп сознательно живёт
// без стопа: нижний риск не ограничен, выходом служит только TP.
func (e *Engine) placeExit(ctx context.Context, pos *models.Position, tickSize float64) error {
	th := Thresholds{TP: pos.TPThreshold, SL: pos.SLThreshold}

	if e.cfg.Bot.BuyDipsMode {
		orderID, err := e.client.PlaceLimitExit(ctx, pos.Symbol, pos.Quantity, RoundDown(th.TP, tickSize))
		if err != nil {
			return err
		}
		pos.ExitOrderID = orderID
		pos.TPOrderID = orderID
		return nil
	}

	ids, err := e.client.PlaceBracketExit(
		ctx,
		pos.Symbol,
		pos.Quantity,
		RoundDown(th.TP, tickSize),
		RoundDown(th.SL*slTriggerOffset, tickSize),
		RoundDown(th.SL, tickSize),
	)
	if err != nil {
		return err
	}

	pos.ExitOrderID = ids.SLOrderID
	pos.TPOrderID = ids.TPOrderID
	return nil
}

// confirmRise — фильтр подтверждения: последняя свеча должна закрыться
// выше своего открытия, иначе покупка идёт прямо в разворот.
func (e *Engine) confirmRise(ctx context.Context, symbol string) (bool, error) {
	candles, err := e.client.GetCandles(ctx, symbol, candleConfirmInterval, candleConfirmCount)
	if err != nil {
		return false, models.NewFailure(models.KindMarketData, symbol, err)
	}
	if len(candles) == 0 {
		return false, models.Failf(models.KindMarketData, symbol, "Биржа не вернула свечи.")
	}

	last := candles[len(candles)-1]
	return last.Close > last.Open, nil
}
