package engine

import (
	"context"
	"errors"
	"time"

	"volatbot/internal/exchange"
	"volatbot/internal/logger"
	"volatbot/internal/models"
)

// runMonitorCycle — цикл сопровождения: цены всех позиций собираются
// один раз, дальше каждая позиция оценивается и закрывается независимо.
// Ошибка по одному символу не трогает остальные.
func (e *Engine) runMonitorCycle(ctx context.Context) {
	log := e.logCycle("monitor")

	open, err := e.ledger.Open()
	if err != nil {
		log.WithError(err).Error("Не удалось прочитать открытые позиции, цикл пропущен.")
		e.report(err, nil)
		return
	}
	if len(open) == 0 {
		return
	}

	symbols := make([]string, 0, len(open))
	for _, pos := range open {
		symbols = append(symbols, pos.Symbol)
	}
	prices := e.latestPrices(ctx, symbols)

	for _, pos := range open {
		if err := e.monitorPosition(ctx, pos, prices[pos.Symbol]); err != nil {
			if models.HasKind(err, models.KindLedgerConflict) {
				// Параллельный цикл уже обработал позицию.
				log.WithSymbol(pos.Symbol).WithError(err).Warn("Позиция изменена параллельным циклом, пропуск.")
				continue
			}
			log.WithSymbol(pos.Symbol).WithError(err).Error("Ошибка сопровождения позиции.")
			e.report(err, map[string]string{"symbol": pos.Symbol})
		}
	}
}

// monitorPosition оценивает одну позицию и исполняет вердикт. Сама
// оценка чистая, все обращения к бирже и леджеру живут здесь.
func (e *Engine) monitorPosition(ctx context.Context, pos models.Position, price float64) error {
	log := e.logCycle("monitor").WithSymbol(pos.Symbol)

	var exitStatus *exchange.OrderStatus
	if pos.ExitOrderID != "" {
		status, err := e.client.GetOrderStatus(ctx, pos.Symbol, pos.ExitOrderID)
		if err != nil {
			// Статус недоступен: оцениваем только по цене, ордер
			// проверим в следующем цикле.
			log.WithOrderID(pos.ExitOrderID).WithError(err).Warn("Статус защитного ордера недоступен.")
		} else {
			exitStatus = &status
		}
	}

	decision := Evaluate(pos, price, exitStatus, time.Now(), e.decisionParams())

	switch decision.Action {
	case ActionHold:
		// В режиме откупа отменённая TP-нога не означает выхода:
		// биржа могла снять ордер сама, позиция остаётся без защиты
		// и ордер ставится заново следующим циклом.
		if e.cfg.Bot.BuyDipsMode && exitStatus != nil && exitStatus.State == models.OrderStateCanceled && pos.ExitOrderID != "" {
			pos.ExitOrderID = ""
			pos.TPOrderID = ""
			pos.UpdatedAt = time.Now()
			if err := e.ledger.Replace(pos); err != nil {
				return err
			}
			log.Warn("Защитный ордер отменён биржей, позиция осталась без выхода.")
		}
		return nil

	case ActionPromote:
		pos.TPThreshold = decision.NewThresholds.TP
		pos.SLThreshold = decision.NewThresholds.SL
		pos.UpdatedAt = time.Now()
		if err := e.ledger.Replace(pos); err != nil {
			return err
		}
		log.WithFields(map[string]interface{}{
			"price":        price,
			"tp_threshold": pos.TPThreshold,
			"sl_threshold": pos.SLThreshold,
		}).Info("Цена достигла TP, пороги подняты.")
		return nil

	case ActionClose:
		return e.closePosition(ctx, pos, decision, log)
	}

	return nil
}

// closePosition доводит вердикт CLOSE до записи в истории: снимает
// защиту, продаёт остаток и переносит позицию в закрытые.
func (e *Engine) closePosition(ctx context.Context, pos models.Position, decision Decision, log *logger.Entry) error {
	exitPrice := decision.ExitPrice

	if decision.CancelExit && pos.ExitOrderID != "" {
		if err := e.client.CancelOrder(ctx, pos.Symbol, pos.ExitOrderID); err != nil {
			if !errors.Is(err, exchange.ErrOrderGone) {
				return err
			}
			// Ордера уже нет: исполнен или снят. Продолжаем закрытие.
			log.WithOrderID(pos.ExitOrderID).Info("Защитный ордер уже отсутствует на бирже.")
		}
	}

	// SL-нога отменена биржей: выход случился через TP-ногу, её цена
	// исполнения и есть цена выхода.
	if decision.CheckTP && pos.TPOrderID != "" {
		status, err := e.client.GetOrderStatus(ctx, pos.Symbol, pos.TPOrderID)
		if err != nil {
			log.WithOrderID(pos.TPOrderID).WithError(err).Warn("Не удалось уточнить исполнение TP-ноги.")
		} else if status.State == models.OrderStateFilled {
			exitPrice = status.FillPrice
			decision.Sell = false
		}
	}

	if decision.Sell {
		rules, err := e.getRules(ctx, pos.Symbol)
		if err != nil {
			return err
		}

		// Продаётся настроенная доля позиции: часть может быть съедена
		// комиссией в базовой монете, и полный объём биржа отклонит.
		sellQty := RoundDown(PercentOf(pos.Quantity, e.cfg.Bot.SellRatio), rules.LotSize)
		if sellQty <= 0 {
			return models.Failf(models.KindSubMinimumOrder, pos.Symbol, "Объём продажи %f после округления равен нулю.", sellQty)
		}

		sell, err := e.client.MarketSell(ctx, pos.Symbol, sellQty)
		if err != nil {
			return err
		}
		exitPrice = sell.FillPrice
		log.WithOrderID(sell.OrderID).WithFields(map[string]interface{}{
			"qty":        sellQty,
			"fill_price": sell.FillPrice,
		}).Info("Рыночная продажа исполнена.")
	}

	closed := models.ClosedPosition{
		Position:      pos,
		ExitPrice:     exitPrice,
		ExitTime:      time.Now(),
		ProfitPercent: ProfitPercent(pos.EntryPrice, exitPrice),
		CloseReason:   string(decision.Reason),
	}

	if err := e.ledger.Close(closed); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"reason":      closed.CloseReason,
		"entry_price": pos.EntryPrice,
		"exit_price":  exitPrice,
		"profit_pct":  closed.ProfitPercent,
	}).Info("Позиция закрыта.")

	return nil
}
