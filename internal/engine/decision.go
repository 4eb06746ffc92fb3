package engine

import (
	"time"

	"volatbot/internal/exchange"
	"volatbot/internal/models"
)

type Action string

const (
	ActionHold    Action = "HOLD"
	ActionPromote Action = "PROMOTE"
	ActionClose   Action = "CLOSE"
)

type CloseReason string

const (
	ReasonTakeProfit CloseReason = "TAKE_PROFIT"
	ReasonStopLoss   CloseReason = "STOP_LOSS"
	ReasonStale      CloseReason = "STALE"
)

// Decision — результат чистой оценки позиции. Все побочные эффекты
// (отмена, продажа, запись в леджер) выполняет исполнитель по флагам.
type Decision struct {
	Action Action
	Reason CloseReason

	// ExitPrice > 0, когда цена выхода уже известна по исполненному
	// ордеру; иначе её даст рыночная продажа.
	ExitPrice float64
	// NewThresholds заполняется при ActionPromote.
	NewThresholds Thresholds
	// CancelExit — снять защитный ордер перед продажей.
	CancelExit bool
	// Sell — продать остаток рыночным ордером.
	Sell bool
	// CheckTP — уточнить цену выхода по TP-ноге брекета: SL-нога
	// отменена биржей, значит сработала парная.
	CheckTP bool
}

type DecisionParams struct {
	TPPercent float64
	SLPercent float64
	Trailing  bool
	BuyDips   bool
	MaxHold   time.Duration
}

// Evaluate — машина состояний HOLD/PROMOTE/CLOSE для одной позиции.
// exitStatus == nil означает, что статус защитного ордера неизвестен
// (ордера нет или биржа не ответила); price == 0 — цены в этом цикле
// нет. Функция чистая, без обращений к бирже и леджеру.
func Evaluate(pos models.Position, price float64, exitStatus *exchange.OrderStatus, now time.Time, params DecisionParams) Decision {
	// Застоявшаяся позиция закрывается принудительно, не дожидаясь
	// порогов: капитал освобождается под новые сигналы.
	if params.MaxHold > 0 && pos.Age(now) >= params.MaxHold {
		return Decision{
			Action:     ActionClose,
			Reason:     ReasonStale,
			CancelExit: pos.ExitOrderID != "",
			Sell:       true,
		}
	}

	if exitStatus != nil {
		switch exitStatus.State {
		case models.OrderStateFilled:
			// Цена выхода — фактическое исполнение на бирже, а не
			// локальный порог: пороги лишь триггеры.
			reason := ReasonStopLoss
			if params.BuyDips {
				reason = ReasonTakeProfit
			}
			return Decision{
				Action:    ActionClose,
				Reason:    reason,
				ExitPrice: exitStatus.FillPrice,
			}
		case models.OrderStateCanceled:
			if !params.BuyDips {
				// SL-нога брекета отменена биржей: исполнилась TP-нога.
				return Decision{
					Action:  ActionClose,
					Reason:  ReasonTakeProfit,
					CheckTP: true,
					Sell:    true,
				}
			}
		}
	}

	if price > 0 {
		if price >= pos.TPThreshold {
			if params.Trailing {
				// Достигнутый TP становится новой базой обоих порогов.
				return Decision{
					Action:        ActionPromote,
					NewThresholds: CalcThresholds(price, params.TPPercent, params.SLPercent),
				}
			}
			return Decision{
				Action:     ActionClose,
				Reason:     ReasonTakeProfit,
				CancelExit: pos.ExitOrderID != "",
				Sell:       true,
			}
		}

		// Прямое сравнение с порогом без защитного ордера — путь для
		// режимов без брекетов: продаём по локальному порогу.
		if price <= pos.SLThreshold && pos.ExitOrderID == "" {
			return Decision{
				Action: ActionClose,
				Reason: ReasonStopLoss,
				Sell:   true,
			}
		}
	}

	return Decision{Action: ActionHold}
}
