package engine

import (
	"volatbot/internal/models"
)

// exposureLimitRatio: пока открытые позиции держат 90% бюджета и больше,
// новые покупки не делаются.
const exposureLimitRatio = 0.9

// CalcExposure — суммарная стоимость открытых позиций по ценам входа.
func CalcExposure(open []models.Position) float64 {
	var value float64
	for _, pos := range open {
		value += pos.Quantity * pos.EntryPrice
	}
	return value
}

// CalcBuyQuantity делит общий бюджет поровну между кандидатами батча и
// возвращает объём покупки, округлённый вниз до шага инструмента.
// Ожидаемые пропуски (занятый бюджет, объём ниже минимума) приходят
// как Failure соответствующего вида, не как настоящая ошибка.
func CalcBuyQuantity(symbol string, candidates int, open []models.Position, budget, minOrderAmount, price, lotSize, minQty float64) (float64, error) {
	if candidates <= 0 {
		return 0, models.Failf(models.KindMarketData, symbol, "Пустой батч кандидатов.")
	}
	if price <= 0 {
		return 0, models.Failf(models.KindMarketData, symbol, "Нет цены для расчёта объёма.")
	}

	exposure := CalcExposure(open)
	if exposure >= exposureLimitRatio*budget {
		return 0, models.Failf(models.KindInsufficientBudget, symbol, "Открытые позиции держат %.2f из бюджета %.2f, ждём продажи.", exposure, budget)
	}

	// Бюджет делится поровну; слишком маленькая доля поднимается до
	// минимальной суммы ордера. Батч сознательно недотратит бюджет,
	// вместо того чтобы ставить ордера ниже минимума.
	allocation := budget / float64(candidates)
	if allocation < minOrderAmount {
		allocation = minOrderAmount
	}

	qty := RoundDown(allocation/price, lotSize)
	if qty <= 0 || qty < minQty {
		return 0, models.Failf(models.KindSubMinimumOrder, symbol, "Объём %f ниже минимального %f.", qty, minQty)
	}

	return qty, nil
}
