package engine

import "math"

func PercentOf(x, percentage float64) float64 {
	return (percentage * x) / 100
}

func RoundDown(value, step float64) float64 {
	if step == 0 {
		return value
	}
	return math.Floor((value/step)+1e-9) * step
}

// Thresholds — абсолютные цены выхода, производные от цены фактического
// исполнения входа.
type Thresholds struct {
	TP float64
	SL float64
}

func CalcThresholds(basePrice, tpPercent, slPercent float64) Thresholds {
	return Thresholds{
		TP: basePrice + PercentOf(basePrice, tpPercent),
		SL: basePrice - PercentOf(basePrice, slPercent),
	}
}

func ProfitPercent(entryPrice, exitPrice float64) float64 {
	if entryPrice == 0 {
		return 0
	}
	return (exitPrice - entryPrice) / entryPrice * 100
}

// slTriggerOffset сдвигает триггер стопа чуть выше лимитной цены: по
// семантике стоп-ордеров биржи триггер для продажи должен стоять выше
// лимита, иначе стоп может не успеть исполниться.
const slTriggerOffset = 1.001
