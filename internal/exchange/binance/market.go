package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"volatbot/internal/exchange"
	"volatbot/internal/models"
)

func (c *Client) GetInstrumentRules(ctx context.Context, symbol string) (exchange.InstrumentRules, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp exchangeInfo

	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/exchangeInfo", params, false, &resp); err != nil {
		return exchange.InstrumentRules{}, err
	}

	if len(resp.Symbols) == 0 {
		return exchange.InstrumentRules{}, fmt.Errorf("Торговая пара не найдена: %s", symbol)
	}

	info := resp.Symbols[0]
	rules := exchange.InstrumentRules{
		BaseCoin:  info.BaseAsset,
		QuoteCoin: info.QuoteAsset,
	}

	for _, f := range info.Filters {
		switch f.FilterType {
		case "PRICE_FILTER":
			tick, err := parseFloatOrZero(f.TickSize)
			if err != nil {
				return exchange.InstrumentRules{}, fmt.Errorf("Некорректное значение tickSize=%q: %w", f.TickSize, err)
			}
			rules.TickSize = tick
		case "LOT_SIZE":
			lot, err := parseFloatOrZero(f.StepSize)
			if err != nil {
				return exchange.InstrumentRules{}, fmt.Errorf("Некорректное значение stepSize=%q: %w", f.StepSize, err)
			}
			rules.LotSize = lot
			minQty, err := parseFloatOrZero(f.MinQty)
			if err != nil {
				return exchange.InstrumentRules{}, fmt.Errorf("Некорректное значение minQty=%q: %w", f.MinQty, err)
			}
			rules.MinQty = minQty
		case "NOTIONAL", "MIN_NOTIONAL":
			minNotional, err := parseFloatOrZero(f.MinNotional)
			if err != nil {
				return exchange.InstrumentRules{}, fmt.Errorf("Некорректное значение minNotional=%q: %w", f.MinNotional, err)
			}
			rules.MinNotional = minNotional
		}
	}

	if rules.LotSize == 0 {
		return exchange.InstrumentRules{}, fmt.Errorf("Не удалось определить lot size для торговой пары: %s", symbol)
	}

	return rules, nil
}

func (c *Client) GetPrices(ctx context.Context) (map[string]float64, error) {
	var resp []tickerPrice

	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/ticker/price", nil, false, &resp); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(resp))
	for _, item := range resp {
		price, err := strconv.ParseFloat(item.Price, 64)
		if err != nil {
			continue
		}
		prices[item.Symbol] = price
	}
	return prices, nil
}

func (c *Client) GetTickers(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	encoded, err := json.Marshal(symbols)
	if err != nil {
		return nil, fmt.Errorf("Не удалось подготовить список пар: %w", err)
	}

	params := url.Values{}
	params.Set("symbols", string(encoded))

	var resp []tickerPrice

	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/ticker/price", params, false, &resp); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(resp))
	for _, item := range resp {
		price, err := strconv.ParseFloat(item.Price, 64)
		if err != nil {
			continue
		}
		prices[item.Symbol] = price
	}
	return prices, nil
}

func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var resp [][]any

	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/klines", params, false, &resp); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(resp))
	for _, row := range resp {
		if len(row) < 7 {
			continue
		}
		candle, err := parseCandleRow(row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseCandleRow(row []any) (models.Candle, error) {
	openTime, ok := row[0].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("Некорректное время открытия свечи: %v", row[0])
	}
	closeTime, ok := row[6].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("Некорректное время закрытия свечи: %v", row[6])
	}

	values := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		text, ok := row[i].(string)
		if !ok {
			return models.Candle{}, fmt.Errorf("Некорректное поле свечи: %v", row[i])
		}
		val, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("Некорректное поле свечи %q: %w", text, err)
		}
		values[i-1] = val
	}

	return models.Candle{
		OpenTime:  time.UnixMilli(int64(openTime)),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		CloseTime: time.UnixMilli(int64(closeTime)),
	}, nil
}

func parseFloatOrZero(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}
