package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"volatbot/internal/exchange"
	"volatbot/internal/models"
)

func (c *Client) MarketBuy(ctx context.Context, symbol string, qty float64) (exchange.OrderResult, error) {
	return c.marketOrder(ctx, symbol, models.OrderSideBuy, qty)
}

func (c *Client) MarketSell(ctx context.Context, symbol string, qty float64) (exchange.OrderResult, error) {
	return c.marketOrder(ctx, symbol, models.OrderSideSell, qty)
}

func (c *Client) marketOrder(ctx context.Context, symbol string, side models.OrderSide, qty float64) (exchange.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", string(models.OrderTypeMarket))
	params.Set("quantity", formatQty(qty))
	params.Set("newClientOrderId", newClientOrderID())
	params.Set("newOrderRespType", "FULL")

	var resp orderResponse

	if err := c.doRequest(ctx, http.MethodPost, "/api/v3/order", params, true, &resp); err != nil {
		return exchange.OrderResult{}, withSymbol(err, symbol)
	}

	fillPrice, filledQty := avgFillPrice(resp)
	if fillPrice == 0 {
		return exchange.OrderResult{}, models.Failf(models.KindVenueRejected, symbol, "Рыночный ордер без исполнений: id=%d status=%s", resp.OrderID, resp.Status)
	}

	return exchange.OrderResult{
		OrderID:   strconv.FormatInt(resp.OrderID, 10),
		FillPrice: fillPrice,
		FilledQty: filledQty,
	}, nil
}

// PlaceBracketExit ставит OCO-пару: TP лимитная нога и SL stop-limit
// нога. Триггер стопа чуть выше лимитной цены, чтобы стоп гарантированно
// сработал раньше своего лимита.
func (c *Client) PlaceBracketExit(ctx context.Context, symbol string, qty, tpPrice, slTrigger, slLimit float64) (exchange.BracketIDs, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(models.OrderSideSell))
	params.Set("quantity", formatQty(qty))
	params.Set("price", formatPrice(tpPrice))
	params.Set("stopPrice", formatPrice(slTrigger))
	params.Set("stopLimitPrice", formatPrice(slLimit))
	params.Set("stopLimitTimeInForce", "GTC")
	params.Set("listClientOrderId", newClientOrderID())

	var resp ocoResponse

	if err := c.doRequest(ctx, http.MethodPost, "/api/v3/order/oco", params, true, &resp); err != nil {
		return exchange.BracketIDs{}, withSymbol(err, symbol)
	}

	var ids exchange.BracketIDs
	for _, report := range resp.OrderReports {
		switch report.Type {
		case string(models.OrderTypeStopLossLimit):
			ids.SLOrderID = strconv.FormatInt(report.OrderID, 10)
		case string(models.OrderTypeLimitMaker):
			ids.TPOrderID = strconv.FormatInt(report.OrderID, 10)
		}
	}

	if ids.SLOrderID == "" || ids.TPOrderID == "" {
		return exchange.BracketIDs{}, models.Failf(models.KindVenueRejected, symbol, "OCO без обеих ног: list=%d reports=%d", resp.OrderListID, len(resp.OrderReports))
	}

	return ids, nil
}

func (c *Client) PlaceLimitExit(ctx context.Context, symbol string, qty, price float64) (string, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(models.OrderSideSell))
	params.Set("type", string(models.OrderTypeLimit))
	params.Set("timeInForce", "GTC")
	params.Set("quantity", formatQty(qty))
	params.Set("price", formatPrice(price))
	params.Set("newClientOrderId", newClientOrderID())

	var resp orderResponse

	if err := c.doRequest(ctx, http.MethodPost, "/api/v3/order", params, true, &resp); err != nil {
		return "", withSymbol(err, symbol)
	}

	return strconv.FormatInt(resp.OrderID, 10), nil
}

func (c *Client) GetOrderStatus(ctx context.Context, symbol, orderID string) (exchange.OrderStatus, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	var resp orderResponse

	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/order", params, true, &resp); err != nil {
		return exchange.OrderStatus{}, withSymbol(err, symbol)
	}

	status := exchange.OrderStatus{State: mapOrderState(resp.Status)}

	executed, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	quote, _ := strconv.ParseFloat(resp.CummulativeQuoteQty, 64)
	if executed > 0 && quote > 0 {
		status.FillPrice = quote / executed
	} else {
		status.FillPrice, _ = strconv.ParseFloat(resp.Price, 64)
	}

	return status, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	if err := c.doRequest(ctx, http.MethodDelete, "/api/v3/order", params, true, nil); err != nil {
		err = withSymbol(err, symbol)
		if isOrderGone(err) {
			return fmt.Errorf("%w: %w", exchange.ErrOrderGone, err)
		}
		return err
	}
	return nil
}

// isOrderGone распознаёт ответ биржи "ордер не найден" по коду -2011.
func isOrderGone(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "code=-2011") || strings.Contains(msg, "Unknown order sent")
}

func mapOrderState(status string) models.OrderState {
	switch status {
	case "FILLED":
		return models.OrderStateFilled
	case "CANCELED", "EXPIRED", "REJECTED", "EXPIRED_IN_MATCH":
		return models.OrderStateCanceled
	default:
		return models.OrderStateOpen
	}
}

func avgFillPrice(resp orderResponse) (float64, float64) {
	var totalQty, totalCost float64
	for _, fill := range resp.Fills {
		price, _ := strconv.ParseFloat(fill.Price, 64)
		qty, _ := strconv.ParseFloat(fill.Qty, 64)
		totalQty += qty
		totalCost += price * qty
	}
	if totalQty > 0 {
		return totalCost / totalQty, totalQty
	}

	executed, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	quote, _ := strconv.ParseFloat(resp.CummulativeQuoteQty, 64)
	if executed > 0 && quote > 0 {
		return quote / executed, executed
	}
	return 0, 0
}

func withSymbol(err error, symbol string) error {
	var f *models.Failure
	if errors.As(err, &f) && f.Symbol == "" {
		f.Symbol = symbol
	}
	return err
}

func newClientOrderID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("vb-%s", raw[:20])
}
