package binance

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
		Filters    []struct {
			FilterType  string `json:"filterType"`
			TickSize    string `json:"tickSize"`
			StepSize    string `json:"stepSize"`
			MinQty      string `json:"minQty"`
			MinNotional string `json:"minNotional"`
		} `json:"filters"`
	} `json:"symbols"`
}

type orderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	Price               string `json:"price"`
	OrigQty             string `json:"origQty"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	Type                string `json:"type"`
	Side                string `json:"side"`
	Fills               []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

type ocoResponse struct {
	OrderListID  int64  `json:"orderListId"`
	ListStatus   string `json:"listStatusType"`
	OrderReports []struct {
		OrderID   int64  `json:"orderId"`
		Type      string `json:"type"`
		Price     string `json:"price"`
		StopPrice string `json:"stopPrice"`
		Status    string `json:"status"`
	} `json:"orderReports"`
}
