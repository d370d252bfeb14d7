package protocol

import "github.com/shopspring/decimal"

// The payload types below describe what the dashboard server currently sends.
// The stream client never decodes them itself; they exist for consumers.

// PriceUpdate is the body of a price_update frame.
type PriceUpdate struct {
	Type          MessageType     `json:"type"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Volume        decimal.Decimal `json:"volume"`
}

// TradeUpdate is the body of a trade_update frame.
type TradeUpdate struct {
	Type MessageType `json:"type"`
	Data Trade       `json:"data"`
}

// Trade describes an executed trade.
type Trade struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"` // BUY or SELL
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// AlertTriggered is the body of an alert_triggered frame.
type AlertTriggered struct {
	Type MessageType `json:"type"`
	Data Alert       `json:"data"`
}

// Alert is a user defined price alert.
type Alert struct {
	ID          string          `json:"$id,omitempty"`
	Symbol      string          `json:"symbol"`
	Condition   string          `json:"condition"` // above or below
	TargetPrice decimal.Decimal `json:"targetPrice"`
	Message     string          `json:"message,omitempty"`
}

// PerformanceUpdate is the body of a performance_update frame.
type PerformanceUpdate struct {
	Type MessageType `json:"type"`
	Data Performance `json:"data"`
}

// Performance summarizes realized trading results.
type Performance struct {
	TotalProfitLoss decimal.Decimal `json:"total_profit_loss"`
	WinRate         decimal.Decimal `json:"win_rate"`
	AvgProfit       decimal.Decimal `json:"avg_profit"`
	AvgLoss         decimal.Decimal `json:"avg_loss"`
	TotalWins       int             `json:"total_wins"`
	TotalLosses     int             `json:"total_losses"`
}
