package models

import "time"

// Side как сторона сделки: "BUY"/"SELL".
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign is +1 for Buy and -1 for Sell, used in PnL math.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

type TradeStatus string

const (
	TradePending   TradeStatus = "PENDING"
	TradeOpen      TradeStatus = "OPEN"
	TradeClosed    TradeStatus = "CLOSED"
	TradeCancelled TradeStatus = "CANCELLED"
	TradeRejected  TradeStatus = "REJECTED"
)

// Terminal statuses are immutable: no transition leads out of them.
func (s TradeStatus) Terminal() bool {
	switch s {
	case TradeClosed, TradeCancelled, TradeRejected:
		return true
	}
	return false
}

type Trade struct {
	ID         int64  `json:"id"`
	OwnerID    int64  `json:"owner_id"`
	StrategyID int64  `json:"strategy_id"` // 0 for manual trades
	Symbol     string `json:"symbol"`
	Side       Side   `json:"side"`
	Quantity   int64  `json:"quantity"`

	Price        float64 `json:"price"` // requested entry price
	CurrentPrice float64 `json:"current_price"`

	Status     TradeStatus `json:"status"`
	StopLoss   float64     `json:"stop_loss"`
	TakeProfit float64     `json:"take_profit"`

	BrokerOrderID string  `json:"broker_order_id"`
	PnL           float64 `json:"pnl"`

	CreatedAt  time.Time `json:"created_at"`
	ExecutedAt time.Time `json:"executed_at"`
	ClosedAt   time.Time `json:"closed_at"`
}

// TradeIntent — что эвалюатор отдаёт движку исполнения.
type TradeIntent struct {
	OwnerID    int64
	StrategyID int64
	Symbol     string
	Side       Side
	Quantity   int64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Reason     string
}
