package models

import "time"

type StrategyKind string

const (
	StrategyEmaCrossover StrategyKind = "ema_crossover"
	StrategyRsi          StrategyKind = "rsi"
	StrategyMacd         StrategyKind = "macd"
	StrategyCustom       StrategyKind = "custom"
)

// EmaCrossoverParams — fast/slow periods for the crossover detector.
type EmaCrossoverParams struct {
	Fast int `json:"fast"`
	Slow int `json:"slow"`
}

type RsiParams struct {
	Period     int     `json:"period"`
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
}

// RiskParams are positive percentages applied to the entry price.
type RiskParams struct {
	StopLossPct   float64 `json:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct"`
	MaxCapitalPct float64 `json:"max_capital_pct"`
}

// StopLossFor derives the stop price from an entry price.
func (r RiskParams) StopLossFor(entry float64) float64 {
	return entry * (1 - r.StopLossPct/100)
}

// TakeProfitFor derives the target price from an entry price.
func (r RiskParams) TakeProfitFor(entry float64) float64 {
	return entry * (1 + r.TakeProfitPct/100)
}

// Performance counters are mutated only by the execution engine on trade close.
type Performance struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	AveragePnL    float64 `json:"average_pnl"`
}

type Strategy struct {
	ID        int64        `json:"id"`
	OwnerID   int64        `json:"owner_id"`
	Name      string       `json:"name"`
	Kind      StrategyKind `json:"kind"`
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`

	Ema  EmaCrossoverParams `json:"ema"`
	Rsi  RsiParams          `json:"rsi"`
	Risk RiskParams         `json:"risk"`

	Active bool        `json:"active"`
	Perf   Performance `json:"perf"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequiredWindow is the minimum candle window the evaluator must fetch
// before this strategy can be evaluated.
func (s *Strategy) RequiredWindow() int {
	switch s.Kind {
	case StrategyEmaCrossover:
		n := s.Ema.Fast
		if s.Ema.Slow > n {
			n = s.Ema.Slow
		}
		return n + 1
	case StrategyRsi:
		return s.Rsi.Period + 1
	default:
		return 0
	}
}

func (p *Performance) WinRate() float64 {
	if p.TotalTrades == 0 {
		return 0
	}
	return float64(p.WinningTrades) / float64(p.TotalTrades) * 100
}
