package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskParamsDerivedPrices(t *testing.T) {
	r := RiskParams{StopLossPct: 2, TakeProfitPct: 4}

	assert.InDelta(t, 98.0, r.StopLossFor(100), 1e-9)
	assert.InDelta(t, 104.0, r.TakeProfitFor(100), 1e-9)
}

func TestRequiredWindow(t *testing.T) {
	ema := Strategy{Kind: StrategyEmaCrossover, Ema: EmaCrossoverParams{Fast: 20, Slow: 50}}
	assert.Equal(t, 51, ema.RequiredWindow())

	rsi := Strategy{Kind: StrategyRsi, Rsi: RsiParams{Period: 14}}
	assert.Equal(t, 15, rsi.RequiredWindow())

	macd := Strategy{Kind: StrategyMacd}
	assert.Equal(t, 0, macd.RequiredWindow())
}

func TestWinRate(t *testing.T) {
	p := Performance{}
	assert.Equal(t, 0.0, p.WinRate())

	p = Performance{TotalTrades: 4, WinningTrades: 3}
	assert.InDelta(t, 75.0, p.WinRate(), 1e-9)
}

func TestSideSign(t *testing.T) {
	assert.Equal(t, 1.0, SideBuy.Sign())
	assert.Equal(t, -1.0, SideSell.Sign())
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, TradePending.Terminal())
	assert.False(t, TradeOpen.Terminal())
	assert.True(t, TradeClosed.Terminal())
	assert.True(t, TradeCancelled.Terminal())
	assert.True(t, TradeRejected.Terminal())
}
