package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"trade_engine/internal/indicator"
	"trade_engine/internal/models"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/notify"
	"trade_engine/pkg/logger"
	"trade_engine/pkg/tracing"
)

// ErrDataInsufficient: the candle window is shorter than the strategy
// needs. Not a failure — the strategy is skipped for this tick.
var ErrDataInsufficient = errors.New("not enough candles in window")

// CandleSource is the read side of the candle store.
type CandleSource interface {
	Window(symbol, timeframe string, limit int) []models.Candle
}

// Execution is what the evaluator needs from the trade engine.
type Execution interface {
	Submit(ctx context.Context, intent models.TradeIntent) (*models.Trade, error)
	PositionSize(ctx context.Context, ownerID int64, maxCapitalPct, price float64) (int64, error)
}

// Evaluator runs active strategies on a fixed period. Strategies evaluate
// concurrently and independently; a per-strategy busy token serializes
// individual strategies so an overlapping tick can never re-fire a signal
// while the prior submission is still in flight.
type Evaluator struct {
	cfg     *config.Config
	reg     *Registry
	candles CandleSource
	exec    Execution
	sink    notify.Sink

	busy sync.Map // strategy id -> in-flight marker
}

func NewEvaluator(
	cfg *config.Config,
	reg *Registry,
	candles CandleSource,
	exec Execution,
	sink notify.Sink,
) *Evaluator {
	return &Evaluator{
		cfg:     cfg,
		reg:     reg,
		candles: candles,
		exec:    exec,
		sink:    sink,
	}
}

// Tick snapshots the active strategies and launches one evaluation per
// strategy. It does not wait for them: a stalled broker call must never
// delay the next scheduled tick.
func (e *Evaluator) Tick(ctx context.Context) {
	span, ctx := tracing.StartSpan(ctx, "evaluator.tick")
	defer span.Finish()

	active := e.reg.ListActive()
	launched := 0
	for _, st := range active {
		if _, inFlight := e.busy.LoadOrStore(st.ID, struct{}{}); inFlight {
			continue // previous evaluation of this strategy still running
		}
		launched++

		st := st
		go func() {
			defer e.busy.Delete(st.ID)
			if err := e.evaluateOne(ctx, st); err != nil {
				switch {
				case errors.Is(err, ErrDataInsufficient):
					// warm-up, nothing to log
				case errors.Is(err, ErrConcurrencyConflict):
					logger.Warn("[EVAL] strategy %d %q aborted: %v", st.ID, st.Name, err)
				default:
					// isolated: one strategy failing never aborts the batch
					logger.Error("[EVAL] strategy %d %q: %v", st.ID, st.Name, err)
				}
			}
		}()
	}

	log.Printf("[EVAL] tick: %d active, %d launched", len(active), launched)
}

func (e *Evaluator) evaluateOne(ctx context.Context, st models.Strategy) error {
	need := st.RequiredWindow()
	if need == 0 {
		logger.Warn("[EVAL] strategy kind %s not implemented", st.Kind)
		return nil
	}

	window := e.candles.Window(st.Symbol, st.Timeframe, e.cfg.CandleRetention)
	if len(window) < need {
		return ErrDataInsufficient
	}
	latest := window[0]

	side, reason := e.decide(st, window)
	if side == models.SideNone {
		return nil
	}

	// re-read once before acting: the strategy may have been deactivated
	// or reconfigured while the indicators were computing
	cur, ok := e.reg.Get(st.ID)
	if !ok || !cur.Active || !cur.UpdatedAt.Equal(st.UpdatedAt) {
		return ErrConcurrencyConflict
	}

	qty, err := e.exec.PositionSize(ctx, st.OwnerID, st.Risk.MaxCapitalPct, latest.Close)
	if err != nil {
		return fmt.Errorf("position size: %w", err)
	}

	intent := models.TradeIntent{
		OwnerID:    st.OwnerID,
		StrategyID: st.ID,
		Symbol:     st.Symbol,
		Side:       side,
		Quantity:   qty,
		Price:      latest.Close,
		StopLoss:   st.Risk.StopLossFor(latest.Close),
		TakeProfit: st.Risk.TakeProfitFor(latest.Close),
		Reason:     reason,
	}
	if _, err := e.exec.Submit(ctx, intent); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	e.sink.Publish(ctx, st.OwnerID, models.StrategyTriggeredEvent(st.Name, reason))
	log.Printf("[EVAL] %s strategy %q triggered %s for %s @ %.2f", st.Kind, st.Name, side, st.Symbol, latest.Close)
	return nil
}

// decide dispatches on the strategy kind. Only upward EMA crossings signal;
// RSI buy and sell branches are mutually exclusive.
func (e *Evaluator) decide(st models.Strategy, window []models.Candle) (models.Side, string) {
	switch st.Kind {
	case models.StrategyEmaCrossover:
		if indicator.IsBullishEmaCrossover(window, st.Ema.Fast, st.Ema.Slow) {
			return models.SideBuy, fmt.Sprintf("EMA Crossover signal detected for %s", st.Symbol)
		}
	case models.StrategyRsi:
		rsi := indicator.RSI(window, st.Rsi.Period)
		if indicator.IsOversold(rsi, st.Rsi.Oversold) {
			return models.SideBuy, fmt.Sprintf("Buy signal detected for %s (RSI: %.2f)", st.Symbol, rsi)
		}
		if indicator.IsOverbought(rsi, st.Rsi.Overbought) {
			return models.SideSell, fmt.Sprintf("Sell signal detected for %s (RSI: %.2f)", st.Symbol, rsi)
		}
	}
	return models.SideNone, ""
}
