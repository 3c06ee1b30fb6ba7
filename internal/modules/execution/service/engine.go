package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"trade_engine/internal/models"
	"trade_engine/internal/notify"
	"trade_engine/pkg/logger"
	"trade_engine/pkg/tracing"
)

var (
	ErrValidation = errors.New("invalid trade intent")

	// ErrInvalidState: the requested transition does not exist in the
	// trade lifecycle (e.g. closing a trade that is not open).
	ErrInvalidState = errors.New("invalid trade state")
)

// StrategyCounters receives the realized result of a strategy trade.
type StrategyCounters interface {
	ApplyTradeResult(ctx context.Context, strategyID int64, pnl float64) error
}

// Engine owns the trade state machine:
//
//	Pending -> Open | Rejected
//	Open    -> Closed
//	Pending -> Cancelled (reserved, no producer yet)
//
// Terminal states are never left. A broker placement failure falls back to
// simulation before the trade is rejected; a close failure keeps the trade
// open for a later retry.
type Engine struct {
	broker   Gateway // real broker, nil when unconfigured
	sim      Gateway // simulated fallback, always present
	trades   TradeStore
	accounts AccountStore
	counters StrategyCounters
	sessions *SessionRegistry
	sink     notify.Sink

	brokerTimeout time.Duration

	now func() time.Time
}

func NewEngine(
	broker Gateway,
	sim Gateway,
	trades TradeStore,
	accounts AccountStore,
	counters StrategyCounters,
	sessions *SessionRegistry,
	sink notify.Sink,
	brokerTimeout time.Duration,
) *Engine {
	return &Engine{
		broker:        broker,
		sim:           sim,
		trades:        trades,
		accounts:      accounts,
		counters:      counters,
		sessions:      sessions,
		sink:          sink,
		brokerTimeout: brokerTimeout,
		now:           time.Now,
	}
}

// Submit validates the intent, creates a Pending trade and drives it to
// Open or Rejected. The final status is persisted together with the
// outcome: no trade is ever left Pending after Submit returns.
func (e *Engine) Submit(ctx context.Context, intent models.TradeIntent) (*models.Trade, error) {
	span, ctx := tracing.StartSpan(ctx, "execution.submit")
	defer span.Finish()

	if intent.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %d", ErrValidation, intent.Quantity)
	}
	if intent.Price <= 0 {
		return nil, fmt.Errorf("%w: price %.4f", ErrValidation, intent.Price)
	}

	trade := &models.Trade{
		OwnerID:      intent.OwnerID,
		StrategyID:   intent.StrategyID,
		Symbol:       intent.Symbol,
		Side:         intent.Side,
		Quantity:     intent.Quantity,
		Price:        intent.Price,
		CurrentPrice: intent.Price,
		StopLoss:     intent.StopLoss,
		TakeProfit:   intent.TakeProfit,
		Status:       models.TradePending,
		CreatedAt:    e.now(),
	}
	if err := e.trades.Save(ctx, trade); err != nil {
		return nil, fmt.Errorf("%w: save pending: %v", ErrStore, err)
	}

	bctx, cancel := context.WithTimeout(ctx, e.brokerTimeout)
	defer cancel()

	orderID, err := e.place(bctx, trade)
	if err != nil {
		trade.Status = models.TradeRejected
		logger.Warn("[EXEC] trade %d rejected: %v", trade.ID, err)
	} else {
		trade.Status = models.TradeOpen
		trade.BrokerOrderID = orderID
		trade.ExecutedAt = e.now()
	}

	if err := e.trades.Save(ctx, trade); err != nil {
		return nil, fmt.Errorf("%w: save outcome: %v", ErrStore, err)
	}

	if trade.Status == models.TradeOpen {
		e.sink.Publish(ctx, trade.OwnerID, models.TradeExecutedEvent(
			fmt.Sprintf("%s order for %s executed at %.2f", trade.Side, trade.Symbol, trade.Price)))
		logger.Info("[EXEC] trade %d open, broker order %s", trade.ID, trade.BrokerOrderID)
	}
	return trade, nil
}

// place tries the real broker first, then the simulated fallback.
func (e *Engine) place(ctx context.Context, trade *models.Trade) (string, error) {
	if e.broker != nil {
		orderID, err := e.broker.PlaceOrder(ctx, trade)
		if err == nil {
			return orderID, nil
		}
		// session can no longer be trusted after an auth/network failure
		e.sessions.Evict(trade.OwnerID)
		e.sink.Publish(ctx, trade.OwnerID, models.RiskAlertEvent(
			fmt.Sprintf("Broker unavailable for %s, falling back to simulated execution", trade.Symbol)))
		logger.Warn("[EXEC] broker placement failed, simulating: %v", err)
	}
	return e.sim.PlaceOrder(ctx, trade)
}

// gatewayFor routes trades back to the gateway that filled them: simulated
// order ids carry the AO prefix.
func (e *Engine) gatewayFor(trade *models.Trade) Gateway {
	if e.broker != nil && !strings.HasPrefix(trade.BrokerOrderID, "AO") {
		return e.broker
	}
	return e.sim
}

// Close transitions an Open trade to Closed, realizes PnL and settles it
// into the owning account and strategy counters. On broker failure the
// trade stays Open and the error surfaces — the caller re-invokes Close.
func (e *Engine) Close(ctx context.Context, tradeID int64) (*models.Trade, error) {
	span, ctx := tracing.StartSpan(ctx, "execution.close")
	defer span.Finish()

	trade, err := e.trades.FindByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Status != models.TradeOpen {
		return nil, fmt.Errorf("%w: trade %d is %s", ErrInvalidState, trade.ID, trade.Status)
	}

	bctx, cancel := context.WithTimeout(ctx, e.brokerTimeout)
	defer cancel()

	gw := e.gatewayFor(trade)

	// best-effort refresh of the exit price; the последняя известная цена
	// остаётся, если брокер не ответил
	if px, err := gw.GetPrice(bctx, trade.Symbol); err == nil && px > 0 {
		trade.CurrentPrice = px
	}

	if err := gw.CloseOrder(bctx, trade); err != nil {
		return nil, fmt.Errorf("close order %d: %w", trade.ID, err)
	}

	pnl := (trade.CurrentPrice - trade.Price) * float64(trade.Quantity) * trade.Side.Sign()
	trade.PnL = pnl
	trade.Status = models.TradeClosed
	trade.ClosedAt = e.now()

	if err := e.trades.Save(ctx, trade); err != nil {
		return nil, fmt.Errorf("%w: save close: %v", ErrStore, err)
	}

	if err := e.accounts.ApplyPnL(ctx, trade.OwnerID, pnl); err != nil {
		logger.Error("[EXEC] account settle for trade %d: %v", trade.ID, err)
	}
	if trade.StrategyID != 0 && e.counters != nil {
		if err := e.counters.ApplyTradeResult(ctx, trade.StrategyID, pnl); err != nil {
			logger.Error("[EXEC] strategy counters for trade %d: %v", trade.ID, err)
		}
	}

	e.sink.Publish(ctx, trade.OwnerID, models.TradeExecutedEvent(
		fmt.Sprintf("Position closed for %s with P&L: %.2f", trade.Symbol, pnl)))
	logger.Info("[EXEC] trade %d closed, pnl=%.2f", trade.ID, pnl)
	return trade, nil
}

// PositionSize = floor(balance * maxCapitalPct / 100 / price).
func (e *Engine) PositionSize(ctx context.Context, ownerID int64, maxCapitalPct, price float64) (int64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("%w: price %.4f", ErrValidation, price)
	}
	acct, err := e.accounts.Get(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return int64(math.Floor(acct.Balance * maxCapitalPct / 100 / price)), nil
}

// OpenTrades lists the owner's open positions.
func (e *Engine) OpenTrades(ctx context.Context, ownerID int64) ([]*models.Trade, error) {
	return e.trades.FindOpenFor(ctx, ownerID)
}
