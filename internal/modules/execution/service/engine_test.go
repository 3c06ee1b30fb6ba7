package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/models"
	"trade_engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeGateway struct {
	mu sync.Mutex

	placeID  string
	placeErr error
	closeErr error
	price    float64
	priceErr error

	placeCalls int
	closeCalls int
}

func (g *fakeGateway) PlaceOrder(_ context.Context, _ *models.Trade) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.placeCalls++
	return g.placeID, g.placeErr
}

func (g *fakeGateway) CloseOrder(_ context.Context, _ *models.Trade) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeCalls++
	return g.closeErr
}

func (g *fakeGateway) GetPrice(_ context.Context, _ string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.price, g.priceErr
}

type fakeCounters struct {
	mu         sync.Mutex
	strategyID int64
	pnl        float64
	calls      int
}

func (c *fakeCounters) ApplyTradeResult(_ context.Context, strategyID int64, pnl float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategyID = strategyID
	c.pnl = pnl
	c.calls++
	return nil
}

type recordSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *recordSink) Publish(_ context.Context, _ int64, e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordSink) byKind(kind models.EventKind) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Event{}
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type engineFixture struct {
	engine   *Engine
	broker   *fakeGateway
	sim      *fakeGateway
	trades   *MemoryTrades
	accounts *MemoryAccounts
	counters *fakeCounters
	sessions *SessionRegistry
	sink     *recordSink
}

func newFixture(broker *fakeGateway, sim *fakeGateway) *engineFixture {
	f := &engineFixture{
		broker:   broker,
		sim:      sim,
		trades:   NewMemoryTrades(),
		accounts: NewMemoryAccounts(250000),
		counters: &fakeCounters{},
		sessions: NewSessionRegistry(),
		sink:     &recordSink{},
	}
	var gw Gateway
	if broker != nil {
		gw = broker
	}
	f.engine = NewEngine(gw, sim, f.trades, f.accounts, f.counters, f.sessions, f.sink, time.Second)
	return f
}

func buyIntent() models.TradeIntent {
	return models.TradeIntent{
		OwnerID:    1,
		StrategyID: 3,
		Symbol:     "NIFTY",
		Side:       models.SideBuy,
		Quantity:   10,
		Price:      100,
		StopLoss:   98,
		TakeProfit: 104,
		Reason:     "test entry",
	}
}

func TestSubmitOpensTrade(t *testing.T) {
	f := newFixture(nil, &fakeGateway{placeID: "AO1"})

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)

	assert.Equal(t, models.TradeOpen, trade.Status)
	assert.Equal(t, "AO1", trade.BrokerOrderID)
	assert.False(t, trade.ExecutedAt.IsZero())
	assert.Equal(t, 100.0, trade.CurrentPrice)

	saved, err := f.trades.FindByID(context.Background(), trade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeOpen, saved.Status)

	require.Len(t, f.sink.byKind(models.EventTradeExecuted), 1)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(nil, &fakeGateway{placeID: "AO1"})

	bad := buyIntent()
	bad.Quantity = 0
	_, err := f.engine.Submit(context.Background(), bad)
	assert.ErrorIs(t, err, ErrValidation)

	bad = buyIntent()
	bad.Price = 0
	_, err = f.engine.Submit(context.Background(), bad)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitRejectsOnSimFailure(t *testing.T) {
	f := newFixture(nil, &fakeGateway{placeErr: errors.New("sim down")})

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err) // rejection is an outcome, not an error

	assert.Equal(t, models.TradeRejected, trade.Status)
	assert.Empty(t, trade.BrokerOrderID)
	assert.Empty(t, f.sink.byKind(models.EventTradeExecuted))
}

func TestSubmitFallsBackToSimulation(t *testing.T) {
	broker := &fakeGateway{placeErr: errors.New("auth expired")}
	sim := &fakeGateway{placeID: "AO9"}
	f := newFixture(broker, sim)

	f.sessions.Session(1) // pre-authenticated session for the owner
	require.Equal(t, 1, f.sessions.Len())

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)

	assert.Equal(t, models.TradeOpen, trade.Status)
	assert.Equal(t, "AO9", trade.BrokerOrderID)
	assert.Equal(t, 1, broker.placeCalls)
	assert.Equal(t, 1, sim.placeCalls)

	// the failing session was evicted and a risk alert went out
	assert.Equal(t, 0, f.sessions.Len())
	require.Len(t, f.sink.byKind(models.EventRiskAlert), 1)
}

func TestCloseRealizesPnLForBuy(t *testing.T) {
	sim := &fakeGateway{placeID: "AO1", price: 110}
	f := newFixture(nil, sim)

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)

	closed, err := f.engine.Close(context.Background(), trade.ID)
	require.NoError(t, err)

	// (110 - 100) * 10 = 100
	assert.Equal(t, models.TradeClosed, closed.Status)
	assert.InDelta(t, 100.0, closed.PnL, 1e-9)
	assert.False(t, closed.ClosedAt.IsZero())

	acct, err := f.accounts.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 250100.0, acct.Balance, 1e-9)
	assert.InDelta(t, 100.0, acct.TotalPnL, 1e-9)

	assert.Equal(t, 1, f.counters.calls)
	assert.Equal(t, int64(3), f.counters.strategyID)
	assert.InDelta(t, 100.0, f.counters.pnl, 1e-9)
}

func TestCloseRealizesPnLForSell(t *testing.T) {
	sim := &fakeGateway{placeID: "AO1", price: 90}
	f := newFixture(nil, sim)

	intent := buyIntent()
	intent.Side = models.SideSell
	trade, err := f.engine.Submit(context.Background(), intent)
	require.NoError(t, err)

	closed, err := f.engine.Close(context.Background(), trade.ID)
	require.NoError(t, err)

	// short: (90 - 100) * 10 * -1 = 100
	assert.InDelta(t, 100.0, closed.PnL, 1e-9)
}

func TestCloseKeepsExitPriceWhenQuoteUnavailable(t *testing.T) {
	sim := &fakeGateway{placeID: "AO1", priceErr: errors.New("no quote")}
	f := newFixture(nil, sim)

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)

	closed, err := f.engine.Close(context.Background(), trade.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, closed.PnL, 1e-9) // exit at entry price
}

func TestCloseFailureKeepsTradeOpen(t *testing.T) {
	sim := &fakeGateway{placeID: "AO1", price: 110, closeErr: errors.New("broker down")}
	f := newFixture(nil, sim)

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)

	_, err = f.engine.Close(context.Background(), trade.ID)
	require.Error(t, err)

	saved, err := f.trades.FindByID(context.Background(), trade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeOpen, saved.Status)

	// a later retry succeeds
	sim.mu.Lock()
	sim.closeErr = nil
	sim.mu.Unlock()

	closed, err := f.engine.Close(context.Background(), trade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeClosed, closed.Status)
}

func TestCloseRejectsNonOpenTrades(t *testing.T) {
	sim := &fakeGateway{placeErr: errors.New("down")}
	f := newFixture(nil, sim)

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)
	require.Equal(t, models.TradeRejected, trade.Status)

	_, err = f.engine.Close(context.Background(), trade.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCloseTwiceFails(t *testing.T) {
	sim := &fakeGateway{placeID: "AO1", price: 105}
	f := newFixture(nil, sim)

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)

	_, err = f.engine.Close(context.Background(), trade.ID)
	require.NoError(t, err)

	_, err = f.engine.Close(context.Background(), trade.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCloseUnknownTrade(t *testing.T) {
	f := newFixture(nil, &fakeGateway{placeID: "AO1"})
	_, err := f.engine.Close(context.Background(), 404)
	assert.ErrorIs(t, err, ErrTradeNotFound)
}

func TestCloseRoutesSimulatedFillsToSim(t *testing.T) {
	broker := &fakeGateway{placeErr: errors.New("down")}
	sim := &fakeGateway{placeID: "AO7", price: 101}
	f := newFixture(broker, sim)

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)
	require.Equal(t, "AO7", trade.BrokerOrderID)

	_, err = f.engine.Close(context.Background(), trade.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, sim.closeCalls)
	assert.Equal(t, 0, broker.closeCalls)
}

func TestCloseRoutesRealFillsToBroker(t *testing.T) {
	broker := &fakeGateway{placeID: "BRK-1", price: 101}
	sim := &fakeGateway{placeID: "AO7"}
	f := newFixture(broker, sim)

	trade, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)
	require.Equal(t, "BRK-1", trade.BrokerOrderID)

	_, err = f.engine.Close(context.Background(), trade.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, broker.closeCalls)
	assert.Equal(t, 0, sim.closeCalls)
}

func TestPositionSize(t *testing.T) {
	f := newFixture(nil, &fakeGateway{placeID: "AO1"})

	// 250000 * 10% / 500 = 50
	qty, err := f.engine.PositionSize(context.Background(), 1, 10, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(50), qty)

	// floors the fraction
	qty, err = f.engine.PositionSize(context.Background(), 1, 10, 333)
	require.NoError(t, err)
	assert.Equal(t, int64(75), qty)

	_, err = f.engine.PositionSize(context.Background(), 1, 10, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpenTrades(t *testing.T) {
	f := newFixture(nil, &fakeGateway{placeID: "AO1", price: 105})

	first, err := f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)
	_, err = f.engine.Submit(context.Background(), buyIntent())
	require.NoError(t, err)

	open, err := f.engine.OpenTrades(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	_, err = f.engine.Close(context.Background(), first.ID)
	require.NoError(t, err)

	open, err = f.engine.OpenTrades(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
