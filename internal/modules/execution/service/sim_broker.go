package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trade_engine/internal/models"
)

// PriceSource feeds the simulator with the last committed candle.
type PriceSource interface {
	Latest(symbol, timeframe string) (models.Candle, bool)
}

// SimBroker is the deterministic fallback: configurable fill probability
// and latency, seedable RNG. Order ids carry the AO prefix so the engine
// can route the eventual close back here.
type SimBroker struct {
	successProb float64
	latency     time.Duration
	timeframe   string
	prices      PriceSource

	mu  sync.Mutex
	rng *rand.Rand

	now func() time.Time
}

func NewSimBroker(successProb float64, latency time.Duration, timeframe string, prices PriceSource, rng *rand.Rand) *SimBroker {
	return &SimBroker{
		successProb: successProb,
		latency:     latency,
		timeframe:   timeframe,
		prices:      prices,
		rng:         rng,
		now:         time.Now,
	}
}

func (b *SimBroker) roll() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float64()
}

// wait simulates broker latency but respects the caller's deadline.
func (b *SimBroker) wait(ctx context.Context) error {
	if b.latency <= 0 {
		return nil
	}
	t := time.NewTimer(b.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrBroker, ctx.Err())
	case <-t.C:
		return nil
	}
}

func (b *SimBroker) PlaceOrder(ctx context.Context, trade *models.Trade) (string, error) {
	if err := b.wait(ctx); err != nil {
		return "", err
	}
	if b.roll() > b.successProb {
		return "", fmt.Errorf("%w: simulated placement failed for %s", ErrBroker, trade.Symbol)
	}
	return fmt.Sprintf("AO%d", b.now().UnixNano()), nil
}

func (b *SimBroker) CloseOrder(ctx context.Context, trade *models.Trade) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	if b.roll() > b.successProb {
		return fmt.Errorf("%w: simulated close failed for %s", ErrBroker, trade.Symbol)
	}
	return nil
}

func (b *SimBroker) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if c, ok := b.prices.Latest(symbol, b.timeframe); ok {
		return c.Close, nil
	}
	return 0, fmt.Errorf("%w: no price for %s", ErrBroker, symbol)
}
