package service

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_engine/internal/models"
)

type stubPrices struct {
	candle models.Candle
	ok     bool
}

func (s *stubPrices) Latest(symbol, timeframe string) (models.Candle, bool) {
	return s.candle, s.ok
}

func simTrade() *models.Trade {
	return &models.Trade{Symbol: "NIFTY", Side: models.SideBuy, Quantity: 10, Price: 100}
}

func TestSimBrokerPlaceOrderFills(t *testing.T) {
	b := NewSimBroker(1.0, 0, "1m", &stubPrices{}, rand.New(rand.NewSource(1)))

	id, err := b.PlaceOrder(context.Background(), simTrade())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "AO"))
}

func TestSimBrokerPlaceOrderFailsAtZeroProbability(t *testing.T) {
	b := NewSimBroker(0, 0, "1m", &stubPrices{}, rand.New(rand.NewSource(1)))

	_, err := b.PlaceOrder(context.Background(), simTrade())
	assert.ErrorIs(t, err, ErrBroker)
}

func TestSimBrokerOrderIDsAreUnique(t *testing.T) {
	b := NewSimBroker(1.0, 0, "1m", &stubPrices{}, rand.New(rand.NewSource(1)))

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		id, err := b.PlaceOrder(context.Background(), simTrade())
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate order id %s", id)
		seen[id] = true
	}
}

func TestSimBrokerRespectsDeadline(t *testing.T) {
	b := NewSimBroker(1.0, time.Minute, "1m", &stubPrices{}, rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := b.PlaceOrder(ctx, simTrade())
	assert.ErrorIs(t, err, ErrBroker)
}

func TestSimBrokerGetPrice(t *testing.T) {
	prices := &stubPrices{candle: models.Candle{Close: 21850.5}, ok: true}
	b := NewSimBroker(1.0, 0, "1m", prices, rand.New(rand.NewSource(1)))

	px, err := b.GetPrice(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.Equal(t, 21850.5, px)

	prices.ok = false
	_, err = b.GetPrice(context.Background(), "NIFTY")
	assert.ErrorIs(t, err, ErrBroker)
}

func TestSimBrokerCloseOrder(t *testing.T) {
	b := NewSimBroker(1.0, 0, "1m", &stubPrices{}, rand.New(rand.NewSource(1)))
	assert.NoError(t, b.CloseOrder(context.Background(), simTrade()))

	b = NewSimBroker(0, 0, "1m", &stubPrices{}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, b.CloseOrder(context.Background(), simTrade()), ErrBroker)
}

func TestSessionRegistryLifecycle(t *testing.T) {
	r := NewSessionRegistry()

	s1 := r.Session(1)
	require.NotNil(t, s1)
	assert.NotEmpty(t, s1.Token)

	// same session until evicted
	assert.Equal(t, s1.Token, r.Session(1).Token)
	assert.Equal(t, 1, r.Len())

	r.Evict(1)
	assert.Equal(t, 0, r.Len())

	s2 := r.Session(1)
	assert.NotEqual(t, s1.Token, s2.Token)
}
