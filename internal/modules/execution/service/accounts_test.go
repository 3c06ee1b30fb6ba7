package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAccountsCreateOnFirstUse(t *testing.T) {
	a := NewMemoryAccounts(500000)

	acct, err := a.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.OwnerID)
	assert.Equal(t, 500000.0, acct.Balance)
	assert.Equal(t, 0.0, acct.TotalPnL)
}

func TestMemoryAccountsApplyPnL(t *testing.T) {
	a := NewMemoryAccounts(1000)

	require.NoError(t, a.ApplyPnL(context.Background(), 1, 250))
	require.NoError(t, a.ApplyPnL(context.Background(), 1, -100))

	acct, err := a.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 1150.0, acct.Balance, 1e-9)
	assert.InDelta(t, 150.0, acct.TotalPnL, 1e-9)
}

func TestMemoryAccountsReturnsCopies(t *testing.T) {
	a := NewMemoryAccounts(1000)

	acct, err := a.Get(context.Background(), 1)
	require.NoError(t, err)
	acct.Balance = 0

	again, err := a.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, again.Balance)
}

func TestMemoryTradesLifecycle(t *testing.T) {
	s := NewMemoryTrades()

	trade := simTrade()
	require.NoError(t, s.Save(context.Background(), trade))
	assert.Equal(t, int64(1), trade.ID)

	found, err := s.FindByID(context.Background(), trade.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.Symbol, found.Symbol)

	_, err = s.FindByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrTradeNotFound)
}
