package service

import (
	"context"
	"sync"
	"time"

	"trade_engine/internal/models"
)

// AccountStore: balance is read-only for callers outside the engine;
// only the engine applies realized PnL on close.
type AccountStore interface {
	Get(ctx context.Context, ownerID int64) (*models.Account, error)
	ApplyPnL(ctx context.Context, ownerID int64, pnl float64) error
}

// MemoryAccounts creates an account with the default balance on first use.
type MemoryAccounts struct {
	mu             sync.Mutex
	byOwner        map[int64]*models.Account
	defaultBalance float64
}

func NewMemoryAccounts(defaultBalance float64) *MemoryAccounts {
	return &MemoryAccounts{
		byOwner:        make(map[int64]*models.Account),
		defaultBalance: defaultBalance,
	}
}

func (a *MemoryAccounts) get(ownerID int64) *models.Account {
	acct, ok := a.byOwner[ownerID]
	if !ok {
		acct = &models.Account{
			OwnerID:   ownerID,
			Balance:   a.defaultBalance,
			UpdatedAt: time.Now(),
		}
		a.byOwner[ownerID] = acct
	}
	return acct
}

func (a *MemoryAccounts) Get(_ context.Context, ownerID int64) (*models.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cp := *a.get(ownerID)
	return &cp, nil
}

func (a *MemoryAccounts) ApplyPnL(_ context.Context, ownerID int64, pnl float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct := a.get(ownerID)
	acct.Balance += pnl
	acct.TotalPnL += pnl
	acct.UpdatedAt = time.Now()
	return nil
}
