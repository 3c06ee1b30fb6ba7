package service

import (
	"context"
	"errors"
	"sync"

	"trade_engine/internal/models"
)

var (
	ErrTradeNotFound = errors.New("trade not found")

	// ErrStore: unrecoverable persistence failure. Aborts the current
	// cycle for that strategy; subsequent ticks proceed independently.
	ErrStore = errors.New("trade store failure")
)

type TradeStore interface {
	Save(ctx context.Context, t *models.Trade) error
	FindByID(ctx context.Context, id int64) (*models.Trade, error)
	FindOpenFor(ctx context.Context, ownerID int64) ([]*models.Trade, error)
}

// MemoryTrades is the in-memory TradeStore used in simulation mode and tests.
type MemoryTrades struct {
	mu     sync.Mutex
	byID   map[int64]models.Trade
	nextID int64
}

func NewMemoryTrades() *MemoryTrades {
	return &MemoryTrades{
		byID:   make(map[int64]models.Trade),
		nextID: 1,
	}
}

func (s *MemoryTrades) Save(_ context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == 0 {
		t.ID = s.nextID
		s.nextID++
	}
	s.byID[t.ID] = *t
	return nil
}

func (s *MemoryTrades) FindByID(_ context.Context, id int64) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, ErrTradeNotFound
	}
	cp := t
	return &cp, nil
}

func (s *MemoryTrades) FindOpenFor(_ context.Context, ownerID int64) ([]*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Trade, 0)
	for _, t := range s.byID {
		if t.OwnerID == ownerID && t.Status == models.TradeOpen {
			cp := t
			out = append(out, &cp)
		}
	}
	return out, nil
}
