package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"trade_engine/internal/models"
)

var (
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrConcurrencyConflict: the strategy changed (or was deactivated)
	// while an evaluation cycle was using its snapshot.
	ErrConcurrencyConflict = errors.New("strategy changed during evaluation")
)

// Persistence mirrors registry mutations into durable storage. Optional:
// a nil Persistence keeps the registry purely in memory.
type Persistence interface {
	SaveStrategy(ctx context.Context, s *models.Strategy) error
	DeleteStrategy(ctx context.Context, id int64) error
}

// Registry holds strategy configurations. External CRUD mutates it; the
// evaluator only reads consistent snapshots.
type Registry struct {
	mu      sync.RWMutex
	byID    map[int64]models.Strategy
	nextID  int64
	persist Persistence
}

func NewRegistry(persist Persistence) *Registry {
	return &Registry{
		byID:    make(map[int64]models.Strategy),
		nextID:  1,
		persist: persist,
	}
}

// Save inserts or replaces a strategy. A zero ID allocates the next one.
func (r *Registry) Save(ctx context.Context, s models.Strategy) (models.Strategy, error) {
	r.mu.Lock()
	if s.ID == 0 {
		s.ID = r.nextID
		r.nextID++
		s.CreatedAt = time.Now()
	}
	if s.ID >= r.nextID {
		r.nextID = s.ID + 1
	}
	s.UpdatedAt = time.Now()
	r.byID[s.ID] = s
	r.mu.Unlock()

	if r.persist != nil {
		if err := r.persist.SaveStrategy(ctx, &s); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Load stuffs previously persisted strategies into the registry without
// writing them back. Used once at startup.
func (r *Registry) Load(sts []models.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sts {
		r.byID[s.ID] = s
		if s.ID >= r.nextID {
			r.nextID = s.ID + 1
		}
	}
}

func (r *Registry) Get(id int64) (models.Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

func (r *Registry) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	_, ok := r.byID[id]
	delete(r.byID, id)
	r.mu.Unlock()

	if !ok {
		return ErrStrategyNotFound
	}
	if r.persist != nil {
		return r.persist.DeleteStrategy(ctx, id)
	}
	return nil
}

// ListActive returns value copies of every active strategy: the active flag
// and the parameters are read as one snapshot per evaluation tick.
func (r *Registry) ListActive() []models.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Strategy, 0, len(r.byID))
	for _, s := range r.byID {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// ApplyTradeResult updates the performance counters on trade close.
// Called by the execution engine only.
func (r *Registry) ApplyTradeResult(ctx context.Context, strategyID int64, pnl float64) error {
	r.mu.Lock()
	s, ok := r.byID[strategyID]
	if !ok {
		r.mu.Unlock()
		return ErrStrategyNotFound
	}

	total := float64(s.Perf.TotalTrades)
	s.Perf.AveragePnL = (s.Perf.AveragePnL*total + pnl) / (total + 1)
	s.Perf.TotalTrades++
	if pnl > 0 {
		s.Perf.WinningTrades++
	}
	s.UpdatedAt = time.Now()
	r.byID[strategyID] = s
	r.mu.Unlock()

	if r.persist != nil {
		return r.persist.SaveStrategy(ctx, &s)
	}
	return nil
}
