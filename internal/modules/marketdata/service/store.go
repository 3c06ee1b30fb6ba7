package service

import (
	"context"
	"sync"

	"trade_engine/internal/models"
	"trade_engine/internal/modules/config"
	"trade_engine/pkg/logger"
)

type seriesKey struct {
	Symbol    string
	Timeframe string
}

// Archiver persists committed candles beyond the in-memory retention.
// Optional; archiving runs off the read path and never blocks appends.
type Archiver interface {
	ArchiveCandle(ctx context.Context, c models.Candle) error
}

// Store keeps the bounded candle history per (symbol, timeframe).
// Single writer (the feed), many readers. Appended candles are never
// mutated; readers get copies, so no partial candle is ever visible.
type Store struct {
	mu        sync.RWMutex
	retention int
	series    map[seriesKey][]models.Candle // oldest-first internally
	archive   Archiver
}

func NewStore(cfg *config.Config, archive Archiver) *Store {
	retention := cfg.CandleRetention
	if retention <= 0 {
		retention = 500
	}
	return &Store{
		retention: retention,
		series:    make(map[seriesKey][]models.Candle),
		archive:   archive,
	}
}

// Append commits a candle. Out-of-order candles are dropped: a series is
// strictly time-ordered or it is useless to the indicators.
func (s *Store) Append(c models.Candle) {
	key := seriesKey{Symbol: c.Symbol, Timeframe: c.Timeframe}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.series[key]
	if n := len(seq); n > 0 && !c.Timestamp.After(seq[n-1].Timestamp) {
		logger.Warn("[STORE] dropped out-of-order candle %s/%s at %s", c.Symbol, c.Timeframe, c.Timestamp)
		return
	}

	seq = append(seq, c)
	if len(seq) > s.retention {
		seq = seq[len(seq)-s.retention:]
	}
	s.series[key] = seq

	if s.archive != nil {
		go func() {
			if err := s.archive.ArchiveCandle(context.Background(), c); err != nil {
				logger.Warn("[STORE] archive %s/%s failed: %v", c.Symbol, c.Timeframe, err)
			}
		}()
	}
}

// Latest returns the newest candle of the series, if any.
func (s *Store) Latest(symbol, timeframe string) (models.Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq := s.series[seriesKey{Symbol: symbol, Timeframe: timeframe}]
	if len(seq) == 0 {
		return models.Candle{}, false
	}
	return seq[len(seq)-1], true
}

// Window returns up to limit candles newest-first. An empty store yields an
// empty slice, never an error.
func (s *Store) Window(symbol, timeframe string, limit int) []models.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq := s.series[seriesKey{Symbol: symbol, Timeframe: timeframe}]
	n := len(seq)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]models.Candle, 0, n)
	for i := len(seq) - 1; i >= len(seq)-n; i-- {
		out = append(out, seq[i])
	}
	return out
}

// Len reports the current series length.
func (s *Store) Len(symbol, timeframe string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[seriesKey{Symbol: symbol, Timeframe: timeframe}])
}
