package service

import (
	"context"
	"sync"

	"trade_engine/internal/modules/config"
	mdservice "trade_engine/internal/modules/marketdata/service"
	"trade_engine/pkg/logger"
)

// warmupHeadroom pads the longest indicator window so a strategy never
// starts with a barely-sufficient series.
const warmupHeadroom = 30

type Warmuper struct {
	feed *mdservice.Feed
	cfg  *config.Config

	// ограничитель параллелизма
	sem chan struct{}
}

func NewWarmuper(feed *mdservice.Feed, cfg *config.Config) *Warmuper {
	return &Warmuper{
		feed: feed,
		cfg:  cfg,
		sem:  make(chan struct{}, 8),
	}
}

// Warmup backfills every configured symbol with enough synthetic history
// for the widest default indicator window.
func (w *Warmuper) Warmup(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	need := w.cfg.DefaultEMASlow
	if w.cfg.DefaultRSIPeriod > need {
		need = w.cfg.DefaultRSIPeriod
	}
	need += warmupHeadroom

	var wg sync.WaitGroup
	for _, sym := range symbols {
		sym := sym
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sem <- struct{}{}
			defer func() { <-w.sem }()

			select {
			case <-ctx.Done():
				return
			default:
			}
			w.feed.Backfill(sym, need)
		}()
	}
	wg.Wait()

	logger.Info("warmup done: %d symbols, %d candles each", len(symbols), need)
	return nil
}
