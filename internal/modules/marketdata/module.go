package marketdata

import (
	"context"
	"log"
	"time"

	"go.uber.org/fx"

	"trade_engine/internal/modules/config"
	healthservice "trade_engine/internal/modules/health/service"
	"trade_engine/internal/modules/marketdata/service"
	pgstore "trade_engine/internal/store/pg"
	"trade_engine/pkg/db"
)

func newArchiver(tm *db.PgTxManager) service.Archiver {
	if tm == nil {
		return nil
	}
	return pgstore.NewCandles(tm)
}

// Module drives candle production: a synthetic random walk or the
// websocket adapter, selected by feed.mode. The feed ticker and the
// evaluator ticker are independent schedules.
func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			newArchiver,
			service.NewStore,
			service.NewRand,
			service.NewFeed,
			service.NewWSFeed,
		),

		fx.Invoke(func(
			lc fx.Lifecycle,
			cfg *config.Config,
			feed *service.Feed,
			wsFeed *service.WSFeed,
			state *healthservice.State,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					if cfg.Feed.Mode == "websocket" {
						go wsFeed.Run(ctx)
						return nil
					}

					state.SetFeedConnected(true)

					go func() {
						log.Printf("[FEED] synthetic loop started, interval=%s", cfg.Feed.Interval)
						ticker := time.NewTicker(cfg.Feed.Interval)
						defer ticker.Stop()
						for {
							select {
							case <-ctx.Done():
								log.Printf("[FEED] loop stopped")
								return
							case <-ticker.C:
								feed.Tick()
								state.TouchCandle(time.Now())
								state.SetReady(true)
							}
						}
					}()
					return nil
				},
			})
		}),
	)
}
