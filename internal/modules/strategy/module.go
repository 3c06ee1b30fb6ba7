package strategy

import (
	"context"
	"log"
	"time"

	"go.uber.org/fx"

	"trade_engine/internal/modules/config"
	healthservice "trade_engine/internal/modules/health/service"
	mdservice "trade_engine/internal/modules/marketdata/service"
	"trade_engine/internal/modules/strategy/service"
	pgstore "trade_engine/internal/store/pg"
	"trade_engine/pkg/db"
)

func asCandleSource(s *mdservice.Store) service.CandleSource { return s }

func newPersistence(tm *db.PgTxManager) service.Persistence {
	if tm == nil {
		return nil
	}
	return pgstore.NewStrategies(tm)
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			newPersistence,
			service.NewRegistry,
			service.NewEvaluator,
			asCandleSource,
		),

		fx.Invoke(func(
			lc fx.Lifecycle,
			cfg *config.Config,
			reg *service.Registry,
			ev *service.Evaluator,
			tm *db.PgTxManager,
			state *healthservice.State,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(startCtx context.Context) error {
					restored := 0
					if tm != nil {
						saved, err := pgstore.NewStrategies(tm).LoadAll(startCtx)
						if err != nil {
							return err
						}
						reg.Load(saved)
						restored = len(saved)
						log.Printf("[STRAT] restored %d strategies from storage", restored)
					}
					// presets are a bootstrap convenience, restored state wins
					if restored == 0 {
						if err := service.SeedPresets(startCtx, cfg, reg); err != nil {
							return err
						}
					}

					go func() {
						log.Printf("[STRAT] evaluator loop started, interval=%s", cfg.Evaluator.Interval)
						ticker := time.NewTicker(cfg.Evaluator.Interval)
						defer ticker.Stop()
						for {
							select {
							case <-ctx.Done():
								log.Printf("[STRAT] evaluator loop stopped")
								return
							case <-ticker.C:
								ev.Tick(ctx)
								state.TouchEval(time.Now())
							}
						}
					}()
					return nil
				},
			})
		}),
	)
}
