package bootstrap

import (
	"context"
	"log"

	"go.uber.org/fx"

	"trade_engine/internal/modules/bootstrap/service"
	"trade_engine/internal/modules/config"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			service.NewWarmuper,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wu *service.Warmuper) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// the websocket feed carries its own history
					if cfg.Feed.Mode != "synthetic" {
						return nil
					}
					go func() {
						if err := wu.Warmup(ctx, cfg.Feed.Symbols); err != nil {
							log.Printf("[BOOT] warmup error: %v", err)
							return
						}
					}()
					return nil
				},
			})
		}),
	)
}
