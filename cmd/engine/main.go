package main

import (
	"context"
	"log"

	"trade_engine/internal/modules/bootstrap"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/modules/execution"
	"trade_engine/internal/modules/health"
	"trade_engine/internal/modules/marketdata"
	"trade_engine/internal/modules/postgres"
	"trade_engine/internal/modules/strategy"
	"trade_engine/internal/notify"
	"trade_engine/pkg/logger"
	"trade_engine/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Invoke(func(cfg *config.Config) error {
			logger.SetServiceName(cfg.Service.Name)
			tracing.SetServiceName(cfg.Service.Name)
			if cfg.Tracing.Host == "" {
				return nil
			}
			_, _, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Tracing.Host,
				Port: cfg.Tracing.Port,
			})
			return err
		}),
		postgres.Module(),
		health.Module(),
		marketdata.Module(),
		bootstrap.Module(),
		strategy.Module(),
		execution.Module(),
		notify.Module(),
	)
	app.Run()
}
