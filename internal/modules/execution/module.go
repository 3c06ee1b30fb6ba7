package execution

import (
	"go.uber.org/fx"

	"trade_engine/internal/modules/config"
	"trade_engine/internal/modules/execution/service"
	mdservice "trade_engine/internal/modules/marketdata/service"
	stratservice "trade_engine/internal/modules/strategy/service"
	pgstore "trade_engine/internal/store/pg"
	"trade_engine/internal/notify"
	"trade_engine/pkg/db"
)

func newSimBroker(cfg *config.Config, store *mdservice.Store) *service.SimBroker {
	return service.NewSimBroker(
		cfg.Sim.SuccessProb,
		cfg.Sim.Latency,
		cfg.DefaultTimeframe,
		store,
		mdservice.NewRand(cfg),
	)
}

// newRealBroker is nil unless a broker endpoint is configured; the engine
// then simulates every placement.
func newRealBroker(cfg *config.Config, sessions *service.SessionRegistry) *service.HTTPBroker {
	if cfg.Broker.BaseURL == "" {
		return nil
	}
	return service.NewHTTPBroker(cfg.Broker.BaseURL, cfg.Broker.Timeout, sessions)
}

func newTradeStore(cfg *config.Config, tm *db.PgTxManager) service.TradeStore {
	if tm == nil {
		return service.NewMemoryTrades()
	}
	return pgstore.NewTrades(tm)
}

func newAccountStore(cfg *config.Config, tm *db.PgTxManager) service.AccountStore {
	if tm == nil {
		return service.NewMemoryAccounts(cfg.DefaultAccountBalance)
	}
	return pgstore.NewAccounts(tm, cfg.DefaultAccountBalance)
}

func newEngine(
	cfg *config.Config,
	httpBroker *service.HTTPBroker,
	sim *service.SimBroker,
	trades service.TradeStore,
	accounts service.AccountStore,
	reg *stratservice.Registry,
	sessions *service.SessionRegistry,
	sink notify.Sink,
) *service.Engine {
	var broker service.Gateway
	if httpBroker != nil {
		broker = httpBroker
	}
	return service.NewEngine(broker, sim, trades, accounts, reg, sessions, sink, cfg.Broker.Timeout)
}

func asExecution(e *service.Engine) stratservice.Execution { return e }

func Module() fx.Option {
	return fx.Module("execution",
		fx.Provide(
			service.NewSessionRegistry,
			newSimBroker,
			newRealBroker,
			newTradeStore,
			newAccountStore,
			newEngine,
			asExecution,
		),
	)
}
