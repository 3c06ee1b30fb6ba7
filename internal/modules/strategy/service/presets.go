package service

import (
	"context"

	"github.com/spf13/viper"

	"trade_engine/internal/models"
	"trade_engine/internal/modules/config"
	"trade_engine/pkg/logger"
)

// preset is one seeded strategy from configs/presets.yaml. Unset indicator
// parameters fall back to the config defaults.
type preset struct {
	Name       string  `mapstructure:"name"`
	Kind       string  `mapstructure:"kind"`
	OwnerID    int64   `mapstructure:"owner_id"`
	Symbol     string  `mapstructure:"symbol"`
	Timeframe  string  `mapstructure:"timeframe"`
	Active     bool    `mapstructure:"active"`
	EmaFast    int     `mapstructure:"ema_fast"`
	EmaSlow    int     `mapstructure:"ema_slow"`
	RsiPeriod  int     `mapstructure:"rsi_period"`
	Oversold   float64 `mapstructure:"rsi_oversold"`
	Overbought float64 `mapstructure:"rsi_overbought"`

	StopLossPct   float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct float64 `mapstructure:"take_profit_pct"`
	MaxCapitalPct float64 `mapstructure:"max_capital_pct"`
}

// SeedPresets loads preset strategies into the registry. Missing file is
// fine — the registry just starts empty.
func SeedPresets(ctx context.Context, cfg *config.Config, reg *Registry) error {
	v := viper.New()
	v.SetConfigName("presets")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return nil
		}
		return err
	}

	var entries []preset
	if err := v.UnmarshalKey("strategies", &entries); err != nil {
		return err
	}

	for _, p := range entries {
		s := presetToStrategy(p, cfg)
		if _, err := reg.Save(ctx, s); err != nil {
			return err
		}
	}

	logger.Info("seeded %d preset strategies", len(entries))
	return nil
}

func presetToStrategy(p preset, cfg *config.Config) models.Strategy {
	s := models.Strategy{
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		Kind:      models.StrategyKind(p.Kind),
		Symbol:    p.Symbol,
		Timeframe: orStr(p.Timeframe, cfg.DefaultTimeframe),
		Active:    p.Active,
		Ema: models.EmaCrossoverParams{
			Fast: orInt(p.EmaFast, cfg.DefaultEMAFast),
			Slow: orInt(p.EmaSlow, cfg.DefaultEMASlow),
		},
		Rsi: models.RsiParams{
			Period:     orInt(p.RsiPeriod, cfg.DefaultRSIPeriod),
			Oversold:   orFloat(p.Oversold, cfg.DefaultRSIOversold),
			Overbought: orFloat(p.Overbought, cfg.DefaultRSIOverbought),
		},
		Risk: models.RiskParams{
			StopLossPct:   orFloat(p.StopLossPct, cfg.DefaultStopLossPct),
			TakeProfitPct: orFloat(p.TakeProfitPct, cfg.DefaultTakeProfitPct),
			MaxCapitalPct: orFloat(p.MaxCapitalPct, cfg.DefaultMaxCapitalPct),
		},
	}
	return s
}

func orStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
