package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config enumerates every knob of the engine. Values come from
// configs/<CONFIG_FILE> with env overrides for the secrets and the two
// scheduler intervals.
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Name string `yaml:"name"`
	} `yaml:"service"`
	Tracing struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"tracing"`

	Feed struct {
		Mode           string        `yaml:"mode"` // synthetic | websocket
		Interval       time.Duration `yaml:"interval"`
		NoiseStddevPct float64       `yaml:"noise_stddev_pct"` // random-walk sigma, % of price
		Seed           int64         `yaml:"seed"`             // 0 => time-based
		Symbols        []string      `yaml:"symbols"`
		WSURL          string        `yaml:"ws_url"`
	} `yaml:"feed"`

	// CandleRetention bounds the per (symbol, timeframe) window kept in memory.
	CandleRetention int `yaml:"candle_retention"`

	Evaluator struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"evaluator"`

	Broker struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"broker"`

	Sim struct {
		SuccessProb float64       `yaml:"success_prob"` // probability a simulated placement fills
		Latency     time.Duration `yaml:"latency"`
	} `yaml:"sim"`

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`

	// Defaults for strategies created from presets.
	DefaultTimeframe     string  `yaml:"timeframe"`
	DefaultEMAFast       int     `yaml:"ema_fast"`
	DefaultEMASlow       int     `yaml:"ema_slow"`
	DefaultRSIPeriod     int     `yaml:"rsi_period"`
	DefaultRSIOverbought float64 `yaml:"rsi_overbought"`
	DefaultRSIOversold   float64 `yaml:"rsi_oversold"`

	DefaultStopLossPct   float64 `yaml:"stop_loss_pct"`
	DefaultTakeProfitPct float64 `yaml:"take_profit_pct"`
	DefaultMaxCapitalPct float64 `yaml:"max_capital_pct"`

	// Starting balance for accounts created on first trade.
	DefaultAccountBalance float64 `yaml:"account_balance"`
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		CandleRetention: intFromEnv("CANDLE_RETENTION", 500),

		DefaultTimeframe:     getenvDefault("TIMEFRAME", "1m"),
		DefaultEMAFast:       intFromEnv("EMA_FAST", 20),
		DefaultEMASlow:       intFromEnv("EMA_SLOW", 50),
		DefaultRSIPeriod:     intFromEnv("RSI_PERIOD", 14),
		DefaultRSIOverbought: floatFromEnv("RSI_OVERBOUGHT", 70),
		DefaultRSIOversold:   floatFromEnv("RSI_OVERSOLD", 30),

		DefaultStopLossPct:   floatFromEnv("STOP_LOSS_PCT", 2.0),
		DefaultTakeProfitPct: floatFromEnv("TAKE_PROFIT_PCT", 4.0),
		DefaultMaxCapitalPct: floatFromEnv("MAX_CAPITAL_PCT", 10.0),

		DefaultAccountBalance: floatFromEnv("ACCOUNT_BALANCE", 500000),
	}
	config.Feed.Mode = getenvDefault("FEED_MODE", "synthetic")
	config.Feed.Interval = durationFromEnv("FEED_INTERVAL", "5s")
	config.Feed.NoiseStddevPct = floatFromEnv("FEED_NOISE_STDDEV_PCT", 0.5)
	config.Evaluator.Interval = durationFromEnv("EVALUATOR_INTERVAL", "10s")
	config.Broker.Timeout = durationFromEnv("BROKER_TIMEOUT", "5s")
	config.Sim.SuccessProb = floatFromEnv("SIM_SUCCESS_PROB", 0.95)
	config.Sim.Latency = durationFromEnv("SIM_LATENCY", "100ms")
	config.Health.Addr = getenvDefault("HEALTH_ADDR", ":8080")

	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	if len(config.Feed.Symbols) == 0 {
		config.Feed.Symbols = []string{"NIFTY", "BANKNIFTY", "SENSEX", "RELIANCE", "TCS", "INFY"}
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
