package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Market    MarketConfig    `yaml:"market" json:"market"`
	Strategy  StrategyConfig  `yaml:"strategy" json:"strategy"`
	Sizing    SizingConfig    `yaml:"sizing" json:"sizing"`
	Portfolio PortfolioConfig `yaml:"portfolio" json:"portfolio"`
	Live      LiveConfig      `yaml:"live" json:"live"`
	Telegram  TelegramConfig  `yaml:"telegram" json:"telegram"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Influx    InfluxConfig    `yaml:"influx" json:"influx"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// MarketConfig selects the data provider and the default request.
type MarketConfig struct {
	Source          string   `yaml:"source" json:"source" validate:"oneof=yahoo binance polygon alpaca mock" jsonschema:"enum=yahoo,enum=binance,enum=polygon,enum=alpaca,enum=mock,default=yahoo"`
	Symbol          string   `yaml:"symbol" json:"symbol" validate:"required" jsonschema:"description=Default symbol,default=BTC-USD"`
	Symbols         []string `yaml:"symbols" json:"symbols,omitempty" jsonschema:"description=Symbols offered by the web page"`
	Period          string   `yaml:"period" json:"period" validate:"required" jsonschema:"default=1d"`
	Interval        string   `yaml:"interval" json:"interval" validate:"required" jsonschema:"default=1m"`
	Proxy           string   `yaml:"proxy" json:"proxy,omitempty" validate:"omitempty,url"`
	YahooBaseURL    string   `yaml:"yahoo_base_url" json:"yahoo_base_url,omitempty" validate:"omitempty,url"`
	PolygonAPIKey   string   `yaml:"polygon_api_key" json:"polygon_api_key,omitempty"`
	AlpacaAPIKey    string   `yaml:"alpaca_api_key" json:"alpaca_api_key,omitempty"`
	AlpacaSecretKey string   `yaml:"alpaca_secret_key" json:"alpaca_secret_key,omitempty"`
}

// StrategyConfig selects the signal rule and its indicator windows.
type StrategyConfig struct {
	Rule       string  `yaml:"rule" json:"rule" validate:"oneof=ma confirmed" jsonschema:"enum=ma,enum=confirmed,default=ma"`
	MAWindow   int     `yaml:"ma_window" json:"ma_window" validate:"gt=0" jsonschema:"default=5"`
	RSIPeriod  int     `yaml:"rsi_period" json:"rsi_period" validate:"gt=0" jsonschema:"default=14"`
	MACDFast   int     `yaml:"macd_fast" json:"macd_fast" validate:"gt=0" jsonschema:"default=12"`
	MACDSlow   int     `yaml:"macd_slow" json:"macd_slow" validate:"gt=0" jsonschema:"default=26"`
	MACDSignal int     `yaml:"macd_signal" json:"macd_signal" validate:"gt=0" jsonschema:"default=9"`
	Overbought float64 `yaml:"overbought" json:"overbought" validate:"gt=0,lte=100" jsonschema:"default=70"`
}

// SizingConfig selects how much of the balance a signal commits.
type SizingConfig struct {
	Method   string  `yaml:"method" json:"method" validate:"oneof=strength fixed" jsonschema:"enum=strength,enum=fixed,default=strength"`
	Fraction float64 `yaml:"fraction" json:"fraction" validate:"gte=0,lte=1" jsonschema:"description=Fraction used by the fixed sizer"`
}

// PortfolioConfig selects the balance walk.
type PortfolioConfig struct {
	Walker         string  `yaml:"walker" json:"walker" validate:"oneof=portfolio exposure" jsonschema:"enum=portfolio,enum=exposure,default=portfolio"`
	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance" validate:"gt=0" jsonschema:"default=1000"`
	MaxRisk        float64 `yaml:"max_risk" json:"max_risk" validate:"gt=0,lte=1" jsonschema:"default=0.2"`
}

// LiveConfig drives the periodic refresh.
type LiveConfig struct {
	Every      time.Duration `yaml:"every" json:"every" validate:"gte=1s"`
	BackoffMin time.Duration `yaml:"backoff_min" json:"backoff_min" validate:"gt=0"`
	BackoffMax time.Duration `yaml:"backoff_max" json:"backoff_max" validate:"gt=0"`
	Rows       int           `yaml:"rows" json:"rows" validate:"gt=0" jsonschema:"description=Rows shown by the dashboard,default=15"`
	StateFile  string        `yaml:"state_file" json:"state_file,omitempty"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" json:"bot_token,omitempty"`
	ChatID   string `yaml:"chat_id" json:"chat_id,omitempty"`
	APIBase  string `yaml:"api_base" json:"api_base,omitempty" validate:"omitempty,url"`
}

// Enabled reports whether notifications are configured.
func (t TelegramConfig) Enabled() bool { return t.BotToken != "" }

type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path,omitempty" jsonschema:"description=Empty disables the run log"`
}

type InfluxConfig struct {
	URL    string `yaml:"url" json:"url,omitempty" validate:"omitempty,url"`
	Token  string `yaml:"token" json:"token,omitempty"`
	Org    string `yaml:"org" json:"org,omitempty"`
	Bucket string `yaml:"bucket" json:"bucket,omitempty"`
}

// Enabled reports whether a time-series sink is configured.
func (i InfluxConfig) Enabled() bool { return i.URL != "" }

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" validate:"required" jsonschema:"default=:8080"`
}

type LogConfig struct {
	Level       string `yaml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Development bool   `yaml:"development" json:"development"`
}

// LoadEnvFile loads KEY=VALUE pairs from the given dotenv files into the
// process environment. Missing files are skipped.
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"MARKET_SOURCE":      &c.Market.Source,
		"MARKET_SYMBOL":      &c.Market.Symbol,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"POLYGON_API_KEY":    &c.Market.PolygonAPIKey,
		"ALPACA_API_KEY":     &c.Market.AlpacaAPIKey,
		"ALPACA_SECRET_KEY":  &c.Market.AlpacaSecretKey,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"HTTPS_PROXY":        &c.Market.Proxy,
		"SERVER_ADDR":        &c.Server.Addr,
		"INFLUX_URL":         &c.Influx.URL,
		"INFLUX_TOKEN":       &c.Influx.Token,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("INITIAL_BALANCE"); v != "" {
		balance, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse INITIAL_BALANCE: %w", err)
		}
		c.Portfolio.InitialBalance = balance
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Market.Source == "" {
		c.Market.Source = "yahoo"
	}
	if c.Market.Symbol == "" {
		c.Market.Symbol = "BTC-USD"
	}
	if len(c.Market.Symbols) == 0 {
		c.Market.Symbols = []string{"BTC-USD", "ETH-USD", "BNB-USD"}
	}
	if c.Market.Period == "" {
		c.Market.Period = "1d"
	}
	if c.Market.Interval == "" {
		c.Market.Interval = "1m"
	}

	if c.Strategy.Rule == "" {
		c.Strategy.Rule = "ma"
	}
	if c.Strategy.MAWindow == 0 {
		c.Strategy.MAWindow = 5
	}
	if c.Strategy.RSIPeriod == 0 {
		c.Strategy.RSIPeriod = 14
	}
	if c.Strategy.MACDFast == 0 {
		c.Strategy.MACDFast = 12
	}
	if c.Strategy.MACDSlow == 0 {
		c.Strategy.MACDSlow = 26
	}
	if c.Strategy.MACDSignal == 0 {
		c.Strategy.MACDSignal = 9
	}
	if c.Strategy.Overbought == 0 {
		c.Strategy.Overbought = 70
	}

	if c.Sizing.Method == "" {
		c.Sizing.Method = "strength"
	}

	if c.Portfolio.Walker == "" {
		c.Portfolio.Walker = "portfolio"
	}
	if c.Portfolio.InitialBalance == 0 {
		c.Portfolio.InitialBalance = 1000
	}
	if c.Portfolio.MaxRisk == 0 {
		c.Portfolio.MaxRisk = 0.2
	}

	if c.Live.Every == 0 {
		c.Live.Every = 60 * time.Second
	}
	if c.Live.BackoffMin == 0 {
		c.Live.BackoffMin = 5 * time.Second
	}
	if c.Live.BackoffMax == 0 {
		c.Live.BackoffMax = 5 * time.Minute
	}
	if c.Live.Rows == 0 {
		c.Live.Rows = 15
	}
	if c.Live.StateFile == "" {
		c.Live.StateFile = "data/live_state.json"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field constraints and the combinations a single tag cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Strategy.MACDFast >= c.Strategy.MACDSlow {
		return fmt.Errorf("strategy.macd_fast (%d) must be below strategy.macd_slow (%d)",
			c.Strategy.MACDFast, c.Strategy.MACDSlow)
	}
	if c.Live.BackoffMin > c.Live.BackoffMax {
		return fmt.Errorf("live.backoff_min (%s) exceeds live.backoff_max (%s)",
			c.Live.BackoffMin, c.Live.BackoffMax)
	}
	if c.Telegram.Enabled() && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	switch c.Market.Source {
	case "polygon":
		if c.Market.PolygonAPIKey == "" {
			return fmt.Errorf("market.polygon_api_key is required for the polygon source")
		}
	case "alpaca":
		if c.Market.AlpacaAPIKey == "" || c.Market.AlpacaSecretKey == "" {
			return fmt.Errorf("market.alpaca_api_key and market.alpaca_secret_key are required for the alpaca source")
		}
	}
	if c.Influx.Enabled() && c.Influx.Bucket == "" {
		return fmt.Errorf("influx.bucket is required when influx.url is set")
	}
	return nil
}
