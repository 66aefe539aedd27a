// Package config loads and validates the market-maker's YAML
// configuration, with environment variables taking precedence over the
// file for anything secret.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables for one market-maker instance
// trading one symbol against one venue.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Exchange struct {
		Type       string `yaml:"type"` // e.g. "binance"
		UseTestnet bool   `yaml:"use_testnet"`
		WSBaseURL  string `yaml:"ws_base_url"`
		RestBaseURL string `yaml:"rest_base_url"`
		WSTradingURL string `yaml:"ws_trading_url"`
		UseWebsocketTrading bool `yaml:"use_websocket_trading"`

		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
	} `yaml:"exchange"`

	Market struct {
		Symbol    string `yaml:"symbol"`
		BaseAsset string `yaml:"base_asset"`
		QuoteAsset string `yaml:"quote_asset"`
	} `yaml:"market"`

	Strategy struct {
		SpreadPercentage        float64 `yaml:"spread_percentage"`
		OrderSize               string  `yaml:"order_size"`
		PricePrecision          int32   `yaml:"price_precision"`
		QuantityPrecision       int32   `yaml:"quantity_precision"`
		OrderUpdateCooldownMS   int     `yaml:"order_update_cooldown_ms"`
		PriceChangeThreshold    float64 `yaml:"price_change_threshold"`
	} `yaml:"strategy"`

	Connection struct {
		ReconnectDelayMS     int `yaml:"reconnect_delay_ms"`
		MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
	} `yaml:"connection"`

	RateLimit struct {
		MaxOrdersPerSecond   float64 `yaml:"max_orders_per_second"`
		MaxRequestsPerSecond float64 `yaml:"max_requests_per_second"`
		MaxWeightPerMinute   int     `yaml:"max_weight_per_minute"`
	} `yaml:"rate_limit"`

	Validation struct {
		MinPrice           string  `yaml:"min_price"`
		MaxPrice           string  `yaml:"max_price"`
		MinQuantity        string  `yaml:"min_quantity"`
		MaxQuantity        string  `yaml:"max_quantity"`
		MinNotional        string  `yaml:"min_notional"`
		MaxNotional        string  `yaml:"max_notional"`
		MaxSpreadPercentage float64 `yaml:"max_spread_percentage"`
		MinSpreadPercentage float64 `yaml:"min_spread_percentage"`
	} `yaml:"validation"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads the YAML file at path, applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.Exchange.Type == "" {
		return fmt.Errorf("exchange.type is required")
	}
	if c.Exchange.WSBaseURL == "" || (!strings.HasPrefix(c.Exchange.WSBaseURL, "ws://") && !strings.HasPrefix(c.Exchange.WSBaseURL, "wss://")) {
		return fmt.Errorf("invalid exchange.ws_base_url: %s", c.Exchange.WSBaseURL)
	}
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if c.Strategy.SpreadPercentage <= 0 {
		return fmt.Errorf("strategy.spread_percentage must be positive")
	}
	if c.Strategy.PricePrecision < 0 || c.Strategy.QuantityPrecision < 0 {
		return fmt.Errorf("precision fields must be non-negative")
	}
	if c.RateLimit.MaxOrdersPerSecond <= 0 {
		return fmt.Errorf("rate_limit.max_orders_per_second must be positive")
	}
	return nil
}

// OrderUpdateCooldown converts the YAML millisecond field to a
// time.Duration for the manager's cooldown gate.
func (c *Config) OrderUpdateCooldown() time.Duration {
	return time.Duration(c.Strategy.OrderUpdateCooldownMS) * time.Millisecond
}

// ReconnectDelay converts the YAML millisecond field to a time.Duration
// for the transport's backoff policy.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Connection.ReconnectDelayMS) * time.Millisecond
}

// overrideWithEnv lets MM_* environment variables override secrets and
// connection details loaded from the file, so deployments never need to
// commit credentials to disk.
func overrideWithEnv(cfg *Config) {
	if cfg.Exchange.APISecret != "" {
		fmt.Fprintln(os.Stderr, "config: WARNING API secrets present in config file; prefer MM_API_KEY/MM_API_SECRET env vars")
	}

	if v := os.Getenv("MM_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("MM_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("MM_WS_BASE_URL"); v != "" {
		cfg.Exchange.WSBaseURL = v
	}
	if v := os.Getenv("MM_REST_BASE_URL"); v != "" {
		cfg.Exchange.RestBaseURL = v
	}
}

// PlatformUserAgent builds a descriptive User-Agent for outbound HTTP/WS
// dials, mirroring the teacher's OS-aware string.
func PlatformUserAgent(appVersion string) string {
	return fmt.Sprintf("marketmaker/%s (%s; %s)", appVersion, runtime.GOOS, runtime.GOARCH)
}
