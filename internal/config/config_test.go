package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
app:
  name: marketmaker
  version: "1.0"
exchange:
  type: binance
  ws_base_url: "wss://stream.example.com/ws"
  rest_base_url: "https://api.example.com"
market:
  symbol: BTCUSDT
  base_asset: BTC
  quote_asset: USDT
strategy:
  spread_percentage: 0.02
  order_size: "0.001"
  price_precision: 2
  quantity_precision: 6
rate_limit:
  max_orders_per_second: 10
  max_requests_per_second: 10
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeTemp(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Market.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %s; want BTCUSDT", cfg.Market.Symbol)
	}
	if cfg.Strategy.SpreadPercentage != 0.02 {
		t.Errorf("SpreadPercentage = %v; want 0.02", cfg.Strategy.SpreadPercentage)
	}
}

func TestLoad_MissingWSURL(t *testing.T) {
	bad := `
exchange:
  type: binance
market:
  symbol: BTCUSDT
strategy:
  spread_percentage: 0.02
rate_limit:
  max_orders_per_second: 10
`
	path := writeTemp(t, bad)
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing ws_base_url")
	}
}

func TestOverrideWithEnv(t *testing.T) {
	t.Setenv("MM_API_KEY", "envkey")
	t.Setenv("MM_API_SECRET", "envsecret")

	path := writeTemp(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.APIKey != "envkey" {
		t.Errorf("APIKey = %s; want envkey (env override)", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.APISecret != "envsecret" {
		t.Errorf("APISecret = %s; want envsecret (env override)", cfg.Exchange.APISecret)
	}
}
