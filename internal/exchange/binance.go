package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"marketmaker/internal/quant"
)

func init() {
	Register("binance", []string{"binance_spot", "binanceus"}, func() Adapter { return NewBinanceAdapter() })
}

// BinanceAdapter is the canonical-name-folded, symbol-cached adapter
// grounded on the original implementation's BinanceExchange: it caches
// SymbolInfo once seeded rather than re-deriving precision on every
// quote; looking up a symbol that was never seeded returns an error.
type BinanceAdapter struct {
	mu      sync.RWMutex
	symbols map[string]SymbolInfo
}

// NewBinanceAdapter builds an empty adapter; symbol metadata is seeded
// via Seed (normally done once at startup from the venue's
// exchangeInfo-equivalent response) or populated lazily by SymbolInfo's
// caller.
func NewBinanceAdapter() *BinanceAdapter {
	return &BinanceAdapter{symbols: make(map[string]SymbolInfo)}
}

func (b *BinanceAdapter) Name() string { return "binance" }

func (b *BinanceAdapter) Endpoints(useTestnet bool) Endpoints {
	if useTestnet {
		return Endpoints{
			WSMarketDataURL: "wss://testnet.binance.vision/ws",
			WSTradingURL:    "wss://testnet.binance.vision/ws-api/v3",
			RESTBaseURL:     "https://testnet.binance.vision",
		}
	}
	return Endpoints{
		WSMarketDataURL: "wss://stream.binance.com:9443/ws",
		WSTradingURL:    "wss://ws-api.binance.com:443/ws-api/v3",
		RESTBaseURL:     "https://api.binance.com",
	}
}

// Seed registers symbol metadata the adapter didn't have to fetch
// itself — typically populated once from config or a venue's symbol
// metadata endpoint during supervisor startup.
func (b *BinanceAdapter) Seed(info SymbolInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.symbols[ToBinanceSymbol(info.Symbol)] = info
}

func (b *BinanceAdapter) SymbolInfo(symbol string) (SymbolInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, ok := b.symbols[ToBinanceSymbol(symbol)]
	if !ok {
		return SymbolInfo{}, fmt.Errorf("exchange/binance: unseeded symbol %q", symbol)
	}
	return info, nil
}

// exchangeInfoResponse is the subset of Binance's /api/v3/exchangeInfo
// document this adapter needs: per-symbol PRICE_FILTER/LOT_SIZE filters,
// grounded on the original's get_exchange_info parsing.
type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Filters []struct {
			FilterType string `json:"filterType"`
			TickSize   string `json:"tickSize"`
			MinQty     string `json:"minQty"`
			MaxQty     string `json:"maxQty"`
			StepSize   string `json:"stepSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

// FetchExchangeInfo pulls baseURL's /api/v3/exchangeInfo and seeds every
// symbol it describes, deriving precision from the PRICE_FILTER/LOT_SIZE
// filters' own decimal-digit count the way the original bot does, rather
// than trusting a separately configured precision that could drift from
// what the venue actually enforces.
func (b *BinanceAdapter) FetchExchangeInfo(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v3/exchangeInfo", nil)
	if err != nil {
		return fmt.Errorf("exchange/binance: build exchange info request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("exchange/binance: fetch exchange info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exchange/binance: exchange info returned status %d", resp.StatusCode)
	}

	var parsed exchangeInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("exchange/binance: decode exchange info: %w", err)
	}

	for _, sym := range parsed.Symbols {
		info := SymbolInfo{Symbol: sym.Symbol}
		for _, f := range sym.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				info.PricePrecision = decimalDigits(f.TickSize)
				info.TickSize = quant.MustParseAmount(f.TickSize, info.PricePrecision)
			case "LOT_SIZE":
				info.QuantityPrecision = decimalDigits(f.StepSize)
				info.LotSize = quant.MustParseAmount(f.StepSize, info.QuantityPrecision)
				info.MinQuantity = quant.MustParseAmount(f.MinQty, info.QuantityPrecision)
				info.MaxQuantity = quant.MustParseAmount(f.MaxQty, info.QuantityPrecision)
			}
		}
		b.Seed(info)
	}
	return nil
}

// decimalDigits counts the digits after the decimal point in a venue
// filter string ("0.00100000" -> 8), matching the original's strlen-based
// precision derivation.
func decimalDigits(s string) int32 {
	_, frac, found := strings.Cut(s, ".")
	if !found {
		return 0
	}
	return int32(len(frac))
}

// ToBinanceSymbol converts the market-maker's canonical "BTC-USDT" (or
// "BTC/USDT") form to Binance's concatenated, uppercase "BTCUSDT".
func ToBinanceSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// FromBinanceSymbol is a best-effort reverse of ToBinanceSymbol given the
// known quote asset, since Binance's concatenated form is ambiguous
// without knowing where base ends and quote begins.
func FromBinanceSymbol(binanceSymbol, quoteAsset string) string {
	upper := strings.ToUpper(binanceSymbol)
	quoteAsset = strings.ToUpper(quoteAsset)
	if strings.HasSuffix(upper, quoteAsset) {
		base := strings.TrimSuffix(upper, quoteAsset)
		return base + "-" + quoteAsset
	}
	return binanceSymbol
}
