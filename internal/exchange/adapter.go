// Package exchange abstracts the per-venue details a market-maker needs
// beyond the generic transport/trading-transport layers: symbol metadata
// (tick/lot size, precision), endpoint URLs, and symbol-name translation.
package exchange

import (
	"context"
	"fmt"

	"marketmaker/internal/quant"
)

// SymbolInfo is the venue's trading-rule metadata for one symbol,
// grounded on the original's per-symbol cache (price/quantity precision,
// tick size, min/max quantity).
type SymbolInfo struct {
	Symbol            string
	PricePrecision    int32
	QuantityPrecision int32
	TickSize          quant.Amount
	LotSize           quant.Amount
	MinQuantity       quant.Amount
	MaxQuantity       quant.Amount
}

// Endpoints is the set of URLs an adapter dials.
type Endpoints struct {
	WSMarketDataURL string
	WSTradingURL    string
	RESTBaseURL     string
}

// Adapter is what a venue-specific package implements: it knows how to
// translate the market-maker's canonical symbol/side vocabulary into
// that venue's wire format and endpoints. The trading and market-data
// transports are venue-agnostic; only this layer is not.
type Adapter interface {
	// Name is the canonical, lowercase venue name (e.g. "binance").
	Name() string
	Endpoints(useTestnet bool) Endpoints
	SymbolInfo(symbol string) (SymbolInfo, error)
}

// ExchangeInfoFetcher is implemented by adapters that can populate their
// own SymbolInfo cache from a venue's public trading-rules endpoint. Not
// every Adapter needs this — a venue without a discoverable rules
// endpoint falls back to SymbolInfo values seeded from config.
type ExchangeInfoFetcher interface {
	FetchExchangeInfo(ctx context.Context, baseURL string) error
}

// registry maps canonical names and their known aliases to a
// constructor, folding case and common alternate spellings the way a
// config file might spell them ("Binance", "BINANCE_SPOT").
type registry struct {
	factories map[string]func() Adapter
	aliases   map[string]string
}

var global = &registry{
	factories: make(map[string]func() Adapter),
	aliases:   make(map[string]string),
}

// Register adds a venue constructor under its canonical name plus any
// aliases. Intended to be called from adapter packages' init().
func Register(canonicalName string, aliases []string, factory func() Adapter) {
	global.factories[canonicalName] = factory
	global.aliases[canonicalName] = canonicalName
	for _, alias := range aliases {
		global.aliases[normalize(alias)] = canonicalName
	}
	global.aliases[normalize(canonicalName)] = canonicalName
}

// New builds the adapter registered under name (case/alias-insensitive).
func New(name string) (Adapter, error) {
	canonical, ok := global.aliases[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("exchange: unknown venue %q", name)
	}
	factory, ok := global.factories[canonical]
	if !ok {
		return nil, fmt.Errorf("exchange: no factory registered for %q", canonical)
	}
	return factory(), nil
}

func normalize(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c-'A'+'a')
		case c == '-' || c == ' ':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
