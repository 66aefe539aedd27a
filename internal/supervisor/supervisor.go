// Package supervisor wires the market-maker's components together and
// drives its staged startup/shutdown, grounded on the teacher's bootstrap
// sequence (config -> logger -> data-layer -> workers) but repurposed for
// a single-symbol trading loop instead of a multi-exchange UI backend.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketmaker/internal/circuit"
	"marketmaker/internal/config"
	"marketmaker/internal/exchange"
	"marketmaker/internal/logging"
	"marketmaker/internal/manager"
	"marketmaker/internal/marketdata"
	"marketmaker/internal/metrics"
	"marketmaker/internal/quant"
	"marketmaker/internal/ratelimit"
	"marketmaker/internal/tradingtransport"
	"marketmaker/internal/transport"
	"marketmaker/internal/validator"
)

// Supervisor owns the full set of running components for one
// symbol/venue pair: the market-data feed, the trading transport, and
// the repricing manager consuming one and driving the other.
type Supervisor struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	feed      *marketdata.Feed
	feedCfg   transport.Config
	transport tradingtransport.Transport
	manager   *manager.Manager

	streamTransport *tradingtransport.StreamTransport // nil when using HTTP transport
}

// New performs the staged initialization: resolve the venue adapter,
// build the logger, the rate limiters and circuit breakers, the trading
// transport, the market-data feed, and finally the manager that ties
// them together. Nothing is started yet — call Run for that.
func New(cfg *config.Config) (*Supervisor, error) {
	log := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Dir:      "logs",
		FileName: "marketmaker.log",
		Stdout:   true,
	})

	adapter, err := exchange.New(cfg.Exchange.Type)
	if err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}
	endpoints := adapter.Endpoints(cfg.Exchange.UseTestnet)
	wsMarketURL := cfg.Exchange.WSBaseURL
	if wsMarketURL == "" {
		wsMarketURL = endpoints.WSMarketDataURL
	}

	m := metrics.New()

	orderSize, err := quant.ParseAmount(cfg.Strategy.OrderSize, cfg.Strategy.QuantityPrecision)
	if err != nil {
		return nil, fmt.Errorf("supervisor: invalid strategy.order_size: %w", err)
	}

	limits := ratelimit.NewBuckets(
		cfg.RateLimit.MaxOrdersPerSecond, cfg.RateLimit.MaxRequestsPerSecond,
		int(cfg.RateLimit.MaxOrdersPerSecond), int(cfg.RateLimit.MaxRequestsPerSecond),
	)
	breaker := circuit.New(circuit.DefaultConfig("trading_transport"), log)
	signer := tradingtransport.NewSigner(cfg.Exchange.APIKey, cfg.Exchange.APISecret)

	workerCfg := transport.DefaultConfig()
	workerCfg.Backoff.Base = cfg.ReconnectDelay()
	workerCfg.MaxReconnects = cfg.Connection.MaxReconnectAttempts

	restURL := cfg.Exchange.RestBaseURL
	if restURL == "" {
		restURL = endpoints.RESTBaseURL
	}

	var tr tradingtransport.Transport
	var streamTr *tradingtransport.StreamTransport
	if cfg.Exchange.UseWebsocketTrading {
		wsTradingURL := cfg.Exchange.WSTradingURL
		if wsTradingURL == "" {
			wsTradingURL = endpoints.WSTradingURL
		}
		streamTr = tradingtransport.NewStreamTransport(wsTradingURL, signer, limits, breaker, workerCfg, log)
		tr = streamTr
	} else {
		tr = tradingtransport.NewHTTPTransport(restURL, signer, limits, breaker)
	}

	// Populate the adapter's precision cache from the venue's trading
	// rules before the manager is built, so tick/lot rounding is live on
	// the very first reprice rather than only after some later call
	// happens to seed it.
	var tickSize, lotSize quant.Amount
	if fetcher, ok := adapter.(exchange.ExchangeInfoFetcher); ok {
		fetchCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := fetcher.FetchExchangeInfo(fetchCtx, restURL); err != nil {
			log.Warn("supervisor: failed to fetch exchange info, tick/lot rounding disabled", "err", err)
		}
		cancel()
	}
	if info, err := adapter.SymbolInfo(cfg.Market.Symbol); err == nil {
		tickSize = info.TickSize
		lotSize = info.LotSize
	} else {
		log.Warn("supervisor: no symbol info cached, tick/lot rounding disabled", "symbol", cfg.Market.Symbol, "err", err)
	}

	feed := marketdata.New(wsMarketURL, marketdata.Config{
		Symbol:            cfg.Market.Symbol,
		PricePrecision:    cfg.Strategy.PricePrecision,
		QuantityPrecision: cfg.Strategy.QuantityPrecision,
	}, log)

	v := validator.New(validator.Limits{
		MinPrice:            quant.MustParseAmount(cfg.Validation.MinPrice, cfg.Strategy.PricePrecision),
		MaxPrice:            quant.MustParseAmount(cfg.Validation.MaxPrice, cfg.Strategy.PricePrecision),
		MinQuantity:         quant.MustParseAmount(cfg.Validation.MinQuantity, cfg.Strategy.QuantityPrecision),
		MaxQuantity:         quant.MustParseAmount(cfg.Validation.MaxQuantity, cfg.Strategy.QuantityPrecision),
		MinNotional:         quant.MustParseAmount(cfg.Validation.MinNotional, cfg.Strategy.PricePrecision),
		MaxNotional:         quant.MustParseAmount(cfg.Validation.MaxNotional, cfg.Strategy.PricePrecision),
		MaxSpreadPercentage: cfg.Validation.MaxSpreadPercentage,
		MinSpreadPercentage: cfg.Validation.MinSpreadPercentage,
	})

	mgr := manager.New(manager.Config{
		Symbol:               cfg.Market.Symbol,
		SpreadPercentage:     cfg.Strategy.SpreadPercentage,
		OrderSize:            orderSize,
		PricePrecision:       cfg.Strategy.PricePrecision,
		QuantityPrecision:    cfg.Strategy.QuantityPrecision,
		PriceChangeThreshold: cfg.Strategy.PriceChangeThreshold,
		UpdateCooldown:       cfg.OrderUpdateCooldown(),
		TickSize:             tickSize,
		LotSize:              lotSize,
	}, tr, v, m, log)

	return &Supervisor{
		cfg:             cfg,
		log:             log,
		metrics:         m,
		feed:            feed,
		feedCfg:         workerCfg,
		transport:       tr,
		manager:         mgr,
		streamTransport: streamTr,
	}, nil
}

// Run starts every component and blocks, feeding decoded books into the
// manager, until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.streamTransport != nil {
		s.streamTransport.Start(ctx)
	}

	worker := transport.New(s.feed, s.feedCfg, s.log)
	worker.Start(ctx)
	defer worker.Stop()

	s.log.Info("supervisor: running", "symbol", s.cfg.Market.Symbol, "exchange", s.cfg.Exchange.Type)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("supervisor: shutting down")
			cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.manager.CancelAll(cancelCtx)
			cancel()
			if s.streamTransport != nil {
				s.streamTransport.Stop()
			}
			s.log.Info("supervisor: final metrics",
				"counts", s.metrics.Counts(),
				"execution_latency_us", s.metrics.ExecutionLatency(),
				"reaction_latency_us", s.metrics.ReactionLatency())
			return ctx.Err()
		case ob := <-s.feed.Books:
			s.manager.OnBook(ctx, ob)
		}
	}
}

// Metrics exposes the running instance's counters for a status endpoint
// or periodic log line.
func (s *Supervisor) Metrics() *metrics.Metrics { return s.metrics }
