// Package manager implements the order lifecycle: deciding when the
// standing quote needs to move, and driving the cancel/place round trip
// through a tradingtransport.Transport with hysteresis and cooldown
// gates so a jittery book doesn't thrash the venue's rate limits.
package manager

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"marketmaker/internal/domain"
	"marketmaker/internal/metrics"
	"marketmaker/internal/quant"
	"marketmaker/internal/tradingtransport"
	"marketmaker/internal/validator"
)

// Config holds the strategy's tunables, grounded on the original bot's
// spread_percentage / order_size / price_change_threshold /
// order_update_cooldown fields.
type Config struct {
	Symbol                string
	SpreadPercentage      float64 // e.g. 0.02 for 2%
	OrderSize             quant.Amount
	PricePrecision        int32
	QuantityPrecision     int32
	PriceChangeThreshold  float64       // hysteresis gate, e.g. 0.0001
	UpdateCooldown        time.Duration // minimum time between repricings
	CancelTimeout         time.Duration // per-cancel timeout, original uses 100ms
	TickSize              quant.Amount
	LotSize               quant.Amount
}

// Manager owns the standing quote pair for one symbol and reprices it in
// reaction to order-book updates.
type Manager struct {
	cfg       Config
	transport tradingtransport.Transport
	validator *validator.Validator
	metrics   *metrics.Metrics
	log       *slog.Logger

	mu    sync.Mutex
	quote domain.ActiveQuotePair
}

// New builds a Manager for one symbol.
func New(cfg Config, transport tradingtransport.Transport, v *validator.Validator, m *metrics.Metrics, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		transport: transport,
		validator: v,
		metrics:   m,
		log:       log,
		quote:     domain.ActiveQuotePair{Symbol: cfg.Symbol},
	}
}

// OnBook is the entry point the supervisor wires the market-data feed's
// decoded books into. It evaluates the hysteresis/cooldown gates and, if
// they pass, reprices.
func (m *Manager) OnBook(ctx context.Context, ob *domain.OrderBook) {
	decisionTs := quant.Now()

	if ob.IsCrossed() {
		m.log.Warn("manager: skipping crossed book", "symbol", ob.Symbol)
		return
	}
	mid, ok := ob.Mid()
	if !ok {
		return
	}

	m.mu.Lock()
	shouldUpdate := m.shouldUpdateOrdersLocked(mid)
	m.mu.Unlock()
	if !shouldUpdate {
		return
	}

	m.reprice(ctx, mid, ob.ReceiveTs, decisionTs)
}

// shouldUpdateOrdersLocked applies the two gates the original checks
// before touching the book: a minimum elapsed time since the last
// update (cooldown) and a minimum price move (hysteresis), so the
// manager doesn't thrash on noise.
func (m *Manager) shouldUpdateOrdersLocked(mid quant.Amount) bool {
	if m.quote.LastMidPrice.Zero() {
		return true
	}
	if m.cfg.UpdateCooldown > 0 && m.quote.LastUpdateAt != 0 {
		if m.quote.LastUpdateAt.Since() < m.cfg.UpdateCooldown {
			return false
		}
	}
	deviation := quant.DeviationRatio(mid, m.quote.LastMidPrice)
	return deviation >= m.cfg.PriceChangeThreshold
}

// reprice cancels any resting legs and places a fresh bid/ask pair
// around mid, both phases run with bounded parallelism and partial
// success tolerated — a cancel timeout is logged, not fatal, matching
// the original's std::async-with-timeout cancel step.
func (m *Manager) reprice(ctx context.Context, mid quant.Amount, bookReceiveTs, decisionTs quant.TimeStamp) {
	bidPrice, askPrice := m.computeQuotePrices(mid)

	if res := m.validator.ValidateQuotePair(bidPrice, askPrice); !res.Valid {
		m.log.Warn("manager: quote pair failed validation", "reason", res.Reason)
		if m.metrics != nil {
			// Neither leg reaches placeLeg this cycle, so both count as
			// attempted-and-rejected to keep the invariant
			// successful+failed+rejected == total_attempted intact.
			m.metrics.RecordOrderAttempt()
			m.metrics.RecordRejectedByValidation()
			m.metrics.RecordOrderAttempt()
			m.metrics.RecordRejectedByValidation()
		}
		return
	}

	m.mu.Lock()
	existingBid := m.quote.Bid
	existingAsk := m.quote.Ask
	m.mu.Unlock()

	m.cancelLegs(ctx, existingBid, existingAsk)

	var wg sync.WaitGroup
	results := make([]legResult, 2)
	legs := []struct {
		side  domain.Side
		price quant.Amount
	}{
		{domain.Bid, bidPrice},
		{domain.Ask, askPrice},
	}

	for i, leg := range legs {
		i, leg := i, leg
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.placeLeg(ctx, leg.side, leg.price, mid)
		}()
	}
	wg.Wait()

	m.mu.Lock()
	for _, r := range results {
		*m.quote.Leg(r.side) = domain.QuoteLeg{State: r.state, Order: r.order}
	}
	m.quote.LastMidPrice = mid
	m.quote.LastUpdateAt = quant.Now()
	m.mu.Unlock()

	issueCompleteTs := quant.Now()
	timing := domain.ReactionTiming{BookReceiveTs: bookReceiveTs, RepriceDecisionTs: decisionTs, IssueCompleteTs: issueCompleteTs}
	if m.metrics != nil {
		m.metrics.RecordLatencies(timing.ExecutionLatency(), timing.ReactionLatency())
	}
}

// CancelAll tears down whichever legs are currently resting, in
// parallel, ignoring individual cancel failures, and clears the active
// pair. This is the manager's shutdown operation: after it returns, no
// leg is left Resting, regardless of how many cancels actually
// succeeded at the venue.
func (m *Manager) CancelAll(ctx context.Context) {
	m.mu.Lock()
	bid := m.quote.Bid
	ask := m.quote.Ask
	m.mu.Unlock()

	m.cancelLegs(ctx, bid, ask)

	m.mu.Lock()
	m.quote.Bid = domain.QuoteLeg{}
	m.quote.Ask = domain.QuoteLeg{}
	m.mu.Unlock()
}

// computeQuotePrices derives raw bid/ask prices from mid and spread,
// then rounds each to the venue's tick size half-to-even.
func (m *Manager) computeQuotePrices(mid quant.Amount) (bid, ask quant.Amount) {
	spread := decimal.NewFromFloat(m.cfg.SpreadPercentage)
	one := decimal.NewFromInt(1)

	bidRaw := mid.Decimal().Mul(one.Sub(spread))
	askRaw := mid.Decimal().Mul(one.Add(spread))

	bidAmount := quant.FromDecimal(bidRaw, m.cfg.PricePrecision)
	askAmount := quant.FromDecimal(askRaw, m.cfg.PricePrecision)

	if !m.cfg.TickSize.Zero() {
		bidAmount = validator.RoundToVenue(bidAmount, m.cfg.TickSize)
		askAmount = validator.RoundToVenue(askAmount, m.cfg.TickSize)
	}
	return bidAmount, askAmount
}

// cancelLegs cancels both resting legs in parallel with a bounded
// per-operation timeout. A cancel that times out or fails is logged and
// otherwise ignored — the subsequent place attempt simply adds a second
// resting order on that side. The new order replaces the stale one in
// the active pair, so the manager stops tracking the stale order and no
// later cycle cancels it.
func (m *Manager) cancelLegs(ctx context.Context, legs ...domain.QuoteLeg) {
	var wg sync.WaitGroup
	for _, leg := range legs {
		leg := leg
		if leg.State != domain.LegResting || leg.Order == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, m.cancelTimeout())
			defer cancel()
			_, err := m.transport.Cancel(cctx, tradingtransport.CancelRequest{
				Symbol:        m.cfg.Symbol,
				Side:          leg.Order.Side,
				OrderID:       leg.Order.OrderID,
				ClientOrderID: leg.Order.ClientOrderID,
			})
			if err != nil {
				m.log.Warn("manager: cancel failed or timed out", "side", leg.Order.Side, "err", err)
			}
		}()
	}
	wg.Wait()
}

func (m *Manager) cancelTimeout() time.Duration {
	if m.cfg.CancelTimeout > 0 {
		return m.cfg.CancelTimeout
	}
	return 100 * time.Millisecond
}

type legResult struct {
	side  domain.Side
	state domain.LegState
	order *domain.Order
}

func (m *Manager) placeLeg(ctx context.Context, side domain.Side, price, mid quant.Amount) legResult {
	if m.metrics != nil {
		m.metrics.RecordOrderAttempt()
	}

	res := m.validator.ValidateOrder(price, m.cfg.OrderSize, mid)
	if !res.Valid {
		m.log.Warn("manager: leg failed validation, skipping place", "side", side, "reason", res.Reason)
		if m.metrics != nil {
			m.metrics.RecordRejectedByValidation()
		}
		return legResult{side: side, state: domain.LegNone}
	}

	clientOrderID := generateClientOrderID(side)

	resp, err := m.transport.Place(ctx, tradingtransport.PlaceRequest{
		Symbol:        m.cfg.Symbol,
		Side:          side,
		Price:         price.String(),
		Quantity:      m.cfg.OrderSize.String(),
		ClientOrderID: clientOrderID,
	})
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordOrderFailure()
		}
		m.log.Error("manager: place failed", "side", side, "err", err)
		return legResult{side: side, state: domain.LegNone}
	}
	if m.metrics != nil {
		m.metrics.RecordOrderSuccess()
	}

	order := &domain.Order{
		OrderID:       resp.OrderID,
		ClientOrderID: clientOrderID,
		Symbol:        m.cfg.Symbol,
		Side:          side,
		Price:         price,
		Quantity:      m.cfg.OrderSize,
		Status:        resp.Status,
		CreatedAt:     quant.Now(),
		UpdatedAt:     quant.Now(),
	}
	return legResult{side: side, state: domain.LegResting, order: order}
}

// generateClientOrderID produces "MM_<SIDE>_<epoch_ns>_<rand6>", the
// format the original bot uses so fills can be traced back to the local
// decision that issued them.
func generateClientOrderID(side domain.Side) string {
	var buf [3]byte
	_, _ = rand.Read(buf[:])
	randSuffix := fmt.Sprintf("%06d", (int(buf[0])<<16|int(buf[1])<<8|int(buf[2]))%1000000)
	return fmt.Sprintf("MM_%s_%d_%s", side.String(), time.Now().UnixNano(), randSuffix)
}
