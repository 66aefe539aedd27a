// Package marketdata turns the venue's order-book WebSocket stream into
// domain.OrderBook snapshots, stamping each with its receive time for
// downstream reaction-latency accounting.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"marketmaker/internal/domain"
	"marketmaker/internal/quant"
)

// defaultEpsilonPublish is the minimum mid-price move, as an absolute
// decimal delta, needed before a decoded book is worth publishing at
// all. This is a coarser, decoder-level gate than the manager's
// hysteresis threshold: its purpose is only to stop a book whose mid
// hasn't moved from displacing a still-useful pending book in the
// size-1 Books channel, not to replace the manager's own gate.
const defaultEpsilonPublish = 1e-5

// wireLevel is one [price, quantity] pair as the venue sends it — always
// strings, never numbers, so no float ever touches the wire value before
// quant.ParseAmount gets it.
type wireLevel [2]string

// wireBook is the generic depth-snapshot shape most spot venues emit:
// a full replace of the top N levels on every tick rather than an
// incremental diff. The exchange adapter is responsible for any
// venue-specific unwrapping that doesn't fit this shape before handing
// bytes to Decode.
type wireBook struct {
	Channel string      `json:"channel"`
	Symbol  string      `json:"symbol"`
	Bids    []wireLevel `json:"bids"`
	Asks    []wireLevel `json:"asks"`
	TsMillis int64      `json:"ts"`
}

// Config carries the precision the venue quotes this symbol at, needed
// to parse wire strings into quant.Amount without guessing scale.
type Config struct {
	Symbol            string
	PricePrecision    int32
	QuantityPrecision int32
	SubscribeFrame    []byte  // raw frame to send in OnConnect
	PingFrame         []byte  // raw frame to send on each keepalive tick
	EpsilonPublish    float64 // minimum mid move to publish; 0 uses defaultEpsilonPublish
}

// Feed implements transport.Handler, decoding book snapshots and
// publishing them on Books. Only the latest book matters to the manager,
// so a full channel has its older pending snapshot discarded in favor of
// the new one rather than blocking the reader — a slow consumer should
// not stall ingestion.
type Feed struct {
	cfg   Config
	url   string
	log   *slog.Logger
	Books chan *domain.OrderBook

	mu            sync.Mutex
	lastPublished quant.Amount
	havePublished bool
}

// New creates a Feed that will dial url and decode snapshots per cfg.
func New(url string, cfg Config, log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{
		cfg:   cfg,
		url:   url,
		log:   log,
		Books: make(chan *domain.OrderBook, 1),
	}
}

func (f *Feed) URL() string { return f.url }
func (f *Feed) ID() string  { return "marketdata:" + f.cfg.Symbol }

func (f *Feed) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	if len(f.cfg.SubscribeFrame) == 0 {
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, f.cfg.SubscribeFrame)
}

func (f *Feed) OnPing(ctx context.Context, conn *websocket.Conn) error {
	if len(f.cfg.PingFrame) == 0 {
		return conn.WriteMessage(websocket.PingMessage, nil)
	}
	return conn.WriteMessage(websocket.TextMessage, f.cfg.PingFrame)
}

func (f *Feed) OnMessage(ctx context.Context, msg []byte) {
	ob, err := f.Decode(msg)
	if err != nil {
		f.log.Debug("marketdata: skipping undecodable frame", "err", err)
		return
	}
	if ob == nil {
		return
	}

	select {
	case f.Books <- ob:
	default:
		select {
		case <-f.Books:
		default:
		}
		f.Books <- ob
	}
}

// Decode parses one wire frame into a domain.OrderBook, stamping
// ReceiveTs at the moment of the call. Returns (nil, nil) for frames
// that are recognized-but-irrelevant (e.g. a plain "pong").
func (f *Feed) Decode(msg []byte) (*domain.OrderBook, error) {
	receiveTs := quant.Now()

	if len(msg) == 0 || string(msg) == "pong" {
		return nil, nil
	}

	var wb wireBook
	if err := json.Unmarshal(msg, &wb); err != nil {
		return nil, fmt.Errorf("marketdata: decode: %w", err)
	}
	if len(wb.Bids) == 0 || len(wb.Asks) == 0 {
		return nil, nil
	}

	bids, err := f.parseLevels(wb.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := f.parseLevels(wb.Asks)
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 || len(asks) == 0 {
		return nil, nil
	}

	sort.Slice(bids, func(i, j int) bool { return bids[j].Price.LessThan(bids[i].Price) })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })

	symbol := wb.Symbol
	if symbol == "" {
		symbol = f.cfg.Symbol
	}

	ob := &domain.OrderBook{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		ReceiveTs: receiveTs,
	}

	if ob.IsCrossed() {
		return nil, nil
	}

	if mid, ok := ob.Mid(); ok && !f.shouldPublish(mid) {
		return nil, nil
	}

	return ob, nil
}

// shouldPublish reports whether mid has moved far enough from the last
// published book's mid to be worth forwarding, and records mid as the
// new baseline when it has. The first book always publishes.
func (f *Feed) shouldPublish(mid quant.Amount) bool {
	epsilon := f.cfg.EpsilonPublish
	if epsilon <= 0 {
		epsilon = defaultEpsilonPublish
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.havePublished {
		f.lastPublished = mid
		f.havePublished = true
		return true
	}

	delta := mid.Decimal().Sub(f.lastPublished.Decimal()).Abs()
	deltaFloat, _ := delta.Float64()
	if deltaFloat <= epsilon {
		return false
	}
	f.lastPublished = mid
	return true
}

func (f *Feed) parseLevels(levels []wireLevel) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := quant.ParseAmount(lvl[0], f.cfg.PricePrecision)
		if err != nil {
			return nil, fmt.Errorf("marketdata: price %q: %w", lvl[0], err)
		}
		qty, err := quant.ParseAmount(lvl[1], f.cfg.QuantityPrecision)
		if err != nil {
			return nil, fmt.Errorf("marketdata: quantity %q: %w", lvl[1], err)
		}
		if qty.Zero() {
			continue
		}
		out = append(out, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return out, nil
}
