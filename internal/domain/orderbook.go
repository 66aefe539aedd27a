package domain

import (
	"github.com/shopspring/decimal"

	"marketmaker/internal/quant"
)

// PriceLevel is one price/quantity pair in a book side.
type PriceLevel struct {
	Price    quant.Amount
	Quantity quant.Amount
}

// OrderBook is an immutable snapshot of the top of book for one symbol,
// replaced wholesale on every market-data update rather than mutated in
// place — the decoder hands the manager a fresh OrderBook each tick.
type OrderBook struct {
	Symbol string
	// Bids is sorted best-first (descending price); Asks best-first
	// (ascending price).
	Bids []PriceLevel
	Asks []PriceLevel
	// ReceiveTs is when this book was read off the wire, the origin point
	// for reaction-latency accounting.
	ReceiveTs quant.TimeStamp
}

// BestBid returns the top bid level, or false if the book has no bids.
func (ob *OrderBook) BestBid() (PriceLevel, bool) {
	if len(ob.Bids) == 0 {
		return PriceLevel{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the top ask level, or false if the book has no asks.
func (ob *OrderBook) BestAsk() (PriceLevel, bool) {
	if len(ob.Asks) == 0 {
		return PriceLevel{}, false
	}
	return ob.Asks[0], true
}

// Mid returns the midpoint of best bid and best ask. ok is false if
// either side is empty.
func (ob *OrderBook) Mid() (quant.Amount, bool) {
	bid, ok := ob.BestBid()
	if !ok {
		return quant.Amount{}, false
	}
	ask, ok := ob.BestAsk()
	if !ok {
		return quant.Amount{}, false
	}
	sum := bid.Price.Decimal().Add(ask.Price.Decimal())
	midPrecision := bid.Price.Precision + 2 // extra digits so mid doesn't lose resolution to /2
	mid := quant.FromDecimal(sum.DivRound(decimal.NewFromInt(2), midPrecision), midPrecision)
	return mid, true
}

// IsCrossed reports whether the best bid is at or above the best ask,
// which should never be forwarded into a repricing decision.
func (ob *OrderBook) IsCrossed() bool {
	bid, ok := ob.BestBid()
	if !ok {
		return false
	}
	ask, ok := ob.BestAsk()
	if !ok {
		return false
	}
	return !bid.Price.LessThan(ask.Price)
}
