package domain

import (
	"testing"

	"marketmaker/internal/quant"
)

func book(bid, ask string) *OrderBook {
	return &OrderBook{
		Symbol: "BTCUSDT",
		Bids:   []PriceLevel{{Price: quant.MustParseAmount(bid, 2), Quantity: quant.MustParseAmount("1", 6)}},
		Asks:   []PriceLevel{{Price: quant.MustParseAmount(ask, 2), Quantity: quant.MustParseAmount("1", 6)}},
	}
}

func TestOrderBook_Mid(t *testing.T) {
	ob := book("49000.00", "49100.00")
	mid, ok := ob.Mid()
	if !ok {
		t.Fatal("expected mid to be computable")
	}
	if got := mid.Float64(); got != 49050.00 {
		t.Errorf("Mid() = %v; want 49050.00", got)
	}
}

func TestOrderBook_Mid_EmptySide(t *testing.T) {
	ob := &OrderBook{Symbol: "BTCUSDT"}
	if _, ok := ob.Mid(); ok {
		t.Error("expected Mid() to fail on empty book")
	}
}

func TestOrderBook_IsCrossed(t *testing.T) {
	crossed := book("49100.00", "49000.00")
	if !crossed.IsCrossed() {
		t.Error("expected crossed book to be detected")
	}

	normal := book("49000.00", "49100.00")
	if normal.IsCrossed() {
		t.Error("expected normal book to not be crossed")
	}
}
