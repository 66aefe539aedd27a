package marketdata

import "testing"

func testFeed() *Feed {
	return New("wss://example.com/ws", Config{
		Symbol:            "BTCUSDT",
		PricePrecision:    2,
		QuantityPrecision: 6,
	}, nil)
}

func TestFeed_Decode_Snapshot(t *testing.T) {
	f := testFeed()
	msg := []byte(`{"channel":"books","symbol":"BTCUSDT","bids":[["49000.00","1.5"],["48999.00","2.0"]],"asks":[["49100.00","1.0"],["49101.00","3.0"]],"ts":1700000000000}`)

	ob, err := f.Decode(msg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ob == nil {
		t.Fatal("expected a decoded book")
	}
	if len(ob.Bids) != 2 || len(ob.Asks) != 2 {
		t.Fatalf("expected 2 bids and 2 asks, got %d/%d", len(ob.Bids), len(ob.Asks))
	}
	if ob.Bids[0].Price.String() != "49000.00" {
		t.Errorf("best bid = %s; want 49000.00 (descending sort)", ob.Bids[0].Price.String())
	}
	if ob.Asks[0].Price.String() != "49100.00" {
		t.Errorf("best ask = %s; want 49100.00 (ascending sort)", ob.Asks[0].Price.String())
	}
}

func TestFeed_Decode_ZeroQuantityDropped(t *testing.T) {
	f := testFeed()
	msg := []byte(`{"bids":[["49000.00","0"],["48999.00","2.0"]],"asks":[["49100.00","1.0"]]}`)

	ob, err := f.Decode(msg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ob == nil {
		t.Fatal("expected a decoded book")
	}
	if len(ob.Bids) != 1 {
		t.Errorf("expected zero-quantity bid level to be dropped, got %d bids", len(ob.Bids))
	}
}

func TestFeed_Decode_PongIgnored(t *testing.T) {
	f := testFeed()
	ob, err := f.Decode([]byte("pong"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ob != nil {
		t.Error("expected nil book for pong frame")
	}
}

func TestFeed_Decode_EmptyBookIgnored(t *testing.T) {
	f := testFeed()
	ob, err := f.Decode([]byte(`{"bids":[],"asks":[]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ob != nil {
		t.Error("expected nil book when both sides are empty")
	}
}

func TestFeed_Decode_OneSidedBookIgnored(t *testing.T) {
	f := testFeed()
	ob, err := f.Decode([]byte(`{"bids":[["49000.00","1.0"]],"asks":[]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ob != nil {
		t.Error("expected nil book when only one side is populated")
	}
}

func TestFeed_Decode_EpsilonPublishGate(t *testing.T) {
	f := testFeed()
	f.cfg.EpsilonPublish = 1

	first := []byte(`{"bids":[["49000.00","1.5"]],"asks":[["49100.00","1.0"]]}`)
	ob, err := f.Decode(first)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ob == nil {
		t.Fatal("expected the first book to always publish")
	}

	tinyMove := []byte(`{"bids":[["49000.01","1.5"]],"asks":[["49100.01","1.0"]]}`)
	ob, err = f.Decode(tinyMove)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ob != nil {
		t.Error("expected a sub-epsilon mid move to be suppressed")
	}

	bigMove := []byte(`{"bids":[["49010.00","1.5"]],"asks":[["49110.00","1.0"]]}`)
	ob, err = f.Decode(bigMove)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ob == nil {
		t.Error("expected a move past epsilon to publish")
	}
}
