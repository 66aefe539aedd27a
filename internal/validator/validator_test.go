package validator

import (
	"testing"

	"marketmaker/internal/quant"
)

func defaultLimits() Limits {
	return Limits{
		MinPrice:            quant.MustParseAmount("0.01", 2),
		MaxPrice:            quant.MustParseAmount("1000000", 2),
		MinQuantity:         quant.MustParseAmount("0.00001", 5),
		MaxQuantity:         quant.MustParseAmount("10000", 5),
		MinNotional:         quant.MustParseAmount("10", 2),
		MaxNotional:         quant.MustParseAmount("100000", 2),
		MaxSpreadPercentage: 0.10,
		MinSpreadPercentage: 0.001,
	}
}

func TestValidateOrder_Valid(t *testing.T) {
	v := New(defaultLimits())
	price := quant.MustParseAmount("49000.00", 2)
	qty := quant.MustParseAmount("0.001", 5)
	mid := quant.MustParseAmount("49000.00", 2)

	res := v.ValidateOrder(price, qty, mid)
	if !res.Valid {
		t.Errorf("expected valid order, got reason: %s", res.Reason)
	}
}

func TestValidateOrder_BelowMinPrice(t *testing.T) {
	v := New(defaultLimits())
	price := quant.MustParseAmount("0.00", 2)
	qty := quant.MustParseAmount("0.001", 5)

	res := v.ValidateOrder(price, qty, quant.Amount{})
	if res.Valid {
		t.Fatal("expected invalid for below-minimum price")
	}
	if res.SuggestedPrice.String() != defaultLimits().MinPrice.String() {
		t.Errorf("suggested price = %s; want min price", res.SuggestedPrice.String())
	}
}

func TestValidateOrder_BelowMinNotional(t *testing.T) {
	v := New(defaultLimits())
	price := quant.MustParseAmount("1.00", 2)
	qty := quant.MustParseAmount("0.00100", 5) // notional 0.001, below 10

	res := v.ValidateOrder(price, qty, quant.Amount{})
	if res.Valid {
		t.Fatal("expected invalid for below-minimum notional")
	}
}

func TestValidateOrder_DeviationFromMid(t *testing.T) {
	v := New(defaultLimits())
	price := quant.MustParseAmount("60000.00", 2) // far from mid
	qty := quant.MustParseAmount("1", 5)
	mid := quant.MustParseAmount("49000.00", 2)

	res := v.ValidateOrder(price, qty, mid)
	if res.Valid {
		t.Fatal("expected invalid for price deviating beyond max spread")
	}
}

func TestValidateQuotePair_Crossed(t *testing.T) {
	v := New(defaultLimits())
	bid := quant.MustParseAmount("49100.00", 2)
	ask := quant.MustParseAmount("49000.00", 2)

	res := v.ValidateQuotePair(bid, ask)
	if res.Valid {
		t.Fatal("expected invalid for crossed quote pair")
	}
}

func TestValidateQuotePair_Normal(t *testing.T) {
	v := New(defaultLimits())
	bid := quant.MustParseAmount("49000.00", 2)
	ask := quant.MustParseAmount("49100.00", 2)

	res := v.ValidateQuotePair(bid, ask)
	if !res.Valid {
		t.Errorf("expected valid quote pair, got reason: %s", res.Reason)
	}
}
