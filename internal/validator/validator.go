// Package validator enforces pre-issue trading limits — price/quantity
// bounds, notional bounds, spread sanity, and crossed-book protection —
// before a manager is allowed to submit an order to a venue.
package validator

import (
	"marketmaker/internal/quant"
)

// Limits mirrors the original's TradingLimits: absolute bounds a venue
// adapter is configured with, independent of any single quote decision.
type Limits struct {
	MinPrice            quant.Amount
	MaxPrice            quant.Amount
	MinQuantity         quant.Amount
	MaxQuantity         quant.Amount
	MinNotional         quant.Amount
	MaxNotional         quant.Amount
	MaxSpreadPercentage float64
	MinSpreadPercentage float64
}

// Result reports whether a candidate order passes every check, and if
// not, why and what correction (if any) would pass.
type Result struct {
	Valid             bool
	Reason            string
	SuggestedPrice    quant.Amount
	SuggestedQuantity quant.Amount
}

// Validator holds the limits for one symbol.
type Validator struct {
	limits Limits
}

// New builds a Validator for the given limits.
func New(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// ValidateOrder checks a single candidate price/quantity pair. mid is
// used to clamp how far the price may be quoted from the current
// midpoint; a zero mid.Amount skips that check (e.g. at startup before
// the first book arrives).
func (v *Validator) ValidateOrder(price, quantity, mid quant.Amount) Result {
	if isNaNOrInf(price.Float64()) || isNaNOrInf(quantity.Float64()) {
		return Result{Valid: false, Reason: "price or quantity is NaN/Inf"}
	}

	if price.LessThan(v.limits.MinPrice) {
		return Result{Valid: false, Reason: "price below minimum", SuggestedPrice: v.limits.MinPrice}
	}
	if v.limits.MaxPrice.LessThan(price) {
		return Result{Valid: false, Reason: "price above maximum", SuggestedPrice: v.limits.MaxPrice}
	}
	if quantity.LessThan(v.limits.MinQuantity) {
		return Result{Valid: false, Reason: "quantity below minimum", SuggestedQuantity: v.limits.MinQuantity}
	}
	if v.limits.MaxQuantity.LessThan(quantity) {
		return Result{Valid: false, Reason: "quantity above maximum", SuggestedQuantity: v.limits.MaxQuantity}
	}

	notional := price.Mul(quantity)
	if notional.LessThan(v.limits.MinNotional) {
		return Result{Valid: false, Reason: "notional below minimum"}
	}
	if v.limits.MaxNotional.LessThan(notional) {
		return Result{Valid: false, Reason: "notional above maximum"}
	}

	if !mid.Zero() {
		deviation := quant.DeviationRatio(price, mid)
		if deviation > v.limits.MaxSpreadPercentage {
			return Result{Valid: false, Reason: "price deviates from mid beyond max spread"}
		}
	}

	return Result{Valid: true}
}

// ValidateQuotePair additionally rejects a bid/ask pair that would cross
// (bid >= ask), which a per-side ValidateOrder call cannot catch on its
// own.
func (v *Validator) ValidateQuotePair(bidPrice, askPrice quant.Amount) Result {
	if !bidPrice.LessThan(askPrice) {
		return Result{Valid: false, Reason: "bid would cross or touch ask"}
	}
	return Result{Valid: true}
}

func isNaNOrInf(f float64) bool {
	return f != f || f > 1e308 || f < -1e308
}

// RoundToVenue rounds a raw price/quantity decimal to the nearest multiple
// of the venue step it is given (tick or lot size), half-to-even.
func RoundToVenue(raw, step quant.Amount) quant.Amount {
	return quant.RoundToStep(raw, step)
}
