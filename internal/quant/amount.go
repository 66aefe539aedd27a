// Package quant holds fixed-point price/quantity types used across the
// market-maker so venue-visible values never touch binary floating point.
package quant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a scaled-integer decimal: Mantissa * 10^-Precision.
// Amounts with different Precision compare by true decimal value (Cmp);
// Add, Sub and Mul return a result at the receiver's precision.
type Amount struct {
	Mantissa  int64
	Precision int32
}

// Zero reports whether the amount is the zero value at its own precision.
func (a Amount) Zero() bool { return a.Mantissa == 0 }

// Float64 converts to float64. Only ever used for ratio/deviation display,
// never re-serialized back to the venue.
func (a Amount) Float64() float64 {
	return a.Decimal().InexactFloat64()
}

// Decimal lifts the scaled integer into an exact decimal.Decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(a.Mantissa, -a.Precision)
}

// FromDecimal lowers a decimal.Decimal back to a scaled Amount at the
// given precision, rounding half-to-even (banker's rounding) the way
// venue tick/lot rounding is specified to behave.
func FromDecimal(d decimal.Decimal, precision int32) Amount {
	scaled := d.Shift(precision).RoundBank(0)
	return Amount{Mantissa: scaled.IntPart(), Precision: precision}
}

// ParseAmount parses a decimal string ("12.34", "0.00100000") at the given
// precision without ever routing through float64. Extra fractional digits
// beyond precision are truncated, not rounded, to preserve exactly what
// the caller/venue already formatted.
func ParseAmount(s string, precision int32) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("quant: empty amount string")
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	mantissaInt, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("quant: invalid integer part %q: %w", intPart, err)
	}

	if len(fracPart) > int(precision) {
		fracPart = fracPart[:precision]
	}
	for len(fracPart) < int(precision) {
		fracPart += "0"
	}

	var fracVal int64
	if fracPart != "" {
		fracVal, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return Amount{}, fmt.Errorf("quant: invalid fractional part %q: %w", fracPart, err)
		}
	}

	pow := pow10(precision)
	mantissa := mantissaInt*pow + fracVal
	if neg {
		mantissa = -mantissa
	}
	return Amount{Mantissa: mantissa, Precision: precision}, nil
}

// ParseAmountAuto parses a decimal string at whatever precision its own
// fractional part carries, for decoding venue responses whose precision
// isn't known up front (order status/open-orders payloads).
func ParseAmountAuto(s string) (Amount, error) {
	trimmed := strings.TrimPrefix(s, "-")
	_, fracPart, _ := strings.Cut(trimmed, ".")
	return ParseAmount(s, int32(len(fracPart)))
}

// MustParseAmount is ParseAmount but panics on error; reserved for
// constants and tests where the input is known-good.
func MustParseAmount(s string, precision int32) Amount {
	a, err := ParseAmount(s, precision)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount as the exact decimal string a venue expects.
func (a Amount) String() string {
	return a.Decimal().StringFixed(a.Precision)
}

func pow10(n int32) int64 {
	p := int64(1)
	for i := int32(0); i < n; i++ {
		p *= 10
	}
	return p
}

// Add returns a+b, rescaling b to a's precision first if they differ.
func (a Amount) Add(b Amount) Amount {
	return FromDecimal(a.Decimal().Add(b.Decimal()), a.Precision)
}

// Sub returns a-b, rescaling b to a's precision first if they differ.
func (a Amount) Sub(b Amount) Amount {
	return FromDecimal(a.Decimal().Sub(b.Decimal()), a.Precision)
}

// Mul returns a*b as an exact decimal at a's precision (used for notional).
func (a Amount) Mul(b Amount) Amount {
	return FromDecimal(a.Decimal().Mul(b.Decimal()), a.Precision)
}

// Cmp compares two amounts by true decimal value regardless of precision.
func (a Amount) Cmp(b Amount) int {
	return a.Decimal().Cmp(b.Decimal())
}

// LessThan is a readability helper over Cmp.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// RoundToStep rounds the amount to the nearest multiple of step
// (tick size or lot step), half-to-even, at the step's own precision.
func RoundToStep(value, step Amount) Amount {
	if step.Zero() {
		return value
	}
	ratio := value.Decimal().Div(step.Decimal())
	roundedSteps := ratio.RoundBank(0)
	return FromDecimal(roundedSteps.Mul(step.Decimal()), step.Precision)
}

// DeviationRatio returns |a-b|/b as a plain float64, purely for
// hysteresis/deviation-from-mid comparisons against a configured
// threshold — never fed back into a venue call.
func DeviationRatio(a, b Amount) float64 {
	if b.Zero() {
		return 0
	}
	diff := a.Decimal().Sub(b.Decimal()).Abs()
	ratio := diff.Div(b.Decimal())
	f, _ := ratio.Float64()
	return f
}
