/*
money.go - Fixed-precision monetary value type

PURPOSE:
  Money is the single arithmetic type used by every financial computation
  in the engine. It wraps decimal.Decimal with a fixed scale of two
  decimal places (the currency minor unit) so that invoice totals and
  payroll sums never drift the way binary floats do.

ROUNDING:
  All deriving operations (multiply by quantity, percentage-of) round the
  result half-up to the minor unit. Amounts in this domain are never
  negative, so decimal's round-half-away-from-zero is exactly half-up.

CONSTRUCTION:
  MoneyFromMinorUnits(4500)  -> 45.00
  ParseMoney("45.00")        -> 45.00
  ParseMoney("1.005")        -> ErrInvalidAmount (beyond minor unit)
  ParseMoney("1e20")         -> ErrInvalidAmount (beyond 15 integer digits)

  Arithmetic results may transiently be negative (net salary checks
  subtract deductions from gross); validation rejects negative amounts
  where the document model requires non-negativity.

SEE ALSO:
  - derive.go: Uses Money for all derived fields
  - validate.go: Enforces non-negativity per field
*/
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnitScale is the number of decimal places in the currency minor unit.
const minorUnitScale = 2

// maxMoney bounds the integer part to 15 digits.
var maxMoney = decimal.New(1, 15)

// Money is an immutable fixed-precision monetary value (scale 2).
type Money struct {
	d decimal.Decimal
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// ZeroMoney returns 0.00.
func ZeroMoney() Money {
	return Money{d: decimal.Zero}
}

// MoneyFromMinorUnits builds a Money from integer minor units (cents/paise).
func MoneyFromMinorUnits(n int64) Money {
	return Money{d: decimal.New(n, -minorUnitScale)}
}

// ParseMoney builds a Money from a decimal string.
// Fails with ErrInvalidAmount if the value carries more precision than the
// minor unit or exceeds the representable magnitude.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.Equal(d.Round(minorUnitScale)) {
		return Money{}, fmt.Errorf("%w: %q exceeds minor-unit precision", ErrInvalidAmount, s)
	}
	if d.Abs().GreaterThanOrEqual(maxMoney) {
		return Money{}, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return Money{d: d}, nil
}

// MustMoney is ParseMoney that panics. For constants and tests only.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// =============================================================================
// ARITHMETIC - every result is rounded to the minor unit
// =============================================================================

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// MulQuantity multiplies by a unitless quantity, rounding half-up.
func (m Money) MulQuantity(q decimal.Decimal) Money {
	return Money{d: m.d.Mul(q).Round(minorUnitScale)}
}

// Percent returns rate% of m, rounding half-up.
// Exact up to the final rounding: value*rate is computed, then shifted by
// two places rather than divided.
func (m Money) Percent(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate).Shift(-2).Round(minorUnitScale)}
}

// =============================================================================
// COMPARISON - exact, no tolerance
// =============================================================================

func (m Money) Equal(o Money) bool    { return m.d.Equal(o.d) }
func (m Money) Cmp(o Money) int       { return m.d.Cmp(o.d) }
func (m Money) IsZero() bool          { return m.d.IsZero() }
func (m Money) IsNegative() bool      { return m.d.IsNegative() }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }

// Decimal exposes the underlying decimal for storage adapters.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Float64 is a lossy view used only for range validation.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// String renders with exactly two decimal places, e.g. "300.00".
func (m Money) String() string {
	return m.d.StringFixed(minorUnitScale)
}

// =============================================================================
// JSON - serialized as a fixed-point string to keep precision on the wire
// =============================================================================

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*m = ZeroMoney()
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
