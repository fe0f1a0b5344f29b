// Package fixedpoint implements exact integer-plus-scale token amounts.
// A Decimal is magnitude / 10^scale; arithmetic never passes through
// floating point, and values of different scale must be rescaled
// explicitly before they can be combined.
package fixedpoint

import (
	"fmt"
	"math/big"
	"strings"
)

// RoundingMode selects how Div and Rescale treat a lost remainder.
type RoundingMode int

const (
	// RoundDown truncates toward zero.
	RoundDown RoundingMode = iota
	// RoundHalfUp rounds a remainder of half or more away from zero.
	RoundHalfUp
)

// Decimal is an immutable fixed-point value. The zero value is 0 at scale 0.
type Decimal struct {
	mag   *big.Int
	scale uint32
}

var bigTen = big.NewInt(10)

func pow10(n uint32) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// Zero returns 0 at the given scale.
func Zero(scale uint32) Decimal {
	return Decimal{mag: new(big.Int), scale: scale}
}

// FromBigInt builds a Decimal from a raw magnitude. The magnitude is copied,
// so later mutation of mag does not leak into the value.
func FromBigInt(mag *big.Int, scale uint32) Decimal {
	if mag == nil {
		return Zero(scale)
	}
	return Decimal{mag: new(big.Int).Set(mag), scale: scale}
}

// FromInt64 builds a Decimal representing v / 10^scale.
func FromInt64(v int64, scale uint32) Decimal {
	return Decimal{mag: big.NewInt(v), scale: scale}
}

// FromString parses a plain decimal string ("123", "-0.25") at the given
// scale. Strings with more fractional digits than the scale can hold are
// rejected rather than rounded.
func FromString(s string, scale uint32) (Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Decimal{}, fmt.Errorf("fixedpoint: empty decimal string")
	}

	neg := false
	switch raw[0] {
	case '-':
		neg = true
		raw = raw[1:]
	case '+':
		raw = raw[1:]
	}

	intPart := raw
	fracPart := ""
	if dot := strings.IndexByte(raw, '.'); dot >= 0 {
		intPart = raw[:dot]
		fracPart = raw[dot+1:]
	}
	if intPart == "" && fracPart == "" {
		return Decimal{}, fmt.Errorf("fixedpoint: invalid decimal string %q", s)
	}
	if intPart == "" {
		intPart = "0"
	}
	if uint32(len(fracPart)) > scale {
		return Decimal{}, fmt.Errorf("fixedpoint: %q has %d fractional digits, scale is %d", s, len(fracPart), scale)
	}

	digits := intPart + fracPart + strings.Repeat("0", int(scale)-len(fracPart))
	mag, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("fixedpoint: invalid decimal string %q", s)
	}
	if neg {
		mag.Neg(mag)
	}
	return Decimal{mag: mag, scale: scale}, nil
}

// Scale returns the number of fractional digits the value carries.
func (d Decimal) Scale() uint32 { return d.scale }

// BigInt returns a copy of the raw magnitude.
func (d Decimal) BigInt() *big.Int {
	if d.mag == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(d.mag)
}

func (d Decimal) magnitude() *big.Int {
	if d.mag == nil {
		return new(big.Int)
	}
	return d.mag
}

// IsZero reports whether the value is exactly zero.
func (d Decimal) IsZero() bool { return d.magnitude().Sign() == 0 }

// Sign returns -1, 0 or +1.
func (d Decimal) Sign() int { return d.magnitude().Sign() }

// Add returns d + o. The operands must share a scale.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	if d.scale != o.scale {
		return Decimal{}, fmt.Errorf("fixedpoint: scale mismatch %d vs %d", d.scale, o.scale)
	}
	return Decimal{mag: new(big.Int).Add(d.magnitude(), o.magnitude()), scale: d.scale}, nil
}

// Sub returns d - o. The operands must share a scale.
func (d Decimal) Sub(o Decimal) (Decimal, error) {
	if d.scale != o.scale {
		return Decimal{}, fmt.Errorf("fixedpoint: scale mismatch %d vs %d", d.scale, o.scale)
	}
	return Decimal{mag: new(big.Int).Sub(d.magnitude(), o.magnitude()), scale: d.scale}, nil
}

// Mul returns d * o at scale d.Scale()+o.Scale(). The product is exact;
// callers rescale explicitly when they need a narrower representation.
func (d Decimal) Mul(o Decimal) Decimal {
	return Decimal{
		mag:   new(big.Int).Mul(d.magnitude(), o.magnitude()),
		scale: d.scale + o.scale,
	}
}

// Div returns d / o at the requested scale, rounding the lost remainder
// according to mode. Division by zero is an error.
func (d Decimal) Div(o Decimal, scale uint32, mode RoundingMode) (Decimal, error) {
	if o.IsZero() {
		return Decimal{}, fmt.Errorf("fixedpoint: division by zero")
	}
	// d/o = d.mag * 10^(scale + o.scale - d.scale) / o.mag
	num := new(big.Int).Set(d.magnitude())
	den := new(big.Int).Set(o.magnitude())
	exp := int64(scale) + int64(o.scale) - int64(d.scale)
	if exp >= 0 {
		num.Mul(num, pow10(uint32(exp)))
	} else {
		den.Mul(den, pow10(uint32(-exp)))
	}
	return Decimal{mag: quoRound(num, den, mode), scale: scale}, nil
}

// Rescale returns the value at a different scale. Widening is exact;
// narrowing rounds according to mode.
func (d Decimal) Rescale(scale uint32, mode RoundingMode) Decimal {
	if scale == d.scale {
		return Decimal{mag: d.BigInt(), scale: scale}
	}
	if scale > d.scale {
		return Decimal{
			mag:   new(big.Int).Mul(d.magnitude(), pow10(scale-d.scale)),
			scale: scale,
		}
	}
	return Decimal{mag: quoRound(d.magnitude(), pow10(d.scale-scale), mode), scale: scale}
}

// Cmp compares two values of the same scale.
func (d Decimal) Cmp(o Decimal) (int, error) {
	if d.scale != o.scale {
		return 0, fmt.Errorf("fixedpoint: scale mismatch %d vs %d", d.scale, o.scale)
	}
	return d.magnitude().Cmp(o.magnitude()), nil
}

// String renders the value with exactly Scale() fractional digits.
func (d Decimal) String() string {
	return d.text(d.scale)
}

// StringFixed renders the value with exactly precision fractional digits,
// truncating toward zero when precision is below the scale.
func (d Decimal) StringFixed(precision uint32) string {
	if precision == d.scale {
		return d.text(precision)
	}
	return d.Rescale(precision, RoundDown).text(precision)
}

// MarshalJSON renders the value as a quoted decimal string; amounts never
// appear as JSON numbers.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d Decimal) text(precision uint32) string {
	mag := d.magnitude()
	neg := mag.Sign() < 0
	digits := new(big.Int).Abs(mag).String()
	if precision == 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	if uint32(len(digits)) <= precision {
		digits = strings.Repeat("0", int(precision)-len(digits)+1) + digits
	}
	cut := len(digits) - int(precision)
	out := digits[:cut] + "." + digits[cut:]
	if neg {
		return "-" + out
	}
	return out
}

// quoRound divides num by den with the given rounding mode, handling
// negative numerators symmetrically (round half away from zero).
func quoRound(num, den *big.Int, mode RoundingMode) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if mode == RoundHalfUp && r.Sign() != 0 {
		doubled := new(big.Int).Lsh(new(big.Int).Abs(r), 1)
		if doubled.Cmp(new(big.Int).Abs(den)) >= 0 {
			if (num.Sign() < 0) != (den.Sign() < 0) {
				q.Sub(q, big.NewInt(1))
			} else {
				q.Add(q, big.NewInt(1))
			}
		}
	}
	return q
}
