package entities

import (
	"math/big"
)

// Fraction is an exact rational number over big integers. All arithmetic
// returns new values; a Fraction is never mutated after construction.
type Fraction struct {
	numerator   *big.Int
	denominator *big.Int
}

func NewFraction(numerator, denominator *big.Int) *Fraction {
	if denominator.Sign() == 0 {
		panic("entities: fraction with zero denominator")
	}
	return &Fraction{
		numerator:   new(big.Int).Set(numerator),
		denominator: new(big.Int).Set(denominator),
	}
}

func NewFractionInt(numerator, denominator int64) *Fraction {
	return NewFraction(big.NewInt(numerator), big.NewInt(denominator))
}

func (f *Fraction) Numerator() *big.Int   { return new(big.Int).Set(f.numerator) }
func (f *Fraction) Denominator() *big.Int { return new(big.Int).Set(f.denominator) }

// Quotient is the integer part of the fraction, truncated toward zero.
func (f *Fraction) Quotient() *big.Int {
	return new(big.Int).Quo(f.numerator, f.denominator)
}

// QuotientCeil rounds the fraction up to the next integer.
func (f *Fraction) QuotientCeil() *big.Int {
	q, r := new(big.Int).QuoRem(f.numerator, f.denominator, new(big.Int))
	if r.Sign() != 0 && f.numerator.Sign()*f.denominator.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func (f *Fraction) Add(other *Fraction) *Fraction {
	if f.denominator.Cmp(other.denominator) == 0 {
		return NewFraction(new(big.Int).Add(f.numerator, other.numerator), f.denominator)
	}
	num := new(big.Int).Add(
		new(big.Int).Mul(f.numerator, other.denominator),
		new(big.Int).Mul(other.numerator, f.denominator),
	)
	return NewFraction(num, new(big.Int).Mul(f.denominator, other.denominator))
}

func (f *Fraction) Subtract(other *Fraction) *Fraction {
	if f.denominator.Cmp(other.denominator) == 0 {
		return NewFraction(new(big.Int).Sub(f.numerator, other.numerator), f.denominator)
	}
	num := new(big.Int).Sub(
		new(big.Int).Mul(f.numerator, other.denominator),
		new(big.Int).Mul(other.numerator, f.denominator),
	)
	return NewFraction(num, new(big.Int).Mul(f.denominator, other.denominator))
}

func (f *Fraction) Multiply(other *Fraction) *Fraction {
	return NewFraction(
		new(big.Int).Mul(f.numerator, other.numerator),
		new(big.Int).Mul(f.denominator, other.denominator),
	)
}

func (f *Fraction) Divide(other *Fraction) *Fraction {
	return NewFraction(
		new(big.Int).Mul(f.numerator, other.denominator),
		new(big.Int).Mul(f.denominator, other.numerator),
	)
}

func (f *Fraction) Invert() *Fraction {
	return NewFraction(f.denominator, f.numerator)
}

// cmp cross-multiplies, normalizing for denominator signs.
func (f *Fraction) cmp(other *Fraction) int {
	a := new(big.Int).Mul(f.numerator, other.denominator)
	b := new(big.Int).Mul(other.numerator, f.denominator)
	if f.denominator.Sign()*other.denominator.Sign() < 0 {
		return b.Cmp(a)
	}
	return a.Cmp(b)
}

func (f *Fraction) LessThan(other *Fraction) bool    { return f.cmp(other) < 0 }
func (f *Fraction) GreaterThan(other *Fraction) bool { return f.cmp(other) > 0 }
func (f *Fraction) EqualTo(other *Fraction) bool     { return f.cmp(other) == 0 }

func (f *Fraction) Sign() int {
	return f.numerator.Sign() * f.denominator.Sign()
}

// ToSignificant renders the fraction as a decimal string with the given
// number of digits after the point, trailing zeros trimmed.
func (f *Fraction) ToSignificant(digits int) string {
	r := new(big.Rat).SetFrac(f.numerator, f.denominator)
	s := r.FloatString(digits)
	if digits > 0 {
		for len(s) > 0 && s[len(s)-1] == '0' {
			s = s[:len(s)-1]
		}
		if len(s) > 0 && s[len(s)-1] == '.' {
			s = s[:len(s)-1]
		}
	}
	return s
}

// Percent is a fraction interpreted as a ratio, e.g. NewPercentInt(5, 100)
// is five percent.
type Percent struct {
	*Fraction
}

func NewPercent(numerator, denominator *big.Int) *Percent {
	return &Percent{NewFraction(numerator, denominator)}
}

func NewPercentInt(numerator, denominator int64) *Percent {
	return &Percent{NewFractionInt(numerator, denominator)}
}

func (p *Percent) Add(other *Percent) *Percent {
	return &Percent{p.Fraction.Add(other.Fraction)}
}

// ToSignificant renders the percent scaled by 100, e.g. "17.2" for 0.172.
func (p *Percent) ToSignificant(digits int) string {
	scaled := p.Fraction.Multiply(NewFractionInt(100, 1))
	return scaled.ToSignificant(digits)
}
