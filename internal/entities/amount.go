package entities

import (
	"errors"
	"math/big"
)

// ErrCurrencyMismatch is returned when combining amounts or prices of
// different currencies.
var ErrCurrencyMismatch = errors.New("entities: currency mismatch")

// CurrencyAmount is an exact fractional amount of a currency, held in the
// currency's raw (smallest) units.
type CurrencyAmount struct {
	currency Currency
	*Fraction
}

func FromRawAmount(currency Currency, raw *big.Int) *CurrencyAmount {
	return &CurrencyAmount{currency: currency, Fraction: NewFraction(raw, big.NewInt(1))}
}

func FromRawAmountInt(currency Currency, raw int64) *CurrencyAmount {
	return FromRawAmount(currency, big.NewInt(raw))
}

func FromFractionalAmount(currency Currency, numerator, denominator *big.Int) *CurrencyAmount {
	return &CurrencyAmount{currency: currency, Fraction: NewFraction(numerator, denominator)}
}

func (a *CurrencyAmount) Currency() Currency { return a.currency }

func (a *CurrencyAmount) Add(other *CurrencyAmount) (*CurrencyAmount, error) {
	if !a.currency.Equal(other.currency) {
		return nil, ErrCurrencyMismatch
	}
	sum := a.Fraction.Add(other.Fraction)
	return &CurrencyAmount{currency: a.currency, Fraction: sum}, nil
}

func (a *CurrencyAmount) Subtract(other *CurrencyAmount) (*CurrencyAmount, error) {
	if !a.currency.Equal(other.currency) {
		return nil, ErrCurrencyMismatch
	}
	diff := a.Fraction.Subtract(other.Fraction)
	return &CurrencyAmount{currency: a.currency, Fraction: diff}, nil
}

// MultiplyFraction scales the amount, keeping the currency.
func (a *CurrencyAmount) MultiplyFraction(f *Fraction) *CurrencyAmount {
	return &CurrencyAmount{currency: a.currency, Fraction: a.Fraction.Multiply(f)}
}

// Wrapped re-expresses a native amount in the wrapped token; token amounts
// are returned unchanged.
func (a *CurrencyAmount) Wrapped() *CurrencyAmount {
	if !a.currency.IsNative() {
		return a
	}
	return &CurrencyAmount{currency: a.currency.Wrapped(), Fraction: a.Fraction}
}
