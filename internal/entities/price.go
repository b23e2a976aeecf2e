package entities

import "math/big"

// Price of quoteCurrency denominated in baseCurrency, both in raw units.
// The underlying fraction is quoteAmount/baseAmount.
type Price struct {
	baseCurrency  Currency
	quoteCurrency Currency
	*Fraction
}

// NewPrice takes the amounts in the same order as the execution they
// describe: denominator base units buy numerator quote units.
func NewPrice(base, quote Currency, denominator, numerator *big.Int) *Price {
	return &Price{
		baseCurrency:  base,
		quoteCurrency: quote,
		Fraction:      NewFraction(numerator, denominator),
	}
}

func newPriceFromFraction(base, quote Currency, f *Fraction) *Price {
	return &Price{baseCurrency: base, quoteCurrency: quote, Fraction: f}
}

func (p *Price) BaseCurrency() Currency  { return p.baseCurrency }
func (p *Price) QuoteCurrency() Currency { return p.quoteCurrency }

func (p *Price) Invert() *Price {
	return newPriceFromFraction(p.quoteCurrency, p.baseCurrency, p.Fraction.Invert())
}

// Multiply chains two prices; the other price must be denominated in this
// price's quote currency.
func (p *Price) Multiply(other *Price) (*Price, error) {
	if !p.quoteCurrency.Equal(other.baseCurrency) {
		return nil, ErrCurrencyMismatch
	}
	return newPriceFromFraction(p.baseCurrency, other.quoteCurrency, p.Fraction.Multiply(other.Fraction)), nil
}

// Quote converts an amount of the base currency to the quote currency at
// this price, keeping full precision.
func (p *Price) Quote(amount *CurrencyAmount) (*CurrencyAmount, error) {
	if !amount.Currency().Equal(p.baseCurrency) {
		return nil, ErrCurrencyMismatch
	}
	scaled := p.Fraction.Multiply(amount.Fraction)
	return &CurrencyAmount{currency: p.quoteCurrency, Fraction: scaled}, nil
}

func (p *Price) EqualTo(other *Price) bool {
	return p.baseCurrency.Equal(other.baseCurrency) &&
		p.quoteCurrency.Equal(other.quoteCurrency) &&
		p.Fraction.EqualTo(other.Fraction)
}
