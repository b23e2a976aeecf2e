package entities

import (
	"errors"
)

var (
	ErrEmptyRoute         = errors.New("entities: route needs at least one pool")
	ErrRouteChainMismatch = errors.New("entities: route pools span multiple chains")
	ErrRouteDisconnected  = errors.New("entities: route pools are not connected")
	ErrRouteInput         = errors.New("entities: input currency not in first pool")
	ErrRouteOutput        = errors.New("entities: output currency not in last pool")
)

// Route is a directed path of pools from an input currency to an output
// currency. Native currencies are carried at the ends and wrapped for the
// pool traversal.
type Route struct {
	pools     []*Pool
	tokenPath []*Token
	input     Currency
	output    Currency
}

func NewRoute(pools []*Pool, input, output Currency) (*Route, error) {
	if len(pools) == 0 {
		return nil, ErrEmptyRoute
	}
	chainID := pools[0].ChainID()
	for _, p := range pools[1:] {
		if p.ChainID() != chainID {
			return nil, ErrRouteChainMismatch
		}
	}
	if input.ChainID() != chainID || !pools[0].InvolvesToken(input.Wrapped()) {
		return nil, ErrRouteInput
	}
	if output.ChainID() != chainID || !pools[len(pools)-1].InvolvesToken(output.Wrapped()) {
		return nil, ErrRouteOutput
	}

	tokenPath := make([]*Token, 0, len(pools)+1)
	tokenPath = append(tokenPath, input.Wrapped())
	for i, p := range pools {
		current := tokenPath[i]
		if !p.InvolvesToken(current) {
			return nil, ErrRouteDisconnected
		}
		next := p.Token0()
		if current.Equal(next) {
			next = p.Token1()
		}
		tokenPath = append(tokenPath, next)
	}

	return &Route{pools: pools, tokenPath: tokenPath, input: input, output: output}, nil
}

func (r *Route) Pools() []*Pool      { return r.pools }
func (r *Route) TokenPath() []*Token { return r.tokenPath }
func (r *Route) Input() Currency     { return r.input }
func (r *Route) Output() Currency    { return r.output }
func (r *Route) ChainID() uint64     { return r.pools[0].ChainID() }

// MidPrice is the spot price of the route: the product of the pool spot
// prices along the token path, re-based onto the route's end currencies.
func (r *Route) MidPrice() (*Price, error) {
	price, err := r.pools[0].PriceOf(r.tokenPath[0])
	if err != nil {
		return nil, err
	}
	for i, p := range r.pools[1:] {
		hop, err := p.PriceOf(r.tokenPath[i+1])
		if err != nil {
			return nil, err
		}
		price, err = price.Multiply(hop)
		if err != nil {
			return nil, err
		}
	}
	return newPriceFromFraction(r.input, r.output, price.Fraction), nil
}

// GetOutputAmount walks the pools forward, quoting each hop. The returned
// amount is denominated in the route's output currency.
func (r *Route) GetOutputAmount(amountIn *CurrencyAmount) (*CurrencyAmount, error) {
	amount := amountIn.Wrapped()
	for _, p := range r.pools {
		var err error
		amount, _, err = p.GetOutputAmount(amount)
		if err != nil {
			return nil, err
		}
	}
	return FromFractionalAmount(r.output, amount.Numerator(), amount.Denominator()), nil
}

// GetInputAmount walks the pools backward from the desired output. The
// returned amount is denominated in the route's input currency.
func (r *Route) GetInputAmount(amountOut *CurrencyAmount) (*CurrencyAmount, error) {
	amount := amountOut.Wrapped()
	for i := len(r.pools) - 1; i >= 0; i-- {
		var err error
		amount, _, err = r.pools[i].GetInputAmount(amount)
		if err != nil {
			return nil, err
		}
	}
	return FromFractionalAmount(r.input, amount.Numerator(), amount.Denominator()), nil
}
