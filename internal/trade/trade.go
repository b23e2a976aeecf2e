// Package trade merges one or more swap routes that share a direction and a
// currency pair into a single logical trade with aggregate price and
// slippage semantics.
package trade

import (
	"errors"
	"math/big"
	"sync"

	"github.com/you/swap-router/internal/entities"
)

var (
	ErrNoSwaps                  = errors.New("trade: trade needs at least one swap")
	ErrInputCurrencyMismatch    = errors.New("trade: routes disagree on input currency")
	ErrOutputCurrencyMismatch   = errors.New("trade: routes disagree on output currency")
	ErrDuplicatePools           = errors.New("trade: pool used by more than one route")
	ErrInvalidSlippageTolerance = errors.New("trade: slippage tolerance must not be negative")
)

// Type is the trade direction: which side of the exchange is fixed.
type Type int

const (
	ExactInput Type = iota
	ExactOutput
)

// Swap is one route's realized input/output pairing. Swaps are owned by a
// Trade and immutable after construction.
type Swap struct {
	Route        *entities.Route
	InputAmount  *entities.CurrencyAmount
	OutputAmount *entities.CurrencyAmount
}

// RouteAmount pairs a route with the fixed-side amount used to quote it.
type RouteAmount struct {
	Route  *entities.Route
	Amount *entities.CurrencyAmount
}

// Trade is one or more swaps sharing a currency pair and direction.
// It is immutable; all methods are reads, with the lazily memoized
// price-impact computed at most once.
type Trade struct {
	swaps     []*Swap
	tradeType Type

	inputAmount  *entities.CurrencyAmount
	outputAmount *entities.CurrencyAmount

	execOnce  sync.Once
	execPrice *entities.Price

	impactOnce sync.Once
	impact     *entities.Percent
	impactErr  error
}

// New builds a trade from pre-quoted swaps, enforcing the construction
// invariants: one shared input currency, one shared output currency, and no
// pool instance reused across swaps.
func New(swaps []*Swap, tradeType Type) (*Trade, error) {
	if len(swaps) == 0 {
		return nil, ErrNoSwaps
	}

	inputCurrency := swaps[0].InputAmount.Currency()
	outputCurrency := swaps[0].OutputAmount.Currency()
	seen := make(map[*entities.Pool]struct{})
	for _, s := range swaps {
		if !s.InputAmount.Currency().Equal(inputCurrency) {
			return nil, ErrInputCurrencyMismatch
		}
		if !s.OutputAmount.Currency().Equal(outputCurrency) {
			return nil, ErrOutputCurrencyMismatch
		}
		for _, p := range s.Route.Pools() {
			if _, dup := seen[p]; dup {
				return nil, ErrDuplicatePools
			}
			seen[p] = struct{}{}
		}
	}

	inputAmount := entities.FromRawAmountInt(inputCurrency, 0)
	outputAmount := entities.FromRawAmountInt(outputCurrency, 0)
	var err error
	for _, s := range swaps {
		if inputAmount, err = inputAmount.Add(s.InputAmount); err != nil {
			return nil, err
		}
		if outputAmount, err = outputAmount.Add(s.OutputAmount); err != nil {
			return nil, err
		}
	}

	return &Trade{
		swaps:        swaps,
		tradeType:    tradeType,
		inputAmount:  inputAmount,
		outputAmount: outputAmount,
	}, nil
}

// FromRoute quotes a single route into a one-swap trade. The supplied
// amount fixes the input side for ExactInput and the output side for
// ExactOutput; the counter-amount comes from the route's quoter.
func FromRoute(route *entities.Route, amount *entities.CurrencyAmount, tradeType Type) (*Trade, error) {
	swap, err := quoteRoute(route, amount, tradeType)
	if err != nil {
		return nil, err
	}
	return New([]*Swap{swap}, tradeType)
}

// FromRoutes quotes each route/amount pair and merges them into one trade.
func FromRoutes(routeAmounts []RouteAmount, tradeType Type) (*Trade, error) {
	swaps := make([]*Swap, 0, len(routeAmounts))
	for _, ra := range routeAmounts {
		swap, err := quoteRoute(ra.Route, ra.Amount, tradeType)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, swap)
	}
	return New(swaps, tradeType)
}

func quoteRoute(route *entities.Route, amount *entities.CurrencyAmount, tradeType Type) (*Swap, error) {
	switch tradeType {
	case ExactInput:
		if !amount.Currency().Equal(route.Input()) {
			return nil, ErrInputCurrencyMismatch
		}
		out, err := route.GetOutputAmount(amount)
		if err != nil {
			return nil, err
		}
		return &Swap{Route: route, InputAmount: amount, OutputAmount: out}, nil
	default:
		if !amount.Currency().Equal(route.Output()) {
			return nil, ErrOutputCurrencyMismatch
		}
		in, err := route.GetInputAmount(amount)
		if err != nil {
			return nil, err
		}
		return &Swap{Route: route, InputAmount: in, OutputAmount: amount}, nil
	}
}

func (t *Trade) Swaps() []*Swap { return t.swaps }
func (t *Trade) TradeType() Type { return t.tradeType }

func (t *Trade) Routes() []*entities.Route {
	routes := make([]*entities.Route, len(t.swaps))
	for i, s := range t.swaps {
		routes[i] = s.Route
	}
	return routes
}

// InputAmount is the sum of every swap's input, in the shared input currency.
func (t *Trade) InputAmount() *entities.CurrencyAmount { return t.inputAmount }

// OutputAmount is the sum of every swap's output, in the shared output currency.
func (t *Trade) OutputAmount() *entities.CurrencyAmount { return t.outputAmount }

// ExecutionPrice is the ratio of the aggregate output to the aggregate input.
func (t *Trade) ExecutionPrice() *entities.Price {
	t.execOnce.Do(func() {
		t.execPrice = entities.NewPrice(
			t.inputAmount.Currency(),
			t.outputAmount.Currency(),
			t.inputAmount.Quotient(),
			t.outputAmount.Quotient(),
		)
	})
	return t.execPrice
}

// PriceImpact is the fractional shortfall of the realized output against
// the output implied by each route's spot mid price. It is computed once
// and cached for the life of the trade.
func (t *Trade) PriceImpact() (*entities.Percent, error) {
	t.impactOnce.Do(func() {
		var spotOutput *entities.CurrencyAmount
		for _, s := range t.swaps {
			mid, err := s.Route.MidPrice()
			if err != nil {
				t.impactErr = err
				return
			}
			quoted, err := mid.Quote(s.InputAmount)
			if err != nil {
				t.impactErr = err
				return
			}
			if spotOutput == nil {
				spotOutput = quoted
				continue
			}
			if spotOutput, err = spotOutput.Add(quoted); err != nil {
				t.impactErr = err
				return
			}
		}
		shortfall, err := spotOutput.Subtract(t.outputAmount)
		if err != nil {
			t.impactErr = err
			return
		}
		t.impact = &entities.Percent{Fraction: shortfall.Fraction.Divide(spotOutput.Fraction)}
	})
	return t.impact, t.impactErr
}

// MinimumAmountOut bounds the output under the given slippage tolerance.
// ExactOutput trades return the fixed output unchanged. The optional amount
// overrides the trade aggregate, used when bounding a single swap.
func (t *Trade) MinimumAmountOut(slippageTolerance *entities.Percent, amountOut ...*entities.CurrencyAmount) (*entities.CurrencyAmount, error) {
	if slippageTolerance.Sign() < 0 {
		return nil, ErrInvalidSlippageTolerance
	}
	out := t.outputAmount
	if len(amountOut) > 0 && amountOut[0] != nil {
		out = amountOut[0]
	}
	if t.tradeType == ExactOutput {
		return out, nil
	}
	// out / (1 + tolerance), floored on the raw amount
	adjusted := entities.NewFractionInt(1, 1).
		Add(slippageTolerance.Fraction).
		Invert().
		Multiply(entities.NewFraction(out.Quotient(), big.NewInt(1)))
	return entities.FromRawAmount(out.Currency(), adjusted.Quotient()), nil
}

// MaximumAmountIn bounds the input under the given slippage tolerance.
// ExactInput trades return the fixed input unchanged.
func (t *Trade) MaximumAmountIn(slippageTolerance *entities.Percent, amountIn ...*entities.CurrencyAmount) (*entities.CurrencyAmount, error) {
	if slippageTolerance.Sign() < 0 {
		return nil, ErrInvalidSlippageTolerance
	}
	in := t.inputAmount
	if len(amountIn) > 0 && amountIn[0] != nil {
		in = amountIn[0]
	}
	if t.tradeType == ExactInput {
		return in, nil
	}
	// in * (1 + tolerance), rounded up on the raw amount
	adjusted := entities.NewFractionInt(1, 1).
		Add(slippageTolerance.Fraction).
		Multiply(entities.NewFraction(in.Quotient(), big.NewInt(1)))
	return entities.FromRawAmount(in.Currency(), adjusted.QuotientCeil()), nil
}

// WorstExecutionPrice is the execution price at the edge of the slippage
// bound; with zero tolerance it equals ExecutionPrice exactly.
func (t *Trade) WorstExecutionPrice(slippageTolerance *entities.Percent) (*entities.Price, error) {
	maxIn, err := t.MaximumAmountIn(slippageTolerance)
	if err != nil {
		return nil, err
	}
	minOut, err := t.MinimumAmountOut(slippageTolerance)
	if err != nil {
		return nil, err
	}
	return entities.NewPrice(
		t.inputAmount.Currency(),
		t.outputAmount.Currency(),
		maxIn.Quotient(),
		minOut.Quotient(),
	), nil
}
