package entities

import (
	"errors"
	"math/big"
)

// FeeAmount is a pool fee tier in hundredths of a basis point, so 3000 is
// a 0.30% fee.
type FeeAmount uint32

const (
	FeeLow    FeeAmount = 500
	FeeMedium FeeAmount = 3000
	FeeHigh   FeeAmount = 10000
)

const feeDenominator = 1_000_000

var (
	ErrTokenNotInvolved     = errors.New("entities: token not involved in pool")
	ErrInsufficientReserves = errors.New("entities: insufficient reserves")
	ErrInsufficientInput    = errors.New("entities: insufficient input amount")
	ErrIdenticalTokens      = errors.New("entities: identical tokens")
	ErrChainMismatch        = errors.New("entities: tokens on different chains")
	ErrNativeReserve        = errors.New("entities: pool reserves must be token amounts")
)

// Pool is a two-token liquidity pool quoted with deterministic
// constant-product math. Quoting never mutates the pool; the post-swap
// state is returned alongside the quoted amount.
type Pool struct {
	token0   *Token
	token1   *Token
	fee      FeeAmount
	reserve0 *big.Int
	reserve1 *big.Int
}

// NewPool sorts the two reserve amounts into token0/token1 order by address.
func NewPool(amountA, amountB *CurrencyAmount, fee FeeAmount) (*Pool, error) {
	ta, okA := amountA.Currency().(*Token)
	tb, okB := amountB.Currency().(*Token)
	if !okA || !okB {
		return nil, ErrNativeReserve
	}
	if ta.Equal(tb) {
		return nil, ErrIdenticalTokens
	}
	if ta.ChainID() != tb.ChainID() {
		return nil, ErrChainMismatch
	}
	if !ta.SortsBefore(tb) {
		amountA, amountB = amountB, amountA
		ta, tb = tb, ta
	}
	return &Pool{
		token0:   ta,
		token1:   tb,
		fee:      fee,
		reserve0: amountA.Quotient(),
		reserve1: amountB.Quotient(),
	}, nil
}

func (p *Pool) Token0() *Token     { return p.token0 }
func (p *Pool) Token1() *Token     { return p.token1 }
func (p *Pool) Fee() FeeAmount     { return p.fee }
func (p *Pool) Reserve0() *big.Int { return new(big.Int).Set(p.reserve0) }
func (p *Pool) Reserve1() *big.Int { return new(big.Int).Set(p.reserve1) }

func (p *Pool) ChainID() uint64 { return p.token0.ChainID() }

func (p *Pool) InvolvesToken(t *Token) bool {
	return p.token0.Equal(t) || p.token1.Equal(t)
}

// Token0Price is the spot price of token1 denominated in token0 terms,
// i.e. how much token1 one unit of token0 buys.
func (p *Pool) Token0Price() *Price {
	return NewPrice(p.token0, p.token1, p.reserve0, p.reserve1)
}

func (p *Pool) Token1Price() *Price {
	return NewPrice(p.token1, p.token0, p.reserve1, p.reserve0)
}

// PriceOf returns the spot price with the given token as base.
func (p *Pool) PriceOf(t *Token) (*Price, error) {
	switch {
	case p.token0.Equal(t):
		return p.Token0Price(), nil
	case p.token1.Equal(t):
		return p.Token1Price(), nil
	default:
		return nil, ErrTokenNotInvolved
	}
}

func (p *Pool) reservesFor(input *Token) (reserveIn, reserveOut *big.Int, out *Token, err error) {
	switch {
	case p.token0.Equal(input):
		return p.reserve0, p.reserve1, p.token1, nil
	case p.token1.Equal(input):
		return p.reserve1, p.reserve0, p.token0, nil
	default:
		return nil, nil, nil, ErrTokenNotInvolved
	}
}

// GetOutputAmount quotes a swap of amountIn against the pool and returns
// the output amount together with the pool state after the swap.
func (p *Pool) GetOutputAmount(amountIn *CurrencyAmount) (*CurrencyAmount, *Pool, error) {
	tokenIn, ok := amountIn.Currency().(*Token)
	if !ok {
		return nil, nil, ErrNativeReserve
	}
	reserveIn, reserveOut, tokenOut, err := p.reservesFor(tokenIn)
	if err != nil {
		return nil, nil, err
	}
	in := amountIn.Quotient()
	if in.Sign() <= 0 {
		return nil, nil, ErrInsufficientInput
	}

	// out = reserveOut * in*(D-fee) / (reserveIn*D + in*(D-fee))
	inWithFee := new(big.Int).Mul(in, big.NewInt(feeDenominator-int64(p.fee)))
	num := new(big.Int).Mul(inWithFee, reserveOut)
	den := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(feeDenominator)), inWithFee)
	out := num.Quo(num, den)

	next := p.updated(tokenIn, in, out)
	return FromRawAmount(tokenOut, out), next, nil
}

// GetInputAmount quotes the input required to withdraw amountOut, rounded
// up so the quoted input always satisfies the pool.
func (p *Pool) GetInputAmount(amountOut *CurrencyAmount) (*CurrencyAmount, *Pool, error) {
	tokenOut, ok := amountOut.Currency().(*Token)
	if !ok {
		return nil, nil, ErrNativeReserve
	}
	reserveOut, reserveIn, tokenIn, err := p.reservesFor(tokenOut)
	if err != nil {
		return nil, nil, err
	}
	out := amountOut.Quotient()
	if out.Sign() <= 0 {
		return nil, nil, ErrInsufficientInput
	}
	if out.Cmp(reserveOut) >= 0 {
		return nil, nil, ErrInsufficientReserves
	}

	// in = reserveIn*out*D / ((reserveOut-out)*(D-fee)) + 1
	num := new(big.Int).Mul(new(big.Int).Mul(reserveIn, out), big.NewInt(feeDenominator))
	den := new(big.Int).Mul(new(big.Int).Sub(reserveOut, out), big.NewInt(feeDenominator-int64(p.fee)))
	in := num.Quo(num, den)
	in.Add(in, big.NewInt(1))

	next := p.updated(tokenIn, in, out)
	return FromRawAmount(tokenIn, in), next, nil
}

func (p *Pool) updated(tokenIn *Token, in, out *big.Int) *Pool {
	next := &Pool{token0: p.token0, token1: p.token1, fee: p.fee}
	if p.token0.Equal(tokenIn) {
		next.reserve0 = new(big.Int).Add(p.reserve0, in)
		next.reserve1 = new(big.Int).Sub(p.reserve1, out)
	} else {
		next.reserve0 = new(big.Int).Sub(p.reserve0, out)
		next.reserve1 = new(big.Int).Add(p.reserve1, in)
	}
	return next
}
