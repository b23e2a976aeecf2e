package router

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/you/swap-router/internal/entities"
	"github.com/you/swap-router/internal/trade"
)

// Swap function fragments of the router contract. Single-hop swaps use the
// fixed-field variants; multi-hop swaps carry a packed path.
const swapABI = `[
    {"inputs":[{"components":[{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],"internalType":"struct IV3SwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
    {"inputs":[{"components":[{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountOut","type":"uint256"},{"internalType":"uint256","name":"amountInMaximum","type":"uint256"},{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],"internalType":"struct IV3SwapRouter.ExactOutputSingleParams","name":"params","type":"tuple"}],"name":"exactOutputSingle","outputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"}],"stateMutability":"payable","type":"function"},
    {"inputs":[{"components":[{"internalType":"bytes","name":"path","type":"bytes"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"}],"internalType":"struct IV3SwapRouter.ExactInputParams","name":"params","type":"tuple"}],"name":"exactInput","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
    {"inputs":[{"components":[{"internalType":"bytes","name":"path","type":"bytes"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountOut","type":"uint256"},{"internalType":"uint256","name":"amountInMaximum","type":"uint256"}],"internalType":"struct IV3SwapRouter.ExactOutputParams","name":"params","type":"tuple"}],"name":"exactOutput","outputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"}],"stateMutability":"payable","type":"function"}
]`

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

type exactOutputParams struct {
	Path            []byte
	Recipient       common.Address
	AmountOut       *big.Int
	AmountInMaximum *big.Int
}

// encodeRouteToPath packs the route's token/fee sequence tightly:
// 20-byte address, 3-byte fee, repeating. For exact-output swaps the path
// is reversed so it reads from the output token backward, the decoding
// order the router expects.
func encodeRouteToPath(route *entities.Route, exactOutput bool) []byte {
	pools := route.Pools()
	path := route.TokenPath()

	buf := make([]byte, 0, 23*len(pools)+20)
	appendFee := func(f entities.FeeAmount) {
		buf = append(buf, byte(f>>16), byte(f>>8), byte(f))
	}

	if exactOutput {
		buf = append(buf, path[len(path)-1].Address().Bytes()...)
		for i := len(pools) - 1; i >= 0; i-- {
			appendFee(pools[i].Fee())
			buf = append(buf, path[i].Address().Bytes()...)
		}
		return buf
	}

	buf = append(buf, path[0].Address().Bytes()...)
	for i, p := range pools {
		appendFee(p.Fee())
		buf = append(buf, path[i+1].Address().Bytes()...)
	}
	return buf
}

// encodeSwapCall encodes one route's swap: the single-hop fixed-field call
// or the multi-hop path call, selected by hop count and trade type.
func (r *SwapRouter) encodeSwapCall(
	s *trade.Swap,
	tradeType trade.Type,
	recipient common.Address,
	amountIn, amountOut *big.Int,
	zeroMinimumOut bool,
) ([]byte, error) {
	minOut := amountOut
	if zeroMinimumOut {
		minOut = new(big.Int)
	}

	pools := s.Route.Pools()
	if len(pools) == 1 {
		path := s.Route.TokenPath()
		if tradeType == trade.ExactInput {
			return r.swap.Pack("exactInputSingle", exactInputSingleParams{
				TokenIn:           path[0].Address(),
				TokenOut:          path[1].Address(),
				Fee:               big.NewInt(int64(pools[0].Fee())),
				Recipient:         recipient,
				AmountIn:          amountIn,
				AmountOutMinimum:  minOut,
				SqrtPriceLimitX96: new(big.Int),
			})
		}
		return r.swap.Pack("exactOutputSingle", exactOutputSingleParams{
			TokenIn:           path[0].Address(),
			TokenOut:          path[1].Address(),
			Fee:               big.NewInt(int64(pools[0].Fee())),
			Recipient:         recipient,
			AmountOut:         amountOut,
			AmountInMaximum:   amountIn,
			SqrtPriceLimitX96: new(big.Int),
		})
	}

	if tradeType == trade.ExactInput {
		return r.swap.Pack("exactInput", exactInputParams{
			Path:             encodeRouteToPath(s.Route, false),
			Recipient:        recipient,
			AmountIn:         amountIn,
			AmountOutMinimum: minOut,
		})
	}
	return r.swap.Pack("exactOutput", exactOutputParams{
		Path:            encodeRouteToPath(s.Route, true),
		Recipient:       recipient,
		AmountOut:       amountOut,
		AmountInMaximum: amountIn,
	})
}
