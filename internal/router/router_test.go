package router

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/swap-router/internal/entities"
	"github.com/you/swap-router/internal/multicall"
	"github.com/you/swap-router/internal/trade"
)

// Selectors of the router functions, pinned so an ABI edit that changes a
// signature fails loudly.
const (
	exactInputSingleSig  = "0x04e45aaf"
	exactOutputSingleSig = "0x5023b4df"
	exactInputSig        = "0xb858183f"
	exactOutputSig       = "0x09b81346"
	refundETHSig         = "0x12210e8a"
	unwrapWETH9Sig       = "0x49404b7c"
	sweepTokenSig        = "0xdf2ab5bb"
	sweepTokenWithFeeSig = "0xe0e189a0"
	selfPermitSig        = "0xf3995c67"
)

var (
	ether = entities.EtherOnChain(1)
	weth  = entities.WETH9[1]

	token0 = entities.NewToken(1, common.HexToAddress("0x0000000000000000000000000000000000000001"), 18, "t0", "token0")
	token1 = entities.NewToken(1, common.HexToAddress("0x0000000000000000000000000000000000000002"), 18, "t1", "token1")

	testRecipient    = "0x0000000000000000000000000000000000000003"
	testFeeRecipient = "0x0000000000000000000000000000000000000009"

	slippage = entities.NewPercentInt(1, 100)

	deadlineOpts = SwapOptions{
		SlippageTolerance:           slippage,
		Recipient:                   testRecipient,
		DeadlineOrPreviousBlockhash: "123",
	}
)

func makePool(t *testing.T, a, b *entities.Token, reserve int64) *entities.Pool {
	t.Helper()
	pool, err := entities.NewPool(
		entities.FromRawAmountInt(a, reserve),
		entities.FromRawAmountInt(b, reserve),
		entities.FeeMedium,
	)
	require.NoError(t, err)
	return pool
}

func newTestRouter(t *testing.T) *SwapRouter {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func pad64(s string) string {
	return strings.Repeat("0", 64-len(s)) + s
}

func padAddr(a common.Address) string {
	return pad64(strings.ToLower(strings.TrimPrefix(a.Hex(), "0x")))
}

func padBig(v *big.Int) string {
	return pad64(v.Text(16))
}

// encodeSingleSwap builds the expected single-hop call by direct padding,
// independent of the ABI encoder under test.
func encodeSingleSwap(selector string, tokenIn, tokenOut *entities.Token, recipient common.Address, primary, secondary *big.Int) string {
	return selector +
		padAddr(tokenIn.Address()) +
		padAddr(tokenOut.Address()) +
		pad64(big.NewInt(int64(entities.FeeMedium)).Text(16)) +
		padAddr(recipient) +
		padBig(primary) +
		padBig(secondary) +
		pad64("0")
}

// encodeMultiHopSwap builds the expected two-pool path call by direct
// padding. The path head offsets are fixed for the four-field tuple.
func encodeMultiHopSwap(selector string, route *entities.Route, exactOutput bool, recipient common.Address, primary, secondary *big.Int) string {
	path := hex.EncodeToString(encodeRouteToPath(route, exactOutput))
	padded := path + strings.Repeat("0", 192-len(path))
	return selector +
		pad64("20") +
		pad64("80") +
		padAddr(recipient) +
		padBig(primary) +
		padBig(secondary) +
		pad64("42") +
		padded
}

func encodeUnwrap(amountMinimum *big.Int, recipient common.Address) string {
	return unwrapWETH9Sig + padBig(amountMinimum) + padAddr(recipient)
}

func encodeSweep(token *entities.Token, amountMinimum *big.Int, recipient common.Address) string {
	return sweepTokenSig + padAddr(token.Address()) + padBig(amountMinimum) + padAddr(recipient)
}

func decodeCalls(t *testing.T, calls []string) [][]byte {
	t.Helper()
	out := make([][]byte, len(calls))
	for i, c := range calls {
		out[i] = hexutil.MustDecode(c)
	}
	return out
}

// expectedPresign runs the expected calls through the multicall encoder so
// the envelope assertion is independent of the pipeline under test.
func expectedPresign(t *testing.T, r *SwapRouter, calls []string) multicall.PresignCall {
	t.Helper()
	presign, err := r.Multicall().EncodePresignMulticallExtended(decodeCalls(t, calls), multicall.WithDeadline(big.NewInt(123)))
	require.NoError(t, err)
	return presign
}

func TestSwapCallParameters_SingleHopExactInput(t *testing.T) {
	r := newTestRouter(t)
	pool := makePool(t, token0, token1, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool}, token0, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token0, 100), trade.ExactInput)
	require.NoError(t, err)

	maxIn, err := tr.MaximumAmountIn(slippage)
	require.NoError(t, err)
	minOut, err := tr.MinimumAmountOut(slippage)
	require.NoError(t, err)

	expectedCall := encodeSingleSwap(exactInputSingleSig, token0, token1,
		common.HexToAddress(testRecipient), maxIn.Quotient(), minOut.Quotient())

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	assert.Equal(t, []string{expectedCall}, params.Calls)
	presign := expectedPresign(t, r, params.Calls)
	assert.Equal(t, presign.FunctionSignature, params.FunctionSignature)
	assert.Equal(t, presign.Parameters, params.Parameters)
	assert.Equal(t, "0x0", params.Value)
	assert.Empty(t, params.Calldata)
}

func TestSwapCallParameters_SingleHopExactOutput(t *testing.T) {
	r := newTestRouter(t)
	pool := makePool(t, token0, token1, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool}, token0, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token1, 100), trade.ExactOutput)
	require.NoError(t, err)

	maxIn, err := tr.MaximumAmountIn(slippage)
	require.NoError(t, err)
	minOut, err := tr.MinimumAmountOut(slippage)
	require.NoError(t, err)

	expectedCall := encodeSingleSwap(exactOutputSingleSig, token0, token1,
		common.HexToAddress(testRecipient), minOut.Quotient(), maxIn.Quotient())

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	assert.Equal(t, []string{expectedCall}, params.Calls)
	assert.Equal(t, expectedPresign(t, r, params.Calls).Parameters, params.Parameters)
	assert.Equal(t, "0x0", params.Value)
}

func TestSwapCallParameters_MultiHopExactInput(t *testing.T) {
	r := newTestRouter(t)
	pool01 := makePool(t, token0, token1, 1_000_000)
	pool1W := makePool(t, token1, weth, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool01, pool1W}, token0, weth)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token0, 100), trade.ExactInput)
	require.NoError(t, err)

	maxIn, err := tr.MaximumAmountIn(slippage)
	require.NoError(t, err)
	minOut, err := tr.MinimumAmountOut(slippage)
	require.NoError(t, err)

	expectedCall := encodeMultiHopSwap(exactInputSig, route, false,
		common.HexToAddress(testRecipient), maxIn.Quotient(), minOut.Quotient())

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	assert.Equal(t, []string{expectedCall}, params.Calls)
	assert.Equal(t, expectedPresign(t, r, params.Calls).Parameters, params.Parameters)
	assert.Equal(t, "0x0", params.Value)
}

func TestSwapCallParameters_MultiHopExactOutput(t *testing.T) {
	r := newTestRouter(t)
	pool01 := makePool(t, token0, token1, 1_000_000)
	pool1W := makePool(t, token1, weth, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool01, pool1W}, token0, weth)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(weth, 100), trade.ExactOutput)
	require.NoError(t, err)

	maxIn, err := tr.MaximumAmountIn(slippage)
	require.NoError(t, err)
	minOut, err := tr.MinimumAmountOut(slippage)
	require.NoError(t, err)

	expectedCall := encodeMultiHopSwap(exactOutputSig, route, true,
		common.HexToAddress(testRecipient), minOut.Quotient(), maxIn.Quotient())

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	assert.Equal(t, []string{expectedCall}, params.Calls)
	assert.Equal(t, expectedPresign(t, r, params.Calls).Parameters, params.Parameters)
	assert.Equal(t, "0x0", params.Value)
}

func TestSwapCallParameters_NativeInputExactInput(t *testing.T) {
	r := newTestRouter(t)
	pool1W := makePool(t, token1, weth, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool1W}, ether, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmount(ether, big.NewInt(100)), trade.ExactInput)
	require.NoError(t, err)

	maxIn, err := tr.MaximumAmountIn(slippage)
	require.NoError(t, err)
	minOut, err := tr.MinimumAmountOut(slippage)
	require.NoError(t, err)

	expectedCall := encodeSingleSwap(exactInputSingleSig, weth, token1,
		common.HexToAddress(testRecipient), maxIn.Quotient(), minOut.Quotient())

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	assert.Equal(t, []string{expectedCall}, params.Calls)
	assert.Equal(t, "0x64", params.Value)
}

func TestSwapCallParameters_NativeInputExactOutput_AppendsRefund(t *testing.T) {
	r := newTestRouter(t)
	pool1W := makePool(t, token1, weth, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool1W}, ether, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token1, 100), trade.ExactOutput)
	require.NoError(t, err)

	maxIn, err := tr.MaximumAmountIn(slippage)
	require.NoError(t, err)
	minOut, err := tr.MinimumAmountOut(slippage)
	require.NoError(t, err)

	expectedCalls := []string{
		encodeSingleSwap(exactOutputSingleSig, weth, token1,
			common.HexToAddress(testRecipient), minOut.Quotient(), maxIn.Quotient()),
		refundETHSig,
	}

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	assert.Equal(t, expectedCalls, params.Calls)
	assert.Equal(t, expectedPresign(t, r, params.Calls).Parameters, params.Parameters)
	assert.Equal(t, hexutil.EncodeBig(maxIn.Quotient()), params.Value)
}

func TestSwapCallParameters_NativeOutput_RouterCustodiesAndUnwraps(t *testing.T) {
	r := newTestRouter(t)
	pool1W := makePool(t, token1, weth, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool1W}, token1, ether)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token1, 100), trade.ExactInput)
	require.NoError(t, err)

	maxIn, err := tr.MaximumAmountIn(slippage)
	require.NoError(t, err)
	minOut, err := tr.MinimumAmountOut(slippage)
	require.NoError(t, err)

	expectedCalls := []string{
		encodeSingleSwap(exactInputSingleSig, token1, weth, AddressThis, maxIn.Quotient(), minOut.Quotient()),
		encodeUnwrap(minOut.Quotient(), common.HexToAddress(testRecipient)),
	}

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	assert.Equal(t, expectedCalls, params.Calls)
	assert.Equal(t, expectedPresign(t, r, params.Calls).Parameters, params.Parameters)
	assert.Equal(t, "0x0", params.Value)
}

func TestSwapCallParameters_HighImpactNativeInput_AppendsRefund(t *testing.T) {
	r := newTestRouter(t)
	shallow := makePool(t, token1, weth, 100)

	route, err := entities.NewRoute([]*entities.Pool{shallow}, ether, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmount(ether, big.NewInt(100)), trade.ExactInput)
	require.NoError(t, err)

	impact, err := tr.PriceImpact()
	require.NoError(t, err)
	require.True(t, impact.GreaterThan(entities.NewPercentInt(50, 100).Fraction))

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	require.Len(t, params.Calls, 2)
	assert.Equal(t, refundETHSig, params.Calls[1])
	assert.Contains(t, params.Parameters, strings.TrimPrefix(refundETHSig, "0x"))
}

func TestSwapCallParameters_HighImpactTokenInput_NoRefund(t *testing.T) {
	r := newTestRouter(t)
	shallow := makePool(t, token1, weth, 100)

	route, err := entities.NewRoute([]*entities.Pool{shallow}, token1, weth)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token1, 100), trade.ExactInput)
	require.NoError(t, err)

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	require.Len(t, params.Calls, 1)
	assert.NotContains(t, params.Parameters, strings.TrimPrefix(refundETHSig, "0x"))
	assert.Equal(t, "0x0", params.Value)
}

func TestSwapCallParameters_AggregatedSlippageCheck(t *testing.T) {
	r := newTestRouter(t)

	// Two 2-pool routes: 4 hops total triggers the aggregate check, so the
	// per-swap minimums are zeroed and one sweep enforces the total.
	poolA01 := makePool(t, token0, token1, 1_000_000)
	poolA1W := makePool(t, token1, weth, 1_000_000)
	poolB01 := makePool(t, token0, token1, 2_000_000)
	poolB1W := makePool(t, token1, weth, 2_000_000)

	routeA, err := entities.NewRoute([]*entities.Pool{poolA01, poolA1W}, token0, weth)
	require.NoError(t, err)
	routeB, err := entities.NewRoute([]*entities.Pool{poolB01, poolB1W}, token0, weth)
	require.NoError(t, err)

	amount := entities.FromRawAmountInt(token0, 100)
	tr, err := trade.FromRoutes([]trade.RouteAmount{
		{Route: routeA, Amount: amount},
		{Route: routeB, Amount: amount},
	}, trade.ExactInput)
	require.NoError(t, err)

	// The flattened per-route trades bound the sweep total.
	singleA, err := trade.FromRoute(routeA, amount, trade.ExactInput)
	require.NoError(t, err)
	singleB, err := trade.FromRoute(routeB, amount, trade.ExactInput)
	require.NoError(t, err)
	minOutA, err := singleA.MinimumAmountOut(slippage)
	require.NoError(t, err)
	minOutB, err := singleB.MinimumAmountOut(slippage)
	require.NoError(t, err)
	totalMinOut := new(big.Int).Add(minOutA.Quotient(), minOutB.Quotient())

	expectedCalls := []string{
		encodeMultiHopSwap(exactInputSig, routeA, false, AddressThis, singleA.InputAmount().Quotient(), new(big.Int)),
		encodeMultiHopSwap(exactInputSig, routeB, false, AddressThis, singleB.InputAmount().Quotient(), new(big.Int)),
		encodeSweep(weth, totalMinOut, common.HexToAddress(testRecipient)),
	}

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, deadlineOpts)
	require.NoError(t, err)

	assert.Equal(t, expectedCalls, params.Calls)
	assert.Equal(t, expectedPresign(t, r, params.Calls).Parameters, params.Parameters)
}

func TestSwapCallParameters_FeeOnOutput_SweepsWithFee(t *testing.T) {
	r := newTestRouter(t)
	pool := makePool(t, token0, token1, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool}, token0, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token0, 100), trade.ExactInput)
	require.NoError(t, err)

	opts := deadlineOpts
	opts.Fee = &FeeOptions{
		Fee:       entities.NewPercentInt(5, 1000),
		Recipient: testFeeRecipient,
	}

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, opts)
	require.NoError(t, err)

	require.Len(t, params.Calls, 2)
	// Fee implies custody.
	assert.Contains(t, params.Calls[0], padAddr(AddressThis))
	assert.True(t, strings.HasPrefix(params.Calls[1], sweepTokenWithFeeSig))
	assert.Contains(t, params.Calls[1], padBig(big.NewInt(50))) // 0.5% as bips
	assert.Contains(t, params.Calls[1], padAddr(common.HexToAddress(testFeeRecipient)))
}

func TestSwapCallParameters_PermitPrepended(t *testing.T) {
	r := newTestRouter(t)
	pool := makePool(t, token0, token1, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool}, token0, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token0, 100), trade.ExactInput)
	require.NoError(t, err)

	opts := deadlineOpts
	opts.InputTokenPermit = &PermitOptions{
		V:        27,
		R:        common.HexToHash("0x01"),
		S:        common.HexToHash("0x02"),
		Amount:   big.NewInt(100),
		Deadline: big.NewInt(456),
	}

	params, err := r.SwapCallParameters([]*trade.Trade{tr}, opts)
	require.NoError(t, err)

	require.Len(t, params.Calls, 2)
	assert.True(t, strings.HasPrefix(params.Calls[0], selfPermitSig))
	assert.True(t, strings.HasPrefix(params.Calls[1], exactInputSingleSig))
}

func TestSwapCallParameters_NativeInputPermitRejected(t *testing.T) {
	r := newTestRouter(t)
	pool1W := makePool(t, token1, weth, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool1W}, ether, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmount(ether, big.NewInt(100)), trade.ExactInput)
	require.NoError(t, err)

	opts := deadlineOpts
	opts.InputTokenPermit = &PermitOptions{V: 27, Amount: big.NewInt(1), Deadline: big.NewInt(1)}

	_, err = r.SwapCallParameters([]*trade.Trade{tr}, opts)
	assert.ErrorIs(t, err, ErrNonTokenPermit)
}

func TestSwapCallParameters_InconsistentTrades(t *testing.T) {
	r := newTestRouter(t)
	pool01 := makePool(t, token0, token1, 1_000_000)
	pool1W := makePool(t, token1, weth, 1_000_000)

	route01, err := entities.NewRoute([]*entities.Pool{pool01}, token0, token1)
	require.NoError(t, err)
	route1W, err := entities.NewRoute([]*entities.Pool{pool1W}, token1, weth)
	require.NoError(t, err)

	tr01, err := trade.FromRoute(route01, entities.FromRawAmountInt(token0, 100), trade.ExactInput)
	require.NoError(t, err)
	tr1W, err := trade.FromRoute(route1W, entities.FromRawAmountInt(token1, 100), trade.ExactInput)
	require.NoError(t, err)

	_, err = r.SwapCallParameters([]*trade.Trade{tr01, tr1W}, deadlineOpts)
	assert.ErrorIs(t, err, ErrTokenInMismatch)

	trOut, err := trade.FromRoute(route01, entities.FromRawAmountInt(token1, 100), trade.ExactOutput)
	require.NoError(t, err)
	_, err = r.SwapCallParameters([]*trade.Trade{tr01, trOut}, deadlineOpts)
	assert.ErrorIs(t, err, ErrTradeTypeMismatch)

	_, err = r.SwapCallParameters(nil, deadlineOpts)
	assert.ErrorIs(t, err, ErrUnsupportedTradeShape)
}

func TestSwapCallParameters_ValidationRejectedBeforeEncoding(t *testing.T) {
	r := newTestRouter(t)
	pool := makePool(t, token0, token1, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool}, token0, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token0, 100), trade.ExactInput)
	require.NoError(t, err)

	opts := deadlineOpts
	opts.DeadlineOrPreviousBlockhash = "0x1234"
	_, err = r.SwapCallParameters([]*trade.Trade{tr}, opts)
	assert.ErrorIs(t, err, multicall.ErrInvalidBytes32)

	opts = deadlineOpts
	opts.SlippageTolerance = entities.NewPercentInt(-1, 100)
	_, err = r.SwapCallParameters([]*trade.Trade{tr}, opts)
	assert.ErrorIs(t, err, trade.ErrInvalidSlippageTolerance)

	opts = deadlineOpts
	opts.Recipient = "not-an-address"
	_, err = r.SwapCallParameters([]*trade.Trade{tr}, opts)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSwapCallParametersPostsigned(t *testing.T) {
	r := newTestRouter(t)
	pool := makePool(t, token0, token1, 1_000_000)

	route, err := entities.NewRoute([]*entities.Pool{pool}, token0, token1)
	require.NoError(t, err)
	tr, err := trade.FromRoute(route, entities.FromRawAmountInt(token0, 100), trade.ExactInput)
	require.NoError(t, err)

	sig := multicall.Signature{
		V:      1,
		R:      common.HexToHash("0xf00d2a7f6996abe9ade2747e3de45e96fb8fe12381ab659586473cb43d7550fb"),
		S:      common.HexToHash("0xf00d2a7f6996abe9ade2747e3de45e96fb8fe12381ab659586473cb43d7550fb"),
		Expiry: big.NewInt(2),
	}

	params, err := r.SwapCallParametersPostsigned([]*trade.Trade{tr}, deadlineOpts, sig)
	require.NoError(t, err)

	assert.Equal(t, multicall.MulticallDeadlineSelector, params.FunctionSignature)
	assert.True(t, strings.HasPrefix(params.Calldata, multicall.MulticallDeadlineSelector))
	assert.True(t, strings.HasSuffix(params.Calldata, strings.TrimPrefix(params.Parameters, "0x")))
}

func TestValidateAndParseAddress(t *testing.T) {
	lower, err := validateAndParseAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), lower)

	checksummed, err := validateAndParseAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	require.NoError(t, err)
	assert.Equal(t, lower, checksummed)

	_, err = validateAndParseAddress("0xC02AAA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = validateAndParseAddress("0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
