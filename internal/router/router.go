// Package router turns aggregated trades plus swap options into the exact,
// ordered call sequence the on-chain swap router expects, wrapped in an
// access-token multicall envelope.
package router

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/you/swap-router/internal/entities"
	"github.com/you/swap-router/internal/multicall"
	"github.com/you/swap-router/internal/trade"
)

// Above this price impact a native-input swap risks a partial fill, so the
// unused value must be refunded.
var refundETHPriceImpactThreshold = entities.NewPercentInt(50, 100)

// SwapRouter encodes trades against the swap router contract. It holds the
// parsed ABI fragments and the multicall encoder; construct once and share.
type SwapRouter struct {
	swap        abi.ABI
	payments    abi.ABI
	paymentsExt abi.ABI
	permit      abi.ABI
	mc          *multicall.Encoder
}

func New() (*SwapRouter, error) {
	r := &SwapRouter{}
	for _, f := range []struct {
		dst  *abi.ABI
		json string
	}{
		{&r.swap, swapABI},
		{&r.payments, paymentsABI},
		{&r.paymentsExt, paymentsExtendedABI},
		{&r.permit, permitABI},
	} {
		parsed, err := abi.JSON(strings.NewReader(f.json))
		if err != nil {
			return nil, fmt.Errorf("parse abi: %w", err)
		}
		*f.dst = parsed
	}

	mc, err := multicall.NewEncoder()
	if err != nil {
		return nil, fmt.Errorf("multicall encoder: %w", err)
	}
	r.mc = mc
	return r, nil
}

// swapEncoding is the intermediate result of encoding the swap calls,
// before the trailing unwrap/sweep/refund calls and the envelope.
type swapEncoding struct {
	calls             [][]byte
	trades            []*trade.Trade
	routerMustCustody bool
	inputIsNative     bool
	outputIsNative    bool
	totalAmountIn     *entities.CurrencyAmount
	minimumAmountOut  *entities.CurrencyAmount
}

// encodeSwaps normalizes the trade set, validates its consistency, and
// encodes the per-route swap calls in input order. All validation happens
// before the first call is encoded; a partial call list is never returned.
func (r *SwapRouter) encodeSwaps(trades []*trade.Trade, opts SwapOptions, isSwapAndAdd bool) (*swapEncoding, *multicall.Validation, error) {
	flat, err := flatten(trades)
	if err != nil {
		return nil, nil, err
	}

	sample := flat[0]
	for _, t := range flat[1:] {
		if !t.InputAmount().Currency().Equal(sample.InputAmount().Currency()) {
			return nil, nil, ErrTokenInMismatch
		}
		if !t.OutputAmount().Currency().Equal(sample.OutputAmount().Currency()) {
			return nil, nil, ErrTokenOutMismatch
		}
		if t.TradeType() != sample.TradeType() {
			return nil, nil, ErrTradeTypeMismatch
		}
	}

	if opts.SlippageTolerance == nil || opts.SlippageTolerance.Sign() < 0 {
		return nil, nil, trade.ErrInvalidSlippageTolerance
	}
	validation, err := multicall.ParseValidation(opts.DeadlineOrPreviousBlockhash)
	if err != nil {
		return nil, nil, err
	}

	inputIsNative := sample.InputAmount().Currency().IsNative()
	outputIsNative := sample.OutputAmount().Currency().IsNative()

	numberOfHops := 0
	for _, t := range flat {
		numberOfHops += len(t.Swaps()[0].Route.Pools())
	}

	// Deferring the minimum-output check to one aggregate sweep costs gas
	// but lowers the odds of a spurious revert on multi-route fills.
	performAggregatedSlippageCheck := sample.TradeType() == trade.ExactInput && numberOfHops > 2
	routerMustCustody := outputIsNative || opts.Fee != nil || isSwapAndAdd || performAggregatedSlippageCheck

	recipient := MsgSender
	if routerMustCustody {
		recipient = AddressThis
	} else if opts.Recipient != "" {
		if recipient, err = validateAndParseAddress(opts.Recipient); err != nil {
			return nil, nil, err
		}
	}

	var calls [][]byte

	if opts.InputTokenPermit != nil {
		token, ok := sample.InputAmount().Currency().(*entities.Token)
		if !ok {
			return nil, nil, ErrNonTokenPermit
		}
		permitCall, err := r.EncodePermit(token, opts.InputTokenPermit)
		if err != nil {
			return nil, nil, err
		}
		calls = append(calls, permitCall)
	}

	for _, t := range flat {
		s := t.Swaps()[0]
		maxIn, err := t.MaximumAmountIn(opts.SlippageTolerance, s.InputAmount)
		if err != nil {
			return nil, nil, err
		}
		minOut, err := t.MinimumAmountOut(opts.SlippageTolerance, s.OutputAmount)
		if err != nil {
			return nil, nil, err
		}
		call, err := r.encodeSwapCall(s, t.TradeType(), recipient, maxIn.Quotient(), minOut.Quotient(), performAggregatedSlippageCheck)
		if err != nil {
			return nil, nil, fmt.Errorf("encode swap call: %w", err)
		}
		calls = append(calls, call)
	}

	totalAmountIn := entities.FromRawAmountInt(sample.InputAmount().Currency(), 0)
	minimumAmountOut := entities.FromRawAmountInt(sample.OutputAmount().Currency(), 0)
	for _, t := range flat {
		maxIn, err := t.MaximumAmountIn(opts.SlippageTolerance)
		if err != nil {
			return nil, nil, err
		}
		if totalAmountIn, err = totalAmountIn.Add(maxIn); err != nil {
			return nil, nil, err
		}
		minOut, err := t.MinimumAmountOut(opts.SlippageTolerance)
		if err != nil {
			return nil, nil, err
		}
		if minimumAmountOut, err = minimumAmountOut.Add(minOut); err != nil {
			return nil, nil, err
		}
	}

	return &swapEncoding{
		calls:             calls,
		trades:            flat,
		routerMustCustody: routerMustCustody,
		inputIsNative:     inputIsNative,
		outputIsNative:    outputIsNative,
		totalAmountIn:     totalAmountIn,
		minimumAmountOut:  minimumAmountOut,
	}, &validation, nil
}

// flatten unbundles aggregated multi-swap trades into one single-swap
// trade per route, preserving caller-supplied order.
func flatten(trades []*trade.Trade) ([]*trade.Trade, error) {
	var flat []*trade.Trade
	for _, t := range trades {
		if t == nil {
			return nil, ErrUnsupportedTradeShape
		}
		if len(t.Swaps()) == 1 {
			flat = append(flat, t)
			continue
		}
		for _, s := range t.Swaps() {
			single, err := trade.New([]*trade.Swap{s}, t.TradeType())
			if err != nil {
				return nil, err
			}
			flat = append(flat, single)
		}
	}
	if len(flat) == 0 {
		return nil, ErrUnsupportedTradeShape
	}
	return flat, nil
}

// buildCallList produces the complete call sequence: swap calls, the
// custody unwrap-or-sweep, and the conditional native refund.
func (r *SwapRouter) buildCallList(trades []*trade.Trade, opts SwapOptions) (*swapEncoding, *multicall.Validation, error) {
	enc, validation, err := r.encodeSwaps(trades, opts, false)
	if err != nil {
		return nil, nil, err
	}

	if enc.routerMustCustody {
		var tail []byte
		if enc.outputIsNative {
			tail, err = r.EncodeUnwrapWETH9(enc.minimumAmountOut.Quotient(), opts.Recipient, opts.Fee)
		} else {
			token := enc.trades[0].OutputAmount().Currency().Wrapped()
			tail, err = r.EncodeSweepToken(token, enc.minimumAmountOut.Quotient(), opts.Recipient, opts.Fee)
		}
		if err != nil {
			return nil, nil, err
		}
		enc.calls = append(enc.calls, tail)
	}

	if enc.inputIsNative {
		refund := enc.trades[0].TradeType() == trade.ExactOutput
		if !refund {
			if refund, err = riskOfPartialFill(enc.trades); err != nil {
				return nil, nil, err
			}
		}
		if refund {
			refundCall, err := r.EncodeRefundETH()
			if err != nil {
				return nil, nil, err
			}
			enc.calls = append(enc.calls, refundCall)
		}
	}

	return enc, validation, nil
}

// riskOfPartialFill reports whether any trade's price impact is high
// enough that the swap may stop at a price limit and fill partially.
func riskOfPartialFill(trades []*trade.Trade) (bool, error) {
	for _, t := range trades {
		impact, err := t.PriceImpact()
		if err != nil {
			return false, err
		}
		if impact.GreaterThan(refundETHPriceImpactThreshold.Fraction) {
			return true, nil
		}
	}
	return false, nil
}

// SwapCallParameters produces the presign payload for a set of trades: the
// ordered calls, the multicall selector and parameters to sign over, and
// the native value to attach.
func (r *SwapRouter) SwapCallParameters(trades []*trade.Trade, opts SwapOptions) (*MethodParameters, error) {
	enc, validation, err := r.buildCallList(trades, opts)
	if err != nil {
		return nil, err
	}

	presign, err := r.mc.EncodePresignMulticallExtended(enc.calls, *validation)
	if err != nil {
		return nil, err
	}

	return &MethodParameters{
		Calls:             hexCalls(enc.calls),
		FunctionSignature: presign.FunctionSignature,
		Parameters:        presign.Parameters,
		Value:             txValue(enc),
	}, nil
}

// SwapCallParametersPostsigned completes the pipeline once a signature has
// been obtained, returning the submittable calldata alongside the presign
// fields.
func (r *SwapRouter) SwapCallParametersPostsigned(trades []*trade.Trade, opts SwapOptions, sig multicall.Signature) (*MethodParameters, error) {
	enc, validation, err := r.buildCallList(trades, opts)
	if err != nil {
		return nil, err
	}

	presign, err := r.mc.EncodePresignMulticallExtended(enc.calls, *validation)
	if err != nil {
		return nil, err
	}
	calldata, err := r.mc.EncodePostsignMulticallExtended(sig, enc.calls, *validation)
	if err != nil {
		return nil, err
	}

	return &MethodParameters{
		Calls:             hexCalls(enc.calls),
		FunctionSignature: presign.FunctionSignature,
		Parameters:        presign.Parameters,
		Calldata:          calldata,
		Value:             txValue(enc),
	}, nil
}

// SwapCallParametersSigned obtains the signature from the credential
// issuer in a single round-trip and returns the postsign parameters.
func (r *SwapRouter) SwapCallParametersSigned(ctx context.Context, signer multicall.AccessTokenSigner, trades []*trade.Trade, opts SwapOptions) (*MethodParameters, error) {
	enc, validation, err := r.buildCallList(trades, opts)
	if err != nil {
		return nil, err
	}

	presign, err := r.mc.EncodePresignMulticallExtended(enc.calls, *validation)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(ctx, presign.FunctionSignature, presign.Parameters)
	if err != nil {
		return nil, fmt.Errorf("sign swap: %w", err)
	}
	calldata, err := r.mc.EncodePostsignMulticallExtended(sig, enc.calls, *validation)
	if err != nil {
		return nil, err
	}

	return &MethodParameters{
		Calls:             hexCalls(enc.calls),
		FunctionSignature: presign.FunctionSignature,
		Parameters:        presign.Parameters,
		Calldata:          calldata,
		Value:             txValue(enc),
	}, nil
}

func hexCalls(calls [][]byte) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = hexutil.Encode(c)
	}
	return out
}

func txValue(enc *swapEncoding) string {
	if enc.inputIsNative {
		return hexutil.EncodeBig(enc.totalAmountIn.Quotient())
	}
	return hexutil.EncodeBig(new(big.Int))
}

// Multicall exposes the envelope encoder for callers that already hold
// encoded calls.
func (r *SwapRouter) Multicall() *multicall.Encoder { return r.mc }
