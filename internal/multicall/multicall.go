// Package multicall wraps an ordered list of encoded calls into a single
// access-token-gated multicall, either as the presign payload an external
// signer commits to, or as the final postsign calldata embedding the
// obtained signature.
package multicall

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Selectors for the three multicall variants, keyed by validity-bound shape.
const (
	MulticallSelector          = "0x2efb614b" // multicall(uint8,bytes32,bytes32,uint256,bytes[])
	MulticallDeadlineSelector  = "0x6cfd42de" // multicall(uint8,bytes32,bytes32,uint256,uint256,bytes[])
	MulticallBlockhashSelector = "0x41e7f2f5" // multicall(uint8,bytes32,bytes32,uint256,bytes32,bytes[])
)

var (
	ErrInvalidBytes32  = errors.New("multicall: previous blockhash is not valid bytes32")
	ErrInvalidDeadline = errors.New("multicall: deadline is not a decimal number")
)

var bytes32Pattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidationKind discriminates the validity bound attached to a multicall.
type ValidationKind int

const (
	ValidationNone ValidationKind = iota
	ValidationDeadline
	ValidationBlockhash
)

// Validation is the optional validity bound: absent, a deadline timestamp,
// or a required previous block hash.
type Validation struct {
	kind      ValidationKind
	deadline  *big.Int
	blockhash common.Hash
}

func NoValidation() Validation { return Validation{} }

func WithDeadline(deadline *big.Int) Validation {
	return Validation{kind: ValidationDeadline, deadline: deadline}
}

func WithPreviousBlockhash(blockhash common.Hash) Validation {
	return Validation{kind: ValidationBlockhash, blockhash: blockhash}
}

func (v Validation) Kind() ValidationKind { return v.kind }

// ParseValidation normalizes the caller-facing string form: empty means no
// bound, a 0x-prefixed 32-byte hex string is a previous block hash, and any
// other value is read as a decimal deadline timestamp.
func ParseValidation(s string) (Validation, error) {
	if s == "" {
		return NoValidation(), nil
	}
	if strings.HasPrefix(s, "0x") {
		if !bytes32Pattern.MatchString(s) {
			return Validation{}, fmt.Errorf("%w: %q", ErrInvalidBytes32, s)
		}
		return WithPreviousBlockhash(common.HexToHash(strings.ToLower(s))), nil
	}
	deadline, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Validation{}, fmt.Errorf("%w: %q", ErrInvalidDeadline, s)
	}
	return WithDeadline(deadline), nil
}

// Signature is an off-chain-issued access token: an ECDSA signature over
// the presign payload plus its expiry.
type Signature struct {
	V      uint8
	R      common.Hash
	S      common.Hash
	Expiry *big.Int
}

// AccessTokenSigner is the credential-issuing collaborator. The single
// round-trip is not retried here; failures propagate to the caller.
type AccessTokenSigner interface {
	Sign(ctx context.Context, functionSignature, parameters string) (Signature, error)
}

// PresignCall is the exact payload an external signer must sign over: the
// selector of the dispatched multicall variant and the ABI-encoded argument
// tail with the not-yet-known signature fields stripped.
type PresignCall struct {
	FunctionSignature string `json:"functionSignature"`
	Parameters        string `json:"parameters"`
}

// Encoder holds the fixed argument layouts of the three multicall variants.
// It is stateless; construct once and share freely.
type Encoder struct {
	plainArgs     abi.Arguments
	deadlineArgs  abi.Arguments
	blockhashArgs abi.Arguments
}

func NewEncoder() (*Encoder, error) {
	types := make(map[string]abi.Type, 4)
	for _, name := range []string{"uint8", "uint256", "bytes32", "bytes[]"} {
		t, err := abi.NewType(name, "", nil)
		if err != nil {
			return nil, fmt.Errorf("abi type %s: %w", name, err)
		}
		types[name] = t
	}

	sigHead := abi.Arguments{
		{Name: "v", Type: types["uint8"]},
		{Name: "r", Type: types["bytes32"]},
		{Name: "s", Type: types["bytes32"]},
		{Name: "expiry", Type: types["uint256"]},
	}
	calls := abi.Argument{Name: "data", Type: types["bytes[]"]}

	return &Encoder{
		plainArgs:     append(append(abi.Arguments{}, sigHead...), calls),
		deadlineArgs:  append(append(abi.Arguments{}, sigHead...), abi.Argument{Name: "deadline", Type: types["uint256"]}, calls),
		blockhashArgs: append(append(abi.Arguments{}, sigHead...), abi.Argument{Name: "previousBlockhash", Type: types["bytes32"]}, calls),
	}, nil
}

// pack encodes the full argument list of the variant selected by the
// validation shape. The returned bytes exclude the selector.
func (e *Encoder) pack(sig Signature, validation Validation, calls [][]byte) (selector string, packed []byte, err error) {
	expiry := sig.Expiry
	if expiry == nil {
		expiry = new(big.Int)
	}
	switch validation.kind {
	case ValidationNone:
		packed, err = e.plainArgs.Pack(sig.V, sig.R, sig.S, expiry, calls)
		return MulticallSelector, packed, err
	case ValidationDeadline:
		packed, err = e.deadlineArgs.Pack(sig.V, sig.R, sig.S, expiry, validation.deadline, calls)
		return MulticallDeadlineSelector, packed, err
	default:
		packed, err = e.blockhashArgs.Pack(sig.V, sig.R, sig.S, expiry, validation.blockhash, calls)
		return MulticallBlockhashSelector, packed, err
	}
}

// EncodePresignMulticall is the no-validation form; byte-identical to a
// plain multicall without any authorization extension.
func (e *Encoder) EncodePresignMulticall(calls [][]byte) (PresignCall, error) {
	return e.EncodePresignMulticallExtended(calls, NoValidation())
}

// EncodePresignMulticallExtended produces the payload to be signed. The
// signature head words are packed as zero and stripped, so the parameters
// are a strict tail of the matching postsign encoding.
func (e *Encoder) EncodePresignMulticallExtended(calls [][]byte, validation Validation) (PresignCall, error) {
	selector, packed, err := e.pack(Signature{}, validation, calls)
	if err != nil {
		return PresignCall{}, fmt.Errorf("pack presign multicall: %w", err)
	}
	return PresignCall{
		FunctionSignature: selector,
		Parameters:        hexutil.Encode(packed[4*32:]),
	}, nil
}

// EncodePostsignMulticall embeds a signature into the no-validation form.
func (e *Encoder) EncodePostsignMulticall(sig Signature, calls [][]byte) (string, error) {
	return e.EncodePostsignMulticallExtended(sig, calls, NoValidation())
}

// EncodePostsignMulticallExtended produces the complete submittable
// calldata: selector, signature fields, validity bound if any, and calls.
func (e *Encoder) EncodePostsignMulticallExtended(sig Signature, calls [][]byte, validation Validation) (string, error) {
	selector, packed, err := e.pack(sig, validation, calls)
	if err != nil {
		return "", fmt.Errorf("pack postsign multicall: %w", err)
	}
	selectorBytes, err := hexutil.Decode(selector)
	if err != nil {
		return "", fmt.Errorf("bad selector constant: %w", err)
	}
	return hexutil.Encode(append(selectorBytes, packed...)), nil
}

// SignAndEncode performs the single signer round-trip and returns the
// postsign calldata for the same calls and validity bound.
func (e *Encoder) SignAndEncode(ctx context.Context, signer AccessTokenSigner, calls [][]byte, validation Validation) (string, error) {
	presign, err := e.EncodePresignMulticallExtended(calls, validation)
	if err != nil {
		return "", err
	}
	sig, err := signer.Sign(ctx, presign.FunctionSignature, presign.Parameters)
	if err != nil {
		return "", fmt.Errorf("sign multicall: %w", err)
	}
	return e.EncodePostsignMulticallExtended(sig, calls, validation)
}
