package router

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/you/swap-router/internal/entities"
)

var (
	ErrInvalidAddress        = errors.New("router: invalid recipient address")
	ErrTokenInMismatch       = errors.New("router: trades disagree on input currency")
	ErrTokenOutMismatch      = errors.New("router: trades disagree on output currency")
	ErrTradeTypeMismatch     = errors.New("router: trades disagree on trade type")
	ErrUnsupportedTradeShape = errors.New("router: no trades supplied")
	ErrNonTokenPermit        = errors.New("router: input token permit requires a token input")
)

// Sentinel recipients understood by the router contract.
var (
	// MsgSender directs output to the transaction sender.
	MsgSender = common.HexToAddress("0x0000000000000000000000000000000000000001")
	// AddressThis custodies output in the router for a follow-up call.
	AddressThis = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

// FeeOptions takes a cut of the output, sent to Recipient.
type FeeOptions struct {
	Fee       *entities.Percent
	Recipient string
}

// PermitOptions carries an ERC-2612 permit over the input token. Standard
// permits populate Amount and Deadline; DAI-style permits populate Nonce
// and Expiry.
type PermitOptions struct {
	V uint8
	R common.Hash
	S common.Hash

	Amount   *big.Int
	Deadline *big.Int

	Nonce  *big.Int
	Expiry *big.Int
}

// SwapOptions configures call generation for a set of trades.
type SwapOptions struct {
	// SlippageTolerance bounds how far the execution may move against the
	// quoted price. Required.
	SlippageTolerance *entities.Percent

	// Recipient of the output; the transaction sender when empty.
	Recipient string

	// DeadlineOrPreviousBlockhash gates execution: a decimal epoch-seconds
	// deadline, or a 0x-prefixed 32-byte previous block hash. Empty means
	// no validity bound.
	DeadlineOrPreviousBlockhash string

	InputTokenPermit *PermitOptions
	Fee              *FeeOptions
}

// MethodParameters is the wire payload for a swap transaction. Presign
// fields are always populated; Calldata only when a signature was embedded.
type MethodParameters struct {
	Calls             []string `json:"calls"`
	FunctionSignature string   `json:"functionSignature"`
	Parameters        string   `json:"parameters"`
	Calldata          string   `json:"calldata,omitempty"`
	Value             string   `json:"value"`
}

// validateAndParseAddress accepts lowercase hex addresses and enforces the
// EIP-55 checksum on mixed-case input.
func validateAndParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrInvalidAddress
	}
	addr := common.HexToAddress(s)
	body := strings.TrimPrefix(s, "0x")
	if body != strings.ToLower(body) && s != addr.Hex() {
		return common.Address{}, ErrInvalidAddress
	}
	return addr, nil
}
