package router

import (
	"fmt"
	"math/big"

	"github.com/you/swap-router/internal/entities"
)

// Payment fragments. The plain set delivers to an explicit recipient; the
// extended set omits the recipient and pays msg.sender, used when the
// caller did not name one.
const paymentsABI = `[
    {"inputs":[{"internalType":"uint256","name":"amountMinimum","type":"uint256"},{"internalType":"address","name":"recipient","type":"address"}],"name":"unwrapWETH9","outputs":[],"stateMutability":"payable","type":"function"},
    {"inputs":[{"internalType":"uint256","name":"amountMinimum","type":"uint256"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"feeBips","type":"uint256"},{"internalType":"address","name":"feeRecipient","type":"address"}],"name":"unwrapWETH9WithFee","outputs":[],"stateMutability":"payable","type":"function"},
    {"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amountMinimum","type":"uint256"},{"internalType":"address","name":"recipient","type":"address"}],"name":"sweepToken","outputs":[],"stateMutability":"payable","type":"function"},
    {"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amountMinimum","type":"uint256"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"feeBips","type":"uint256"},{"internalType":"address","name":"feeRecipient","type":"address"}],"name":"sweepTokenWithFee","outputs":[],"stateMutability":"payable","type":"function"},
    {"inputs":[],"name":"refundETH","outputs":[],"stateMutability":"payable","type":"function"}
]`

const paymentsExtendedABI = `[
    {"inputs":[{"internalType":"uint256","name":"amountMinimum","type":"uint256"}],"name":"unwrapWETH9","outputs":[],"stateMutability":"payable","type":"function"},
    {"inputs":[{"internalType":"uint256","name":"amountMinimum","type":"uint256"},{"internalType":"uint256","name":"feeBips","type":"uint256"},{"internalType":"address","name":"feeRecipient","type":"address"}],"name":"unwrapWETH9WithFee","outputs":[],"stateMutability":"payable","type":"function"},
    {"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amountMinimum","type":"uint256"}],"name":"sweepToken","outputs":[],"stateMutability":"payable","type":"function"},
    {"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"amountMinimum","type":"uint256"},{"internalType":"uint256","name":"feeBips","type":"uint256"},{"internalType":"address","name":"feeRecipient","type":"address"}],"name":"sweepTokenWithFee","outputs":[],"stateMutability":"payable","type":"function"}
]`

// feeBips converts a fee percent into basis points for the contract call.
func feeBips(fee *entities.Percent) *big.Int {
	return fee.Fraction.Multiply(entities.NewFractionInt(10000, 1)).Quotient()
}

// EncodeUnwrapWETH9 encodes the unwrap of custodied wrapped-native funds.
// An empty recipient selects the recipient-less extended variant.
func (r *SwapRouter) EncodeUnwrapWETH9(amountMinimum *big.Int, recipient string, fee *FeeOptions) ([]byte, error) {
	if recipient == "" {
		if fee != nil {
			feeRecipient, err := validateAndParseAddress(fee.Recipient)
			if err != nil {
				return nil, err
			}
			return r.paymentsExt.Pack("unwrapWETH9WithFee", amountMinimum, feeBips(fee.Fee), feeRecipient)
		}
		return r.paymentsExt.Pack("unwrapWETH9", amountMinimum)
	}

	to, err := validateAndParseAddress(recipient)
	if err != nil {
		return nil, err
	}
	if fee != nil {
		feeRecipient, err := validateAndParseAddress(fee.Recipient)
		if err != nil {
			return nil, err
		}
		return r.payments.Pack("unwrapWETH9WithFee", amountMinimum, to, feeBips(fee.Fee), feeRecipient)
	}
	return r.payments.Pack("unwrapWETH9", amountMinimum, to)
}

// EncodeSweepToken encodes the sweep of custodied tokens to the recipient.
// An empty recipient selects the recipient-less extended variant.
func (r *SwapRouter) EncodeSweepToken(token *entities.Token, amountMinimum *big.Int, recipient string, fee *FeeOptions) ([]byte, error) {
	if recipient == "" {
		if fee != nil {
			feeRecipient, err := validateAndParseAddress(fee.Recipient)
			if err != nil {
				return nil, err
			}
			return r.paymentsExt.Pack("sweepTokenWithFee", token.Address(), amountMinimum, feeBips(fee.Fee), feeRecipient)
		}
		return r.paymentsExt.Pack("sweepToken", token.Address(), amountMinimum)
	}

	to, err := validateAndParseAddress(recipient)
	if err != nil {
		return nil, err
	}
	if fee != nil {
		feeRecipient, err := validateAndParseAddress(fee.Recipient)
		if err != nil {
			return nil, err
		}
		return r.payments.Pack("sweepTokenWithFee", token.Address(), amountMinimum, to, feeBips(fee.Fee), feeRecipient)
	}
	return r.payments.Pack("sweepToken", token.Address(), amountMinimum, to)
}

// EncodeRefundETH encodes the return of unspent native value to the sender.
func (r *SwapRouter) EncodeRefundETH() ([]byte, error) {
	data, err := r.payments.Pack("refundETH")
	if err != nil {
		return nil, fmt.Errorf("pack refundETH: %w", err)
	}
	return data, nil
}
