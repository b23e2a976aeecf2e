package router

import (
	"errors"

	"github.com/you/swap-router/internal/entities"
)

const permitABI = `[
    {"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"},{"internalType":"uint256","name":"deadline","type":"uint256"},{"internalType":"uint8","name":"v","type":"uint8"},{"internalType":"bytes32","name":"r","type":"bytes32"},{"internalType":"bytes32","name":"s","type":"bytes32"}],"name":"selfPermit","outputs":[],"stateMutability":"payable","type":"function"},
    {"inputs":[{"internalType":"address","name":"token","type":"address"},{"internalType":"uint256","name":"nonce","type":"uint256"},{"internalType":"uint256","name":"expiry","type":"uint256"},{"internalType":"uint8","name":"v","type":"uint8"},{"internalType":"bytes32","name":"r","type":"bytes32"},{"internalType":"bytes32","name":"s","type":"bytes32"}],"name":"selfPermitAllowed","outputs":[],"stateMutability":"payable","type":"function"}
]`

var ErrInvalidPermit = errors.New("router: permit needs amount+deadline or nonce+expiry")

// EncodePermit encodes a self-permit over the input token, choosing the
// standard or DAI-style variant by which fields are populated.
func (r *SwapRouter) EncodePermit(token *entities.Token, permit *PermitOptions) ([]byte, error) {
	switch {
	case permit.Amount != nil && permit.Deadline != nil:
		return r.permit.Pack("selfPermit", token.Address(), permit.Amount, permit.Deadline, permit.V, permit.R, permit.S)
	case permit.Nonce != nil && permit.Expiry != nil:
		return r.permit.Pack("selfPermitAllowed", token.Address(), permit.Nonce, permit.Expiry, permit.V, permit.R, permit.S)
	default:
		return nil, ErrInvalidPermit
	}
}
