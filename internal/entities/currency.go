package entities

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// Currency is either the chain's native asset or an ERC-20 token.
type Currency interface {
	IsNative() bool
	ChainID() uint64
	Decimals() uint8
	Symbol() string
	// Equal reports whether two currencies are the same asset on the same chain.
	Equal(other Currency) bool
	// Wrapped returns the ERC-20 representation used inside pools: the token
	// itself, or the canonical wrapped-native token for the native asset.
	Wrapped() *Token
}

// Token is an ERC-20 token on a specific chain.
type Token struct {
	chainID  uint64
	address  common.Address
	decimals uint8
	symbol   string
	name     string
}

func NewToken(chainID uint64, address common.Address, decimals uint8, symbol, name string) *Token {
	return &Token{chainID: chainID, address: address, decimals: decimals, symbol: symbol, name: name}
}

func (t *Token) IsNative() bool          { return false }
func (t *Token) ChainID() uint64         { return t.chainID }
func (t *Token) Decimals() uint8         { return t.decimals }
func (t *Token) Symbol() string          { return t.symbol }
func (t *Token) Name() string            { return t.name }
func (t *Token) Address() common.Address { return t.address }
func (t *Token) Wrapped() *Token         { return t }

func (t *Token) Equal(other Currency) bool {
	o, ok := other.(*Token)
	return ok && t.chainID == o.chainID && t.address == o.address
}

// SortsBefore orders tokens by address, the pool token0/token1 convention.
func (t *Token) SortsBefore(other *Token) bool {
	return bytes.Compare(t.address.Bytes(), other.address.Bytes()) < 0
}

// WETH9 is the canonical wrapped-native token per chain. Additional chains
// can be registered before building routes.
var WETH9 = map[uint64]*Token{
	1: NewToken(1, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), 18, "WETH9", "Wrapped Ether"),
}

// Ether is the chain-native asset.
type Ether struct {
	chainID uint64
}

func EtherOnChain(chainID uint64) *Ether { return &Ether{chainID: chainID} }

func (e *Ether) IsNative() bool  { return true }
func (e *Ether) ChainID() uint64 { return e.chainID }
func (e *Ether) Decimals() uint8 { return 18 }
func (e *Ether) Symbol() string  { return "ETH" }

func (e *Ether) Equal(other Currency) bool {
	o, ok := other.(*Ether)
	return ok && e.chainID == o.chainID
}

func (e *Ether) Wrapped() *Token {
	w, ok := WETH9[e.chainID]
	if !ok {
		panic("entities: no wrapped native token registered for chain")
	}
	return w
}
