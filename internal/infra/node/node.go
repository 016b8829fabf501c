// Package node reads chain state the submitter needs from an execution
// client.
package node

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
)

const entryPointNonceABI = `[{
	"type": "function",
	"name": "getNonce",
	"stateMutability": "view",
	"inputs": [
		{"name": "sender", "type": "address"},
		{"name": "key", "type": "uint192"}
	],
	"outputs": [{"name": "nonce", "type": "uint256"}]
}]`

var entryPointABI = mustParseABI(entryPointNonceABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Backend is the subset of ethclient.Client used here.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Client is a read-only view of one chain.
type Client struct {
	backend Backend
}

// Dial connects to the execution client at rpcURL.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial node %s: %w", rpcURL, err)
	}
	return &Client{backend: ec}, nil
}

// NewClient wraps an existing backend.
func NewClient(b Backend) *Client {
	return &Client{backend: b}
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.backend.ChainID(ctx)
}

// CodeAt returns the latest runtime code at addr.
func (c *Client) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return c.backend.CodeAt(ctx, addr, nil)
}

// IsDeployed reports whether addr has code.
func (c *Client) IsDeployed(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.CodeAt(ctx, addr)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// GetAccountNonce returns EntryPoint.getNonce(sender, key): the full
// 256-bit nonce, key in the upper 192 bits and sequence in the lower 64.
func (c *Client) GetAccountNonce(ctx context.Context, sender, entryPoint common.Address, key *uint256.Int) (*big.Int, error) {
	if key == nil {
		key = new(uint256.Int)
	}
	if key.BitLen() > 192 {
		return nil, fmt.Errorf("nonce key exceeds 192 bits")
	}

	data, err := entryPointABI.Pack("getNonce", sender, key.ToBig())
	if err != nil {
		return nil, fmt.Errorf("pack getNonce: %w", err)
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &entryPoint, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	res, err := entryPointABI.Unpack("getNonce", out)
	if err != nil {
		return nil, fmt.Errorf("unpack getNonce: %w", err)
	}
	nonce, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getNonce result %T", res[0])
	}
	return nonce, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.backend.Close()
}
