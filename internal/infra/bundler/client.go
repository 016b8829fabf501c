// Package bundler is a JSON-RPC client for ERC-4337 bundler and
// paymaster services.
package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/infra/rpc/provider"
	"github.com/vietddude/userop/internal/infra/rpc/routing"
)

const (
	MethodSendUserOperation    = "eth_sendUserOperation"
	MethodEstimateUserOpGas    = "eth_estimateUserOperationGas"
	MethodGetUserOpReceipt     = "eth_getUserOperationReceipt"
	MethodGetUserOpByHash      = "eth_getUserOperationByHash"
	MethodSupportedEntryPoints = "eth_supportedEntryPoints"
	MethodChainID              = "eth_chainId"
	MethodGetUserOpGasPrice    = "pimlico_getUserOperationGasPrice"
	MethodSponsorUserOperation = "pm_sponsorUserOperation"
)

const (
	bundlerProviderName   = "bundler"
	paymasterProviderName = "paymaster"
)

// Client talks to one bundler endpoint. Reads are retried per the retry
// config; eth_sendUserOperation is sent exactly once.
type Client struct {
	p     provider.RPCProvider
	retry routing.RetryConfig
}

// NewClient wraps an existing provider.
func NewClient(p provider.RPCProvider, retry routing.RetryConfig) *Client {
	return &Client{p: p, retry: retry}
}

// Dial creates a client for the bundler at url.
func Dial(url string, timeout time.Duration, retry routing.RetryConfig, opts ...provider.HTTPOption) *Client {
	return NewClient(provider.NewHTTPProvider(bundlerProviderName, url, timeout, opts...), retry)
}

// Provider exposes the underlying transport, e.g. for health reporting.
func (c *Client) Provider() provider.RPCProvider {
	return c.p
}

func (c *Client) read(ctx context.Context, out any, method string, params ...any) error {
	raw, err := routing.CallWithRetry(ctx, c.p, method, params, c.retry)
	if err != nil {
		return err
	}
	return provider.DecodeResult(raw, out)
}

// SendUserOperation submits a signed operation and returns its hash.
func (c *Client) SendUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (common.Hash, error) {
	var hash common.Hash
	if err := provider.CallResult(ctx, c.p, &hash, MethodSendUserOperation, op, entryPoint); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// EstimateUserOperationGas asks the bundler for gas limits. op must carry
// a dummy signature.
func (c *Client) EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*GasEstimate, error) {
	var est GasEstimate
	if err := c.read(ctx, &est, MethodEstimateUserOpGas, op, entryPoint); err != nil {
		return nil, err
	}
	if est.CallGasLimit == nil || est.VerificationGasLimit == nil || est.PreVerificationGas == nil {
		return nil, fmt.Errorf("%s: incomplete gas estimate", MethodEstimateUserOpGas)
	}
	return &est, nil
}

// GetUserOperationGasPrice returns the slow/standard/fast fee tiers.
func (c *Client) GetUserOperationGasPrice(ctx context.Context) (*GasPrices, error) {
	var prices GasPrices
	if err := c.read(ctx, &prices, MethodGetUserOpGasPrice); err != nil {
		return nil, err
	}
	if prices.Fast.MaxFeePerGas == nil || prices.Fast.MaxPriorityFeePerGas == nil {
		return nil, fmt.Errorf("%s: missing fast tier", MethodGetUserOpGasPrice)
	}
	return &prices, nil
}

// GetUserOperationReceipt returns nil, nil while the operation is pending.
func (c *Client) GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var raw json.RawMessage
	if err := c.read(ctx, &raw, MethodGetUserOpReceipt, hash); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &receipt, nil
}

// GetUserOperationByHash returns nil, nil for unknown operations.
func (c *Client) GetUserOperationByHash(ctx context.Context, hash common.Hash) (*OperationByHash, error) {
	var raw json.RawMessage
	if err := c.read(ctx, &raw, MethodGetUserOpByHash, hash); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var res OperationByHash
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode user operation: %w", err)
	}
	return &res, nil
}

// SupportedEntryPoints lists the EntryPoints the bundler accepts.
func (c *Client) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	var eps []common.Address
	if err := c.read(ctx, &eps, MethodSupportedEntryPoints); err != nil {
		return nil, err
	}
	return eps, nil
}

// ChainID returns the chain the bundler serves.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := c.read(ctx, &id, MethodChainID); err != nil {
		return nil, err
	}
	return id.ToInt(), nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.p.Close()
}
