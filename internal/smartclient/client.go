package smartclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/aa/account"
	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/bundler"
)

// ErrNoExecutions is returned by SendBatch for an empty batch.
var ErrNoExecutions = errors.New("no executions to send")

// Client submits user operations for one account on one chain.
type Client interface {
	// Account returns the smart account the client submits for.
	Account() account.SmartAccount
	// Chain returns the chain the client submits to.
	Chain() domain.Chain
	// SendBatch executes calls in order in one user operation with the
	// given full nonce and returns the user operation hash.
	SendBatch(ctx context.Context, executions []domain.Execution, nonce *big.Int) (common.Hash, error)
}

type client struct {
	account  account.SmartAccount
	info     domain.Account
	chain    domain.Chain
	node     Node
	bundler  Bundler
	sponsor  Sponsor
	opts     Options
	logger   *slog.Logger
	gasPrice func(*bundler.GasPrices) bundler.GasPrice
}

func gasPriceFast(p *bundler.GasPrices) bundler.GasPrice { return p.Fast }

func (c *client) Account() account.SmartAccount { return c.account }
func (c *client) Chain() domain.Chain           { return c.chain }

func (c *client) SendBatch(ctx context.Context, executions []domain.Execution, nonce *big.Int) (common.Hash, error) {
	if len(executions) == 0 {
		return common.Hash{}, ErrNoExecutions
	}

	op, err := c.prepare(ctx, executions, nonce)
	if err != nil {
		return common.Hash{}, err
	}

	sig, err := c.sign(ctx, op)
	if err != nil {
		return common.Hash{}, err
	}
	op.Signature = sig

	hash, err := c.bundler.SendUserOperation(ctx, op, c.account.EntryPoint())
	if err != nil {
		return common.Hash{}, err
	}
	c.logger.Info("User operation sent", "user_op_hash", hash.Hex(), "calls", len(executions))
	return hash, nil
}

// prepare builds an unsigned operation with gas prices, gas limits and,
// when sponsored, paymaster fields.
func (c *client) prepare(ctx context.Context, executions []domain.Execution, nonce *big.Int) (*userop.UserOperation, error) {
	callData, err := c.account.EncodeCalls(executions)
	if err != nil {
		return nil, fmt.Errorf("encode calls: %w", err)
	}

	op := &userop.UserOperation{
		Sender:   c.account.Address(),
		Nonce:    new(big.Int).Set(nonceOrZero(nonce)),
		CallData: callData,
	}

	if len(c.info.InitCode) > 0 {
		code, err := c.node.CodeAt(ctx, op.Sender)
		if err != nil {
			return nil, fmt.Errorf("check deployment: %w", err)
		}
		if len(code) == 0 {
			if err := op.SetInitCode(c.info.InitCode); err != nil {
				return nil, err
			}
			c.logger.Debug("Account not deployed, attaching init code", "factory", op.Factory.Hex())
		}
	}

	prices, err := c.bundler.GetUserOperationGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	c.gasPrice(prices).Apply(op)

	dummy, err := c.dummySignature(ctx)
	if err != nil {
		return nil, err
	}
	op.Signature = dummy

	if c.sponsor != nil {
		s, err := c.sponsor.SponsorUserOperation(ctx, op, c.account.EntryPoint())
		if err != nil {
			return nil, err
		}
		s.Apply(op)
		c.logger.Debug("User operation sponsored", "paymaster", s.Paymaster.Hex())
	} else {
		est, err := c.bundler.EstimateUserOperationGas(ctx, op, c.account.EntryPoint())
		if err != nil {
			return nil, err
		}
		est.Apply(op)
	}
	return op, nil
}

func (c *client) dummySignature(ctx context.Context) ([]byte, error) {
	if c.opts.DummySignature != nil {
		return c.opts.DummySignature(ctx)
	}
	return c.account.DummySignature(ctx)
}

func (c *client) sign(ctx context.Context, op *userop.UserOperation) ([]byte, error) {
	chainID := c.chain.BigID()
	if c.opts.SignUserOpHash == nil {
		return c.account.SignUserOperation(ctx, op, chainID)
	}
	hash, err := userop.Hash(op, c.account.EntryPoint(), chainID)
	if err != nil {
		return nil, err
	}
	return c.opts.SignUserOpHash(ctx, hash)
}

func nonceOrZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}
