// Package submitter sends a batch of calls from a smart account as one
// ERC-4337 user operation.
package submitter

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/core/noncekey"
	"github.com/vietddude/userop/internal/infra/node"
	"github.com/vietddude/userop/internal/metrics"
	"github.com/vietddude/userop/internal/smartclient"
)

// ErrNoActions is returned when Params.Actions is empty.
var ErrNoActions = errors.New("at least one action is required")

// NodeClient is the chain access a submission needs.
type NodeClient interface {
	smartclient.Node
	GetAccountNonce(ctx context.Context, sender, entryPoint common.Address, key *uint256.Int) (*big.Int, error)
	Close()
}

// NodeDialer opens a NodeClient for a chain's RPC URL.
type NodeDialer func(ctx context.Context, rpcURL string) (NodeClient, error)

// DialNode is the default NodeDialer.
func DialNode(ctx context.Context, rpcURL string) (NodeClient, error) {
	c, err := node.Dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Builder builds the per-type client; *smartclient.Dispatcher implements it.
type Builder interface {
	Build(ctx context.Context, acct domain.Account, chain domain.Chain, node smartclient.Node, opts smartclient.Options) (smartclient.Client, error)
}

// Params describe one submission.
type Params struct {
	// Actions run in order within the one user operation. Required.
	Actions []domain.Execution
	Account domain.Account
	// Chain defaults to domain.DefaultChain.
	Chain *domain.Chain
	// Validator selects the nonce key; nil means noncekey.DefaultValidator.
	Validator *common.Address
	// SignUserOpHash, when set, produces the submitted signature from the
	// user operation hash instead of the account's signer.
	SignUserOpHash func(ctx context.Context, hash common.Hash) ([]byte, error)
	// GetDummySignature, when set, replaces the gas estimation signature.
	GetDummySignature func(ctx context.Context) ([]byte, error)
}

// Submitter orchestrates nonce resolution, client construction and the
// single submission.
type Submitter struct {
	builder Builder
	dial    NodeDialer
	logger  *slog.Logger
}

// Option customises a Submitter.
type Option func(*Submitter)

// WithNodeDialer overrides how node clients are opened.
func WithNodeDialer(d NodeDialer) Option {
	return func(s *Submitter) { s.dial = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Submitter) { s.logger = l }
}

// New creates a Submitter.
func New(builder Builder, opts ...Option) *Submitter {
	s := &Submitter{
		builder: builder,
		dial:    DialNode,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendUserOp submits p.Actions from p.Account and returns the user
// operation hash. Errors from every step are returned as is; nothing is
// retried.
func (s *Submitter) SendUserOp(ctx context.Context, p Params) (hash common.Hash, err error) {
	defer func() { metrics.RecordSubmission(string(p.Account.Type), err) }()

	if len(p.Actions) == 0 {
		return common.Hash{}, ErrNoActions
	}
	chain := domain.DefaultChain
	if p.Chain != nil {
		chain = *p.Chain
	}

	nc, err := s.dial(ctx, chain.RPC)
	if err != nil {
		return common.Hash{}, err
	}
	defer nc.Close()

	client, err := s.builder.Build(ctx, p.Account, chain, nc, smartclient.Options{
		SignUserOpHash: p.SignUserOpHash,
		DummySignature: p.GetDummySignature,
	})
	if err != nil {
		return common.Hash{}, err
	}

	key := noncekey.Resolve(p.Account.Type, p.Validator)
	nonce, err := nc.GetAccountNonce(ctx, p.Account.Address, client.Account().EntryPoint(), key)
	if err != nil {
		return common.Hash{}, err
	}

	log := s.logger.With(
		"account", p.Account.String(),
		"chain", chain.String(),
		"nonce_key", key.Hex(),
	)
	log.Debug("Submitting user operation", "nonce", nonce.String(), "actions", len(p.Actions))

	executions := make([]domain.Execution, len(p.Actions))
	for i, a := range p.Actions {
		executions[i] = domain.Execution{
			Target:   a.Target,
			Value:    a.ValueOrZero(),
			CallData: a.CallData,
		}
	}

	hash, err = client.SendBatch(ctx, executions, nonce)
	if err != nil {
		log.Warn("User operation rejected", "error", err)
		return common.Hash{}, err
	}
	log.Info("User operation submitted", "user_op_hash", hash.Hex())
	return hash, nil
}
