// Package smartclient builds per-account-type clients that assemble, sign
// and submit ERC-4337 user operations.
package smartclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/aa/account"
	"github.com/vietddude/userop/internal/aa/signer"
	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/rpc/routing"
)

// Options change how a built client signs. Both are optional.
type Options struct {
	// SignUserOpHash replaces the account's signer: the client computes the
	// user operation hash and submits whatever this returns as signature.
	SignUserOpHash func(ctx context.Context, hash common.Hash) ([]byte, error)
	// DummySignature replaces the account's gas-estimation signature.
	DummySignature func(ctx context.Context) ([]byte, error)
}

// Dispatcher maps an account type to the account construction and
// middleware it needs.
type Dispatcher struct {
	signer     signer.Signer
	modules    Modules
	transports TransportFactory
	logger     *slog.Logger
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithModules overrides the pinned contract addresses.
func WithModules(m Modules) DispatcherOption {
	return func(d *Dispatcher) { d.modules = m.withDefaults() }
}

// WithTransports overrides how bundler and paymaster clients are made.
func WithTransports(f TransportFactory) DispatcherOption {
	return func(d *Dispatcher) { d.transports = f }
}

// WithLogger sets the logger handed to built clients.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a dispatcher whose accounts are owned by s.
func NewDispatcher(s signer.Signer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		signer:     s,
		modules:    DefaultModules,
		transports: HTTPTransports(30*time.Second, routing.DefaultRetryConfig),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Modules returns the pinned contract addresses in use.
func (d *Dispatcher) Modules() Modules {
	return d.modules
}

// Build returns a client for acct on chain. Unknown account types yield
// *domain.UnknownAccountTypeError and nothing is built.
func (d *Dispatcher) Build(ctx context.Context, acct domain.Account, chain domain.Chain, node Node, opts Options) (Client, error) {
	smart, err := d.account(acct)
	if err != nil {
		return nil, err
	}

	t := d.transports(chain)
	return &client{
		account:  smart,
		info:     acct,
		chain:    chain,
		node:     node,
		bundler:  t.Bundler,
		sponsor:  t.Sponsor,
		opts:     opts,
		logger:   d.logger.With("account", acct.String(), "type", string(acct.Type), "chain", chain.String()),
		gasPrice: gasPriceFast,
	}, nil
}

func (d *Dispatcher) account(acct domain.Account) (account.SmartAccount, error) {
	m := d.modules
	switch acct.Type {
	case domain.AccountTypeSafe:
		return d.safe(acct, domain.AccountTypeSafe)
	case domain.AccountTypeERC7579:
		return d.safe(acct, domain.AccountTypeERC7579)
	case domain.AccountTypeKernel:
		k, err := account.NewKernel(account.KernelParams{
			Address:    acct.Address,
			Signer:     d.signer,
			EntryPoint: m.EntryPoint,
		})
		if err != nil {
			return nil, err
		}
		return k, nil
	case domain.AccountTypeNexus:
		n, err := account.NewNexus(account.NexusParams{
			Address:     acct.Address,
			Signer:      d.signer,
			EntryPoint:  m.EntryPoint,
			K1Validator: m.DefaultValidator,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, &domain.UnknownAccountTypeError{Type: acct.Type}
	}
}

func (d *Dispatcher) safe(acct domain.Account, kind domain.AccountType) (account.SmartAccount, error) {
	m := d.modules
	s, err := account.NewSafe(account.SafeParams{
		Address:          acct.Address,
		Signer:           d.signer,
		EntryPoint:       m.EntryPoint,
		SafeVersion:      m.SafeVersion,
		Safe4337Module:   m.Safe4337Module,
		ERC7579Launchpad: m.ERC7579Launchpad,
		Kind:             kind,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s account: %w", kind, err)
	}
	return s, nil
}
