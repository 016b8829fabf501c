package smartclient

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/bundler"
	"github.com/vietddude/userop/internal/infra/rpc/routing"
)

// Bundler is the bundler surface SendBatch needs.
type Bundler interface {
	GetUserOperationGasPrice(ctx context.Context) (*bundler.GasPrices, error)
	EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*bundler.GasEstimate, error)
	SendUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (common.Hash, error)
}

// Sponsor covers an operation's gas.
type Sponsor interface {
	SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*bundler.Sponsorship, error)
}

// Node is the chain state SendBatch reads.
type Node interface {
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
}

// Transports are the services a client submits through. Sponsor is nil
// for self-funded chains.
type Transports struct {
	Bundler Bundler
	Sponsor Sponsor
}

// TransportFactory creates the transports for a chain.
type TransportFactory func(chain domain.Chain) Transports

// HTTPTransports dials the chain's bundler and, unless the chain is
// self-funded, its paymaster.
func HTTPTransports(timeout time.Duration, retry routing.RetryConfig) TransportFactory {
	return func(chain domain.Chain) Transports {
		t := Transports{Bundler: bundler.Dial(chain.Bundler, timeout, retry)}
		if !chain.SelfFunded {
			var opts []bundler.PaymasterOption
			if chain.SponsorshipPolicy != "" {
				opts = append(opts, bundler.WithSponsorshipPolicy(chain.SponsorshipPolicy))
			}
			t.Sponsor = bundler.DialPaymaster(chain.PaymasterURL(), timeout, retry, opts...)
		}
		return t
	}
}
