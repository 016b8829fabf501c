package bundler

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/infra/rpc/provider"
	"github.com/vietddude/userop/internal/infra/rpc/routing"
)

// Paymaster requests gas sponsorship for user operations.
type Paymaster struct {
	p        provider.RPCProvider
	retry    routing.RetryConfig
	policyID string
}

// PaymasterOption customises a Paymaster.
type PaymasterOption func(*Paymaster)

// WithSponsorshipPolicy attaches a sponsorship policy id to every request.
func WithSponsorshipPolicy(id string) PaymasterOption {
	return func(p *Paymaster) { p.policyID = id }
}

// NewPaymaster wraps an existing provider.
func NewPaymaster(p provider.RPCProvider, retry routing.RetryConfig, opts ...PaymasterOption) *Paymaster {
	pm := &Paymaster{p: p, retry: retry}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

// DialPaymaster creates a paymaster client for url. Pimlico serves the
// paymaster namespace on the bundler URL.
func DialPaymaster(url string, timeout time.Duration, retry routing.RetryConfig, opts ...PaymasterOption) *Paymaster {
	return NewPaymaster(provider.NewHTTPProvider(paymasterProviderName, url, timeout), retry, opts...)
}

// SponsorUserOperation asks the paymaster to cover op's gas. op must carry
// a dummy signature and gas prices.
func (p *Paymaster) SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*Sponsorship, error) {
	params := []any{op, entryPoint}
	if p.policyID != "" {
		params = append(params, map[string]string{"sponsorshipPolicyId": p.policyID})
	}

	raw, err := routing.CallWithRetry(ctx, p.p, MethodSponsorUserOperation, params, p.retry)
	if err != nil {
		return nil, err
	}
	var s Sponsorship
	if err := provider.DecodeResult(raw, &s); err != nil {
		return nil, err
	}
	if s.Paymaster == (common.Address{}) {
		return nil, fmt.Errorf("%s: paymaster address missing", MethodSponsorUserOperation)
	}
	return &s, nil
}
