package account

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/aa/signer"
	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
)

// NexusParams configures a Nexus account validated by the K1 (ECDSA)
// validator module.
type NexusParams struct {
	Address    common.Address
	Signer     signer.Signer
	EntryPoint common.Address
	// K1Validator is informational; the validator that checks the
	// signature is selected by the nonce key.
	K1Validator common.Address
}

// Nexus is a Nexus smart account.
type Nexus struct {
	p NexusParams
}

// NewNexus builds a Nexus account.
func NewNexus(p NexusParams) (*Nexus, error) {
	if p.Signer == nil {
		return nil, fmt.Errorf("nexus account: signer is required")
	}
	if p.EntryPoint == (common.Address{}) {
		p.EntryPoint = userop.EntryPointV07
	}
	return &Nexus{p: p}, nil
}

func (n *Nexus) Address() common.Address     { return n.p.Address }
func (n *Nexus) Kind() domain.AccountType    { return domain.AccountTypeNexus }
func (n *Nexus) EntryPoint() common.Address  { return n.p.EntryPoint }
func (n *Nexus) K1Validator() common.Address { return n.p.K1Validator }

func (n *Nexus) EncodeCalls(calls []domain.Execution) ([]byte, error) {
	return EncodeExecute(calls)
}

func (n *Nexus) DummySignature(context.Context) ([]byte, error) {
	return common.CopyBytes(ecdsaDummySignature), nil
}

func (n *Nexus) SignUserOperation(_ context.Context, op *userop.UserOperation, chainID *big.Int) ([]byte, error) {
	return signOpHashMessage(n.p.Signer, op, n.p.EntryPoint, chainID)
}
