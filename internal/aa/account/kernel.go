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

// KernelParams configures an ECDSA-validated Kernel v3 account.
type KernelParams struct {
	Address    common.Address
	Signer     signer.Signer
	EntryPoint common.Address
}

// Kernel is a Kernel v3 account whose root validator is the ECDSA
// validator. Its owner signs the user operation hash as an EIP-191
// personal message.
type Kernel struct {
	p KernelParams
}

// NewKernel builds a Kernel account.
func NewKernel(p KernelParams) (*Kernel, error) {
	if p.Signer == nil {
		return nil, fmt.Errorf("kernel account: signer is required")
	}
	if p.EntryPoint == (common.Address{}) {
		p.EntryPoint = userop.EntryPointV07
	}
	return &Kernel{p: p}, nil
}

func (k *Kernel) Address() common.Address    { return k.p.Address }
func (k *Kernel) Kind() domain.AccountType   { return domain.AccountTypeKernel }
func (k *Kernel) EntryPoint() common.Address { return k.p.EntryPoint }

func (k *Kernel) EncodeCalls(calls []domain.Execution) ([]byte, error) {
	return EncodeExecute(calls)
}

func (k *Kernel) DummySignature(context.Context) ([]byte, error) {
	return common.CopyBytes(ecdsaDummySignature), nil
}

func (k *Kernel) SignUserOperation(_ context.Context, op *userop.UserOperation, chainID *big.Int) ([]byte, error) {
	return signOpHashMessage(k.p.Signer, op, k.p.EntryPoint, chainID)
}

// signOpHashMessage signs the user operation hash as a personal message.
func signOpHashMessage(s signer.Signer, op *userop.UserOperation, entryPoint common.Address, chainID *big.Int) ([]byte, error) {
	hash, err := userop.Hash(op, entryPoint, chainID)
	if err != nil {
		return nil, fmt.Errorf("hash user operation: %w", err)
	}
	return signer.SignMessage(s, hash[:])
}
