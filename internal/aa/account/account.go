// Package account implements the smart-account kinds a user operation can
// be sent through. Every kind executes calls through the ERC-7579 execute
// entry point; they differ in how the owner signature is produced and in
// the placeholder signature used while estimating gas.
package account

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
)

// SmartAccount is the account-specific part of user operation assembly.
type SmartAccount interface {
	Address() common.Address
	Kind() domain.AccountType
	EntryPoint() common.Address

	// EncodeCalls builds the account callData executing calls in order.
	EncodeCalls(calls []domain.Execution) ([]byte, error)

	// DummySignature returns a signature of realistic length and shape
	// for gas estimation.
	DummySignature(ctx context.Context) ([]byte, error)

	// SignUserOperation returns the owner signature for op on chainID.
	SignUserOperation(ctx context.Context, op *userop.UserOperation, chainID *big.Int) ([]byte, error)
}

// ecdsaDummySignature is a well-formed 65-byte ECDSA signature that
// recovers to some address without reverting.
var ecdsaDummySignature = common.FromHex(
	"0xfffffffffffffffffffffffffffffff000000000000000000000000000000000" +
		"7aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" +
		"1c",
)
