package userop

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PackedUserOperation is the on-chain v0.7 representation.
type PackedUserOperation struct {
	Sender             common.Address `abi:"sender"`
	Nonce              *big.Int       `abi:"nonce"`
	InitCode           []byte         `abi:"initCode"`
	CallData           []byte         `abi:"callData"`
	AccountGasLimits   [32]byte       `abi:"accountGasLimits"`
	PreVerificationGas *big.Int       `abi:"preVerificationGas"`
	GasFees            [32]byte       `abi:"gasFees"`
	PaymasterAndData   []byte         `abi:"paymasterAndData"`
	Signature          []byte         `abi:"signature"`
}

// Pack converts op into its packed form.
func (op *UserOperation) Pack() PackedUserOperation {
	return PackedUserOperation{
		Sender:             op.Sender,
		Nonce:              orZero(op.Nonce),
		InitCode:           orEmpty(op.InitCode()),
		CallData:           orEmpty(op.CallData),
		AccountGasLimits:   packPair(op.VerificationGasLimit, op.CallGasLimit),
		PreVerificationGas: orZero(op.PreVerificationGas),
		GasFees:            packPair(op.MaxPriorityFeePerGas, op.MaxFeePerGas),
		PaymasterAndData:   orEmpty(op.PaymasterAndData()),
		Signature:          orEmpty(op.Signature),
	}
}

var (
	addressT, _ = abi.NewType("address", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)
	bytes32T, _ = abi.NewType("bytes32", "", nil)

	innerArgs = abi.Arguments{
		{Name: "sender", Type: addressT},
		{Name: "nonce", Type: uint256T},
		{Name: "hashInitCode", Type: bytes32T},
		{Name: "hashCallData", Type: bytes32T},
		{Name: "accountGasLimits", Type: bytes32T},
		{Name: "preVerificationGas", Type: uint256T},
		{Name: "gasFees", Type: bytes32T},
		{Name: "hashPaymasterAndData", Type: bytes32T},
	}
	outerArgs = abi.Arguments{
		{Name: "opHash", Type: bytes32T},
		{Name: "entryPoint", Type: addressT},
		{Name: "chainId", Type: uint256T},
	}
)

// Hash returns the user operation hash as computed by EntryPoint v0.7
// getUserOpHash. The signature field is not part of the hash.
func Hash(op *UserOperation, entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	p := op.Pack()
	inner, err := innerArgs.Pack(
		p.Sender,
		p.Nonce,
		crypto.Keccak256Hash(p.InitCode),
		crypto.Keccak256Hash(p.CallData),
		p.AccountGasLimits,
		p.PreVerificationGas,
		p.GasFees,
		crypto.Keccak256Hash(p.PaymasterAndData),
	)
	if err != nil {
		return common.Hash{}, err
	}
	outer, err := outerArgs.Pack(crypto.Keccak256Hash(inner), entryPoint, orZero(chainID))
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(outer), nil
}

// packPair packs two uint128 values into one bytes32, hi first.
func packPair(hi, lo *big.Int) [32]byte {
	var out [32]byte
	copy(out[:16], uint128Bytes(hi))
	copy(out[16:], uint128Bytes(lo))
	return out
}

// uint128Bytes returns the 16-byte big-endian encoding of v, truncated to
// its low 128 bits.
func uint128Bytes(v *big.Int) []byte {
	out := make([]byte, 16)
	if v == nil || v.Sign() <= 0 {
		return out
	}
	b := v.Bytes()
	if len(b) > 16 {
		b = b[len(b)-16:]
	}
	copy(out[16-len(b):], b)
	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
