// Package userop models ERC-4337 v0.7 user operations: the unpacked form
// exchanged with bundlers over JSON-RPC, the packed form the EntryPoint
// hashes, and the user operation hash that accounts sign.
package userop

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EntryPointV07 is the canonical EntryPoint v0.7 deployment.
var EntryPointV07 = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

// UserOperation is the unpacked v0.7 user operation.
type UserOperation struct {
	Sender      common.Address
	Nonce       *big.Int
	Factory     *common.Address
	FactoryData []byte
	CallData    []byte

	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	Paymaster                     *common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte

	Signature []byte
}

// InitCode returns factory ‖ factoryData, or nil when no factory is set.
func (op *UserOperation) InitCode() []byte {
	if op.Factory == nil {
		return nil
	}
	return append(op.Factory.Bytes(), op.FactoryData...)
}

// SetInitCode splits factory ‖ factoryData. Empty input clears the factory.
func (op *UserOperation) SetInitCode(initCode []byte) error {
	if len(initCode) == 0 {
		op.Factory = nil
		op.FactoryData = nil
		return nil
	}
	if len(initCode) < common.AddressLength {
		return fmt.Errorf("init code too short: %d bytes", len(initCode))
	}
	factory := common.BytesToAddress(initCode[:common.AddressLength])
	op.Factory = &factory
	op.FactoryData = common.CopyBytes(initCode[common.AddressLength:])
	return nil
}

// PaymasterAndData returns the packed paymaster field, or nil when unsponsored.
func (op *UserOperation) PaymasterAndData() []byte {
	if op.Paymaster == nil {
		return nil
	}
	out := make([]byte, 0, common.AddressLength+32+len(op.PaymasterData))
	out = append(out, op.Paymaster.Bytes()...)
	out = append(out, uint128Bytes(op.PaymasterVerificationGasLimit)...)
	out = append(out, uint128Bytes(op.PaymasterPostOpGasLimit)...)
	out = append(out, op.PaymasterData...)
	return out
}

// Copy returns a deep copy of op.
func (op *UserOperation) Copy() *UserOperation {
	cp := &UserOperation{
		Sender:                        op.Sender,
		Nonce:                         copyBig(op.Nonce),
		FactoryData:                   common.CopyBytes(op.FactoryData),
		CallData:                      common.CopyBytes(op.CallData),
		CallGasLimit:                  copyBig(op.CallGasLimit),
		VerificationGasLimit:          copyBig(op.VerificationGasLimit),
		PreVerificationGas:            copyBig(op.PreVerificationGas),
		MaxFeePerGas:                  copyBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas:          copyBig(op.MaxPriorityFeePerGas),
		PaymasterVerificationGasLimit: copyBig(op.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       copyBig(op.PaymasterPostOpGasLimit),
		PaymasterData:                 common.CopyBytes(op.PaymasterData),
		Signature:                     common.CopyBytes(op.Signature),
	}
	if op.Factory != nil {
		f := *op.Factory
		cp.Factory = &f
	}
	if op.Paymaster != nil {
		p := *op.Paymaster
		cp.Paymaster = &p
	}
	return cp
}

// rpcUserOperation is the v0.7 JSON-RPC encoding used by bundlers.
type rpcUserOperation struct {
	Sender                        common.Address  `json:"sender"`
	Nonce                         *hexutil.Big    `json:"nonce"`
	Factory                       *common.Address `json:"factory,omitempty"`
	FactoryData                   hexutil.Bytes   `json:"factoryData,omitempty"`
	CallData                      hexutil.Bytes   `json:"callData"`
	CallGasLimit                  *hexutil.Big    `json:"callGasLimit"`
	VerificationGasLimit          *hexutil.Big    `json:"verificationGasLimit"`
	PreVerificationGas            *hexutil.Big    `json:"preVerificationGas"`
	MaxFeePerGas                  *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas          *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Paymaster                     *common.Address `json:"paymaster,omitempty"`
	PaymasterVerificationGasLimit *hexutil.Big    `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big    `json:"paymasterPostOpGasLimit,omitempty"`
	PaymasterData                 hexutil.Bytes   `json:"paymasterData,omitempty"`
	Signature                     hexutil.Bytes   `json:"signature"`
}

// MarshalJSON encodes op in the bundler JSON-RPC format. Unset gas fields
// are encoded as zero.
func (op UserOperation) MarshalJSON() ([]byte, error) {
	enc := rpcUserOperation{
		Sender:               op.Sender,
		Nonce:                hexBig(op.Nonce),
		Factory:              op.Factory,
		CallData:             orEmpty(op.CallData),
		CallGasLimit:         hexBig(op.CallGasLimit),
		VerificationGasLimit: hexBig(op.VerificationGasLimit),
		PreVerificationGas:   hexBig(op.PreVerificationGas),
		MaxFeePerGas:         hexBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: hexBig(op.MaxPriorityFeePerGas),
		Signature:            orEmpty(op.Signature),
	}
	if op.Factory != nil {
		enc.FactoryData = orEmpty(op.FactoryData)
	}
	if op.Paymaster != nil {
		enc.Paymaster = op.Paymaster
		enc.PaymasterVerificationGasLimit = hexBig(op.PaymasterVerificationGasLimit)
		enc.PaymasterPostOpGasLimit = hexBig(op.PaymasterPostOpGasLimit)
		enc.PaymasterData = orEmpty(op.PaymasterData)
	}
	return json.Marshal(enc)
}

// UnmarshalJSON decodes the bundler JSON-RPC format.
func (op *UserOperation) UnmarshalJSON(data []byte) error {
	var dec rpcUserOperation
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	*op = UserOperation{
		Sender:                        dec.Sender,
		Nonce:                         dec.Nonce.ToInt(),
		Factory:                       dec.Factory,
		FactoryData:                   dec.FactoryData,
		CallData:                      dec.CallData,
		CallGasLimit:                  dec.CallGasLimit.ToInt(),
		VerificationGasLimit:          dec.VerificationGasLimit.ToInt(),
		PreVerificationGas:            dec.PreVerificationGas.ToInt(),
		MaxFeePerGas:                  dec.MaxFeePerGas.ToInt(),
		MaxPriorityFeePerGas:          dec.MaxPriorityFeePerGas.ToInt(),
		Paymaster:                     dec.Paymaster,
		PaymasterVerificationGasLimit: dec.PaymasterVerificationGasLimit.ToInt(),
		PaymasterPostOpGasLimit:       dec.PaymasterPostOpGasLimit.ToInt(),
		PaymasterData:                 dec.PaymasterData,
		Signature:                     dec.Signature,
	}
	return nil
}

func hexBig(v *big.Int) *hexutil.Big {
	if v == nil {
		return (*hexutil.Big)(new(big.Int))
	}
	return (*hexutil.Big)(v)
}

func orEmpty(b []byte) hexutil.Bytes {
	if b == nil {
		return hexutil.Bytes{}
	}
	return b
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
