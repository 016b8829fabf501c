package account

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/userop/internal/core/domain"
)

// ERC-7579 execution mode call types (first byte of the mode word).
const (
	CallTypeSingle   byte = 0x00
	CallTypeBatch    byte = 0x01
	CallTypeDelegate byte = 0xff
)

var executeSelector = crypto.Keccak256([]byte("execute(bytes32,bytes)"))[:4]

var (
	bytes32Type, _    = abi.NewType("bytes32", "", nil)
	bytesType, _      = abi.NewType("bytes", "", nil)
	executionsType, _ = abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "target", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "callData", Type: "bytes"},
	})

	executeArgs    = abi.Arguments{{Type: bytes32Type}, {Type: bytesType}}
	executionsArgs = abi.Arguments{{Type: executionsType}}
)

type abiExecution struct {
	Target   common.Address
	Value    *big.Int
	CallData []byte
}

// ExecutionMode returns the bytes32 mode word for a call type with the
// default exec type and no selector or payload.
func ExecutionMode(callType byte) [32]byte {
	var mode [32]byte
	mode[0] = callType
	return mode
}

// EncodeExecute encodes execute(mode, executionCalldata). One call uses the
// single-call packing target ‖ value ‖ callData; more calls use the batch
// encoding abi.encode(Execution[]).
func EncodeExecute(calls []domain.Execution) ([]byte, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("no calls to execute")
	}

	var (
		mode     [32]byte
		execData []byte
	)
	if len(calls) == 1 {
		c := calls[0]
		mode = ExecutionMode(CallTypeSingle)
		execData = make([]byte, 0, common.AddressLength+32+len(c.CallData))
		execData = append(execData, c.Target.Bytes()...)
		execData = append(execData, common.LeftPadBytes(c.ValueOrZero().Bytes(), 32)...)
		execData = append(execData, c.CallData...)
	} else {
		mode = ExecutionMode(CallTypeBatch)
		batch := make([]abiExecution, len(calls))
		for i, c := range calls {
			batch[i] = abiExecution{Target: c.Target, Value: c.ValueOrZero(), CallData: orEmpty(c.CallData)}
		}
		var err error
		execData, err = executionsArgs.Pack(batch)
		if err != nil {
			return nil, fmt.Errorf("pack executions: %w", err)
		}
	}

	args, err := executeArgs.Pack(mode, execData)
	if err != nil {
		return nil, fmt.Errorf("pack execute: %w", err)
	}
	return append(common.CopyBytes(executeSelector), args...), nil
}

// DecodeExecute reverses EncodeExecute.
func DecodeExecute(data []byte) ([]domain.Execution, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], executeSelector) {
		return nil, fmt.Errorf("not an execute call")
	}
	vals, err := executeArgs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack execute: %w", err)
	}
	mode := vals[0].([32]byte)
	execData := vals[1].([]byte)

	switch mode[0] {
	case CallTypeSingle:
		if len(execData) < common.AddressLength+32 {
			return nil, fmt.Errorf("single execution too short")
		}
		return []domain.Execution{{
			Target:   common.BytesToAddress(execData[:common.AddressLength]),
			Value:    new(big.Int).SetBytes(execData[common.AddressLength : common.AddressLength+32]),
			CallData: common.CopyBytes(execData[common.AddressLength+32:]),
		}}, nil
	case CallTypeBatch:
		out, err := executionsArgs.Unpack(execData)
		if err != nil {
			return nil, fmt.Errorf("unpack executions: %w", err)
		}
		var batch []abiExecution
		if err := executionsArgs.Copy(&batch, out); err != nil {
			return nil, fmt.Errorf("copy executions: %w", err)
		}
		calls := make([]domain.Execution, len(batch))
		for i, b := range batch {
			calls[i] = domain.Execution{Target: b.Target, Value: b.Value, CallData: b.CallData}
		}
		return calls, nil
	default:
		return nil, fmt.Errorf("unsupported call type 0x%02x", mode[0])
	}
}

func orEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
