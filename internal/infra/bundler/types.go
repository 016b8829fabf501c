package bundler

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/userop/internal/aa/userop"
)

// GasEstimate is the eth_estimateUserOperationGas result for EntryPoint
// v0.7. Paymaster limits are only present when the operation carries a
// paymaster.
type GasEstimate struct {
	PreVerificationGas            *hexutil.Big `json:"preVerificationGas"`
	VerificationGasLimit          *hexutil.Big `json:"verificationGasLimit"`
	CallGasLimit                  *hexutil.Big `json:"callGasLimit"`
	PaymasterVerificationGasLimit *hexutil.Big `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big `json:"paymasterPostOpGasLimit,omitempty"`
}

// Apply copies the estimated limits onto op.
func (g *GasEstimate) Apply(op *userop.UserOperation) {
	setBig(&op.PreVerificationGas, g.PreVerificationGas)
	setBig(&op.VerificationGasLimit, g.VerificationGasLimit)
	setBig(&op.CallGasLimit, g.CallGasLimit)
	setBig(&op.PaymasterVerificationGasLimit, g.PaymasterVerificationGasLimit)
	setBig(&op.PaymasterPostOpGasLimit, g.PaymasterPostOpGasLimit)
}

// GasPrice is one fee tier.
type GasPrice struct {
	MaxFeePerGas         *hexutil.Big `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas"`
}

// Apply copies the fee tier onto op.
func (g GasPrice) Apply(op *userop.UserOperation) {
	setBig(&op.MaxFeePerGas, g.MaxFeePerGas)
	setBig(&op.MaxPriorityFeePerGas, g.MaxPriorityFeePerGas)
}

// GasPrices is the pimlico_getUserOperationGasPrice result.
type GasPrices struct {
	Slow     GasPrice `json:"slow"`
	Standard GasPrice `json:"standard"`
	Fast     GasPrice `json:"fast"`
}

// Sponsorship is the pm_sponsorUserOperation result for EntryPoint v0.7.
type Sponsorship struct {
	Paymaster                     common.Address `json:"paymaster"`
	PaymasterData                 hexutil.Bytes  `json:"paymasterData"`
	PaymasterVerificationGasLimit *hexutil.Big   `json:"paymasterVerificationGasLimit"`
	PaymasterPostOpGasLimit       *hexutil.Big   `json:"paymasterPostOpGasLimit"`
	PreVerificationGas            *hexutil.Big   `json:"preVerificationGas"`
	VerificationGasLimit          *hexutil.Big   `json:"verificationGasLimit"`
	CallGasLimit                  *hexutil.Big   `json:"callGasLimit"`
}

// Apply sets the paymaster fields and the gas limits the paymaster
// estimated onto op.
func (s *Sponsorship) Apply(op *userop.UserOperation) {
	pm := s.Paymaster
	op.Paymaster = &pm
	op.PaymasterData = common.CopyBytes(s.PaymasterData)
	setBig(&op.PaymasterVerificationGasLimit, s.PaymasterVerificationGasLimit)
	setBig(&op.PaymasterPostOpGasLimit, s.PaymasterPostOpGasLimit)
	setBig(&op.PreVerificationGas, s.PreVerificationGas)
	setBig(&op.VerificationGasLimit, s.VerificationGasLimit)
	setBig(&op.CallGasLimit, s.CallGasLimit)
}

// TxReceipt is the subset of the bundle transaction receipt we use.
type TxReceipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockHash       common.Hash    `json:"blockHash"`
	BlockNumber     *hexutil.Big   `json:"blockNumber"`
	Status          hexutil.Uint64 `json:"status"`
	GasUsed         *hexutil.Big   `json:"gasUsed"`
}

// Receipt is the eth_getUserOperationReceipt result.
type Receipt struct {
	UserOpHash    common.Hash     `json:"userOpHash"`
	EntryPoint    common.Address  `json:"entryPoint"`
	Sender        common.Address  `json:"sender"`
	Nonce         *hexutil.Big    `json:"nonce"`
	Paymaster     *common.Address `json:"paymaster,omitempty"`
	ActualGasCost *hexutil.Big    `json:"actualGasCost"`
	ActualGasUsed *hexutil.Big    `json:"actualGasUsed"`
	Success       bool            `json:"success"`
	Reason        string          `json:"reason,omitempty"`
	Receipt       TxReceipt       `json:"receipt"`
}

// OperationByHash is the eth_getUserOperationByHash result.
type OperationByHash struct {
	UserOperation   *userop.UserOperation `json:"userOperation"`
	EntryPoint      common.Address        `json:"entryPoint"`
	TransactionHash common.Hash           `json:"transactionHash"`
	BlockHash       common.Hash           `json:"blockHash"`
	BlockNumber     *hexutil.Big          `json:"blockNumber"`
}

func setBig(dst **big.Int, v *hexutil.Big) {
	if v != nil {
		*dst = new(big.Int).Set(v.ToInt())
	}
}
