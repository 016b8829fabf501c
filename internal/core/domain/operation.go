package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// OperationStatus is the lifecycle state of a journaled user operation.
type OperationStatus string

const (
	OperationStatusSubmitted OperationStatus = "submitted"
	OperationStatusIncluded  OperationStatus = "included"
	OperationStatusReverted  OperationStatus = "reverted"
	OperationStatusError     OperationStatus = "error"
)

// Operation is a journal entry for one SendUserOp invocation.
type Operation struct {
	ID          string          `json:"id"`
	Account     common.Address  `json:"account"`
	AccountType AccountType     `json:"account_type"`
	ChainID     ChainID         `json:"chain_id"`
	NonceKey    string          `json:"nonce_key"`
	UserOpHash  common.Hash     `json:"user_op_hash"`
	TxHash      common.Hash     `json:"tx_hash"`
	Status      OperationStatus `json:"status"`
	Error       string          `json:"error"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
