package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Execution is a single call made by the smart account.
type Execution struct {
	Target   common.Address
	Value    *big.Int
	CallData []byte
}

// ValueOrZero returns the call value, treating nil as zero.
func (e Execution) ValueOrZero() *big.Int {
	if e.Value == nil {
		return new(big.Int)
	}
	return e.Value
}
