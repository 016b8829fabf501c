// Package noncekey derives the EntryPoint nonce key under which a smart
// account's user operations are sequenced.
//
// The EntryPoint keeps an independent monotonically increasing counter per
// (sender, key). Account implementations use the key to route validation to
// a specific validator module, so the key must be derived identically on
// every call for a given account type and validator.
package noncekey

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/vietddude/userop/internal/core/domain"
)

// Size is the nonce key width in bytes (uint192).
const Size = 24

// DefaultValidator is used when no validator is supplied.
var DefaultValidator = common.HexToAddress("0x503b54Ed1E62365F0c9e4caF1479623b08acbe77")

// Kernel v3 nonce key prefix: validation mode, then validation type.
const (
	kernelModeDefault byte = 0x00
	kernelTypeRoot    byte = 0x00
)

// Resolve returns the 192-bit nonce key for the account type and validator.
// A nil validator selects DefaultValidator.
//
// Kernel keys are mode ‖ type ‖ validator; every other account type uses
// the bare validator address. Both are right-padded with zeros to 24 bytes
// and read big-endian.
func Resolve(accountType domain.AccountType, validator *common.Address) *uint256.Int {
	return new(uint256.Int).SetBytes(Bytes(accountType, validator))
}

// Bytes returns the 24-byte big-endian encoding of the nonce key.
func Bytes(accountType domain.AccountType, validator *common.Address) []byte {
	v := DefaultValidator
	if validator != nil {
		v = *validator
	}

	key := make([]byte, Size)
	if accountType == domain.AccountTypeKernel {
		key[0] = kernelModeDefault
		key[1] = kernelTypeRoot
		copy(key[2:], v.Bytes())
		return key
	}
	copy(key, v.Bytes())
	return key
}
