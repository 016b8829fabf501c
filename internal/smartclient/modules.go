package smartclient

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/noncekey"
)

// Modules pins the contract addresses and versions accounts are built
// against.
type Modules struct {
	EntryPoint       common.Address
	SafeVersion      string
	Safe4337Module   common.Address
	ERC7579Launchpad common.Address
	// DefaultValidator is the validator module assumed when a caller does
	// not name one; Nexus uses it as its K1 validator.
	DefaultValidator common.Address
}

// DefaultModules are the Sepolia deployments of the Safe 4337/7579 adapter
// and launchpad used by the Safe and ERC-7579 reference accounts.
var DefaultModules = Modules{
	EntryPoint:       userop.EntryPointV07,
	SafeVersion:      "1.4.1",
	Safe4337Module:   common.HexToAddress("0x3Fdb5BC686e861480ef99A6E3FaAe03c0b9F32e2"),
	ERC7579Launchpad: common.HexToAddress("0xEBe001b3D534B9B6E2500FB78E67a1A137f561CE"),
	DefaultValidator: noncekey.DefaultValidator,
}

// withDefaults fills zero fields from DefaultModules.
func (m Modules) withDefaults() Modules {
	if m.EntryPoint == (common.Address{}) {
		m.EntryPoint = DefaultModules.EntryPoint
	}
	if m.SafeVersion == "" {
		m.SafeVersion = DefaultModules.SafeVersion
	}
	if m.Safe4337Module == (common.Address{}) {
		m.Safe4337Module = DefaultModules.Safe4337Module
	}
	if m.ERC7579Launchpad == (common.Address{}) {
		m.ERC7579Launchpad = DefaultModules.ERC7579Launchpad
	}
	if m.DefaultValidator == (common.Address{}) {
		m.DefaultValidator = DefaultModules.DefaultValidator
	}
	return m
}
