package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AccountType tags the smart-account implementation behind an address.
type AccountType string

const (
	AccountTypeERC7579 AccountType = "erc7579-implementation"
	AccountTypeSafe    AccountType = "safe"
	AccountTypeKernel  AccountType = "kernel"
	AccountTypeNexus   AccountType = "nexus"
)

// AccountTypes lists every supported account type.
var AccountTypes = []AccountType{
	AccountTypeERC7579,
	AccountTypeSafe,
	AccountTypeKernel,
	AccountTypeNexus,
}

// Valid reports whether t is one of the supported account types.
func (t AccountType) Valid() bool {
	return slices.Contains(AccountTypes, t)
}

// ParseAccountType parses a tag case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &UnknownAccountTypeError{Type: t}
	}
	return t, nil
}

// Account describes a smart-contract account known to the caller.
type Account struct {
	Name             string
	Address          common.Address
	Type             AccountType
	DeployedOnChains []ChainID
	// InitCode is factory ‖ factoryData for accounts not yet deployed.
	InitCode []byte
}

// DeployedOn reports whether the account is recorded as deployed on chain.
func (a Account) DeployedOn(chain ChainID) bool {
	return slices.Contains(a.DeployedOnChains, chain)
}

func (a Account) String() string {
	if a.Name != "" {
		return fmt.Sprintf("%s(%s %s)", a.Name, a.Type, a.Address.Hex())
	}
	return fmt.Sprintf("%s %s", a.Type, a.Address.Hex())
}

// Registry holds static account descriptors keyed by name.
type Registry struct {
	accounts []Account
}

// NewRegistry creates a registry. Names must be unique.
func NewRegistry(accounts ...Account) (*Registry, error) {
	seen := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		key := strings.ToLower(a.Name)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("duplicate account name %q", a.Name)
		}
		seen[key] = struct{}{}
	}
	return &Registry{accounts: slices.Clone(accounts)}, nil
}

// Lookup finds an account by name or by hex address.
func (r *Registry) Lookup(nameOrAddress string) (Account, bool) {
	for _, a := range r.accounts {
		if strings.EqualFold(a.Name, nameOrAddress) {
			return a, true
		}
	}
	if common.IsHexAddress(nameOrAddress) {
		addr := common.HexToAddress(nameOrAddress)
		for _, a := range r.accounts {
			if a.Address == addr {
				return a, true
			}
		}
	}
	return Account{}, false
}

// All returns every registered account in registration order.
func (r *Registry) All() []Account {
	return slices.Clone(r.accounts)
}
