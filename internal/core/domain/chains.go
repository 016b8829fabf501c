package domain

import (
	"fmt"
	"math/big"
)

// ChainID is the EIP-155 numeric chain identifier.
type ChainID uint64

const (
	ChainIDMainnet ChainID = 1
	ChainIDSepolia ChainID = 11155111
	ChainIDAnvil   ChainID = 31337
)

// Chain identifies a target network and the services used to reach it.
type Chain struct {
	Name    string  `yaml:"name"    json:"name"`
	ID      ChainID `yaml:"id"      json:"id"`
	RPC     string  `yaml:"rpc"     json:"rpc"`
	Bundler string  `yaml:"bundler" json:"bundler"`
	// Paymaster is the sponsorship endpoint; empty means the bundler URL.
	Paymaster string `yaml:"paymaster,omitempty" json:"paymaster,omitempty"`
	// SelfFunded skips paymaster sponsorship; the account pays for gas.
	SelfFunded bool `yaml:"self_funded,omitempty" json:"self_funded,omitempty"`
	// SponsorshipPolicy is forwarded to the paymaster when set.
	SponsorshipPolicy string `yaml:"sponsorship_policy,omitempty" json:"sponsorship_policy,omitempty"`
}

// PaymasterURL returns the endpoint used for sponsorship requests.
func (c Chain) PaymasterURL() string {
	if c.Paymaster != "" {
		return c.Paymaster
	}
	return c.Bundler
}

// BigID returns the chain id as a *big.Int for hashing and signing.
func (c Chain) BigID() *big.Int {
	return new(big.Int).SetUint64(uint64(c.ID))
}

func (c Chain) String() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID.String()
}

// DefaultChain is used when a caller does not supply a chain: the Sepolia
// chain id served by a local node and a local bundler.
var DefaultChain = Chain{
	Name:    "local",
	ID:      ChainIDSepolia,
	RPC:     "http://localhost:8545",
	Bundler: "http://localhost:4337",
}

// ChainIDToName maps well-known chain ids to display names.
var ChainIDToName = map[ChainID]string{
	ChainIDMainnet: "mainnet",
	ChainIDSepolia: "sepolia",
	ChainIDAnvil:   "anvil",
}

func (id ChainID) String() string {
	if name, ok := ChainIDToName[id]; ok {
		return fmt.Sprintf("%s(%d)", name, uint64(id))
	}
	return fmt.Sprintf("%d", uint64(id))
}
