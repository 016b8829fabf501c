package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/core/domain"
	redisclient "github.com/vietddude/userop/internal/infra/redis"
	"github.com/vietddude/userop/internal/infra/rpc/routing"
	"github.com/vietddude/userop/internal/infra/storage/postgres"
	"github.com/vietddude/userop/internal/smartclient"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Logging    LoggingConfig   `yaml:"logging"`
	Signer     SignerConfig    `yaml:"signer"`
	EntryPoint string          `yaml:"entry_point"`
	Modules    ModulesConfig   `yaml:"modules"`
	RPC        RPCConfig       `yaml:"rpc"`
	Chains     []ChainConfig   `yaml:"chains"`
	Accounts   []AccountConfig `yaml:"accounts"`
	Journal    JournalConfig   `yaml:"journal"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SignerConfig selects the account owner key: a raw private key or an
// encrypted keystore file.
type SignerConfig struct {
	PrivateKey       string `yaml:"private_key"`
	KeystorePath     string `yaml:"keystore_path"`
	KeystorePassword string `yaml:"keystore_password"`
}

// ModulesConfig pins contract deployments. Empty fields keep the defaults.
type ModulesConfig struct {
	SafeVersion      string `yaml:"safe_version"`
	Safe4337Module   string `yaml:"safe_4337_module"`
	ERC7579Launchpad string `yaml:"erc7579_launchpad"`
	DefaultValidator string `yaml:"default_validator"`
}

// RPCConfig holds bundler/paymaster transport settings.
type RPCConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// MaxAttempts bounds retries of idempotent reads. Submissions are
	// never retried.
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// ChainConfig holds settings for a specific chain.
type ChainConfig struct {
	Name              string         `yaml:"name"`
	ID                domain.ChainID `yaml:"id"`
	RPC               string         `yaml:"rpc"`
	Bundler           string         `yaml:"bundler"`
	Paymaster         string         `yaml:"paymaster"`
	SelfFunded        bool           `yaml:"self_funded"`
	SponsorshipPolicy string         `yaml:"sponsorship_policy"`
}

// AccountConfig describes one smart account.
type AccountConfig struct {
	Name     string   `yaml:"name"`
	Address  string   `yaml:"address"`
	Type     string   `yaml:"type"`
	Chains   []uint64 `yaml:"chains"`
	InitCode string   `yaml:"init_code"`
}

// JournalConfig selects where submissions are recorded.
type JournalConfig struct {
	Backend  string             `yaml:"backend"` // memory, postgres, redis
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
}

const (
	JournalMemory   = "memory"
	JournalPostgres = "postgres"
	JournalRedis    = "redis"
)

// MetricsConfig holds the prometheus listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// Chain converts the config entry to a chain descriptor.
func (c ChainConfig) Chain() domain.Chain {
	return domain.Chain{
		Name:       c.Name,
		ID:         c.ID,
		RPC:        c.RPC,
		Bundler:    c.Bundler,
		Paymaster:  c.Paymaster,
		SelfFunded: c.SelfFunded,

		SponsorshipPolicy: c.SponsorshipPolicy,
	}
}

// Account parses the config entry into an account descriptor.
func (a AccountConfig) Account() (domain.Account, error) {
	if !common.IsHexAddress(a.Address) {
		return domain.Account{}, fmt.Errorf("account %q: invalid address %q", a.Name, a.Address)
	}
	typ, err := domain.ParseAccountType(a.Type)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %q: %w", a.Name, err)
	}

	acct := domain.Account{
		Name:    a.Name,
		Address: common.HexToAddress(a.Address),
		Type:    typ,
	}
	for _, id := range a.Chains {
		acct.DeployedOnChains = append(acct.DeployedOnChains, domain.ChainID(id))
	}
	if a.InitCode != "" {
		if !strings.HasPrefix(a.InitCode, "0x") {
			return domain.Account{}, fmt.Errorf("account %q: init_code must be 0x-prefixed hex", a.Name)
		}
		acct.InitCode = common.FromHex(a.InitCode)
		if len(acct.InitCode) < common.AddressLength {
			return domain.Account{}, fmt.Errorf("account %q: init_code shorter than a factory address", a.Name)
		}
	}
	return acct, nil
}

// Registry builds the account registry from the accounts section.
func (c *AppConfig) Registry() (*domain.Registry, error) {
	accounts := make([]domain.Account, 0, len(c.Accounts))
	for _, ac := range c.Accounts {
		acct, err := ac.Account()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return domain.NewRegistry(accounts...)
}

// FindChain looks a chain up by name (case-insensitive) or numeric id.
func (c *AppConfig) FindChain(nameOrID string) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if strings.EqualFold(ch.Name, nameOrID) || fmt.Sprintf("%d", uint64(ch.ID)) == nameOrID {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

// SmartclientModules resolves the modules section, filling defaults.
func (c *AppConfig) SmartclientModules() (smartclient.Modules, error) {
	m := smartclient.DefaultModules
	if c.EntryPoint != "" {
		addr, err := parseAddress("entry_point", c.EntryPoint)
		if err != nil {
			return m, err
		}
		m.EntryPoint = addr
	}
	if c.Modules.SafeVersion != "" {
		m.SafeVersion = c.Modules.SafeVersion
	}
	for _, f := range []struct {
		name string
		val  string
		dst  *common.Address
	}{
		{"modules.safe_4337_module", c.Modules.Safe4337Module, &m.Safe4337Module},
		{"modules.erc7579_launchpad", c.Modules.ERC7579Launchpad, &m.ERC7579Launchpad},
		{"modules.default_validator", c.Modules.DefaultValidator, &m.DefaultValidator},
	} {
		if f.val == "" {
			continue
		}
		addr, err := parseAddress(f.name, f.val)
		if err != nil {
			return m, err
		}
		*f.dst = addr
	}
	return m, nil
}

// RetryConfig converts the rpc section for the transport layer.
func (r RPCConfig) RetryConfig() routing.RetryConfig {
	cfg := routing.DefaultRetryConfig
	if r.MaxAttempts > 0 {
		cfg.MaxAttempts = r.MaxAttempts
	}
	if r.InitialBackoff > 0 {
		cfg.InitialDelay = r.InitialBackoff
	}
	if r.MaxBackoff > 0 {
		cfg.MaxDelay = r.MaxBackoff
	}
	return cfg
}

func parseAddress(field, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, v)
	}
	return common.HexToAddress(v), nil
}
