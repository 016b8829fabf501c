package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/userop/internal/aa/account"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.RPC.Timeout == 0 {
		cfg.RPC.Timeout = 30 * time.Second
	}
	if cfg.RPC.MaxAttempts == 0 {
		cfg.RPC.MaxAttempts = 1
	}
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = JournalMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints Load cannot default away.
func (c *AppConfig) Validate() error {
	var errs []error

	seen := make(map[string]bool)
	for i, ch := range c.Chains {
		if ch.Name == "" {
			errs = append(errs, fmt.Errorf("chains[%d]: name is required", i))
		} else if seen[ch.Name] {
			errs = append(errs, fmt.Errorf("chains[%d]: duplicate name %q", i, ch.Name))
		}
		seen[ch.Name] = true
		if ch.ID == 0 {
			errs = append(errs, fmt.Errorf("chain %q: id is required", ch.Name))
		}
		if ch.RPC == "" || ch.Bundler == "" {
			errs = append(errs, fmt.Errorf("chain %q: rpc and bundler are required", ch.Name))
		}
	}

	if _, err := c.Registry(); err != nil {
		errs = append(errs, err)
	}

	m, err := c.SmartclientModules()
	if err != nil {
		errs = append(errs, err)
	} else if !supportedSafeVersion(m.SafeVersion) {
		errs = append(errs, fmt.Errorf("modules.safe_version: unsupported %q", m.SafeVersion))
	}

	switch c.Journal.Backend {
	case JournalMemory:
	case JournalPostgres:
		if c.Journal.Database.URL == "" {
			errs = append(errs, errors.New("journal.database.url is required for the postgres backend"))
		}
	case JournalRedis:
		if c.Journal.Redis.URL == "" {
			errs = append(errs, errors.New("journal.redis.url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.backend: unknown backend %q", c.Journal.Backend))
	}

	if c.Signer.PrivateKey != "" && c.Signer.KeystorePath != "" {
		errs = append(errs, errors.New("signer: set either private_key or keystore_path, not both"))
	}

	return errors.Join(errs...)
}

func supportedSafeVersion(v string) bool {
	for _, s := range account.SupportedSafeVersions {
		if s == v {
			return true
		}
	}
	return false
}
