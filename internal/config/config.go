// Package config loads and validates the Provider and Publisher
// process configurations.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

// ProviderConfig configures the Provider process: exchange polling,
// file-backed caches, nonce persistence and EIP-712 signing.
type ProviderConfig struct {
	Host                    string `envconfig:"HOST" default:"0.0.0.0"`
	Port                    int    `envconfig:"PORT" default:"8080"`
	Debug                   bool   `envconfig:"DEBUG" default:"false"`
	CacheTTLSeconds         int    `envconfig:"CACHE_TTL" default:"10"`
	CacheDir                string `envconfig:"CACHE_DIR" default:"./cache"`
	PriceScalingFactor      int64  `envconfig:"PRICE_SCALING_FACTOR" default:"1000000"`
	BondOracleAddress       string `envconfig:"BOND_ORACLE_ADDRESS" required:"true"`
	ChainID                 string `envconfig:"CHAIN_ID"`
	SignatureExpirySeconds  int    `envconfig:"SIGNATURE_EXPIRY_SECONDS" default:"120"`
	NonceFile               string `envconfig:"NONCE_FILE" default:"./cache/nonce.json"`
	EthRPCURL               string `envconfig:"ETH_RPC_URL" required:"true"`
	EthPrivateKey           string `envconfig:"ETH_PRIVATE_KEY" required:"true"`
	RegisteredBondsCacheTTL int    `envconfig:"REGISTERED_BONDS_CACHE_TTL" default:"300"`
	LogLevel                string `envconfig:"LOG_LEVEL" default:"info"`
}

// PublisherConfig configures the Publisher process: Provider polling,
// on-chain submission and the cycle scheduler.
type PublisherConfig struct {
	OffchainProviderBaseURL    string `envconfig:"OFFCHAIN_PROVIDER_BASE_URL" required:"true"`
	BondOracleAddress          string `envconfig:"BOND_ORACLE_ADDRESS" required:"true"`
	EthereumRPCURL             string `envconfig:"ETHEREUM_RPC_URL" required:"true"`
	PublisherPrivateKey        string `envconfig:"PUBLISHER_PRIVATE_KEY" required:"true"`
	ChainID                    string `envconfig:"CHAIN_ID"`
	PollIntervalSeconds        int    `envconfig:"POLL_INTERVAL_SECONDS" default:"60"`
	PriceChangeThresholdPct    float64 `envconfig:"PRICE_CHANGE_THRESHOLD_PERCENT" default:"0.5"`
	BondOracleABIPath          string `envconfig:"BOND_ORACLE_ABI_PATH" required:"true"`
	LogLevel                   string `envconfig:"LOG_LEVEL" default:"info"`
	GasLimitUpdatePrice        uint64 `envconfig:"GAS_LIMIT_UPDATE_PRICE" default:"200000"`
	TxReceiptTimeoutSeconds    int    `envconfig:"TX_RECEIPT_TIMEOUT_SECONDS" default:"120"`
	SchedulerMisfireGraceTime  int    `envconfig:"SCHEDULER_MISFIRE_GRACE_TIME" default:"30"`
	RequestsTimeoutSeconds     int    `envconfig:"REQUESTS_TIMEOUT_SECONDS" default:"15"`
}

// ProviderOption mutates a config during construction. Options are
// applied before env parsing, so an option can prepare the environment
// that parsing then reads (see WithEnvFile). Mirrors the teacher's
// functional options on config.Config.
type ProviderOption func(*ProviderConfig) error

// PublisherOption is the Publisher analogue of ProviderOption.
type PublisherOption func(*PublisherConfig) error

// WithEnvFile loads a .env file before env parsing continues to read
// the process environment.
func WithEnvFile(path string) ProviderOption {
	return func(c *ProviderConfig) error {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
}

// WithPublisherEnvFile is the Publisher analogue of WithEnvFile.
func WithPublisherEnvFile(path string) PublisherOption {
	return func(c *PublisherConfig) error {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
}

// NewProviderConfig loads, applies options to, and validates a
// ProviderConfig.
func NewProviderConfig(opts ...ProviderOption) (*ProviderConfig, error) {
	var cfg ProviderConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, &oracle.ConfigError{Field: "option", Err: err}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &oracle.ConfigError{Field: "env", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewPublisherConfig is the Publisher analogue of NewProviderConfig.
func NewPublisherConfig(opts ...PublisherOption) (*PublisherConfig, error) {
	var cfg PublisherConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, &oracle.ConfigError{Field: "option", Err: err}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &oracle.ConfigError{Field: "env", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants spec.md §6 requires: contract address
// shape, private key shape, and CHAIN_ID parsing as a positive int
// when present.
func (c *ProviderConfig) Validate() error {
	if !common.IsHexAddress(c.BondOracleAddress) {
		return &oracle.ConfigError{Field: "BOND_ORACLE_ADDRESS", Err: fmt.Errorf("not a valid address: %s", c.BondOracleAddress)}
	}
	if err := validatePrivateKey(c.EthPrivateKey); err != nil {
		return &oracle.ConfigError{Field: "ETH_PRIVATE_KEY", Err: err}
	}
	if err := validateChainID(c.ChainID); err != nil {
		return &oracle.ConfigError{Field: "CHAIN_ID", Err: err}
	}
	return nil
}

// Validate is the Publisher analogue of ProviderConfig.Validate.
func (c *PublisherConfig) Validate() error {
	if !common.IsHexAddress(c.BondOracleAddress) {
		return &oracle.ConfigError{Field: "BOND_ORACLE_ADDRESS", Err: fmt.Errorf("not a valid address: %s", c.BondOracleAddress)}
	}
	if err := validatePrivateKey(c.PublisherPrivateKey); err != nil {
		return &oracle.ConfigError{Field: "PUBLISHER_PRIVATE_KEY", Err: err}
	}
	if err := validateChainID(c.ChainID); err != nil {
		return &oracle.ConfigError{Field: "CHAIN_ID", Err: err}
	}
	return nil
}

func validatePrivateKey(key string) error {
	trimmed := strings.TrimPrefix(key, "0x")
	if len(trimmed) != 64 || !isHex(trimmed) {
		return fmt.Errorf("private key must be 64 hex chars, optionally 0x-prefixed")
	}
	return nil
}

func validateChainID(chainID string) error {
	if chainID == "" {
		return nil
	}
	n, err := strconv.Atoi(chainID)
	if err != nil || n <= 0 {
		return fmt.Errorf("CHAIN_ID must be a positive integer, got %q", chainID)
	}
	return nil
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// EnsureCacheDir creates CacheDir if missing (NonceFile's parent
// directory is created by the nonce store on first write), matching original_source/Config.ensure_cache_dir(), run
// once at Provider startup.
func (c *ProviderConfig) EnsureCacheDir() error {
	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return fmt.Errorf("ensure cache dir %s: %w", c.CacheDir, err)
	}
	return nil
}

// GetPrivateKeyHex returns the private key with any 0x prefix
// stripped, matching original_source/config.py's get_private_key().
func (c *ProviderConfig) GetPrivateKeyHex() string {
	return strings.TrimPrefix(c.EthPrivateKey, "0x")
}

// GetPrivateKeyHex is the Publisher analogue.
func (c *PublisherConfig) GetPrivateKeyHex() string {
	return strings.TrimPrefix(c.PublisherPrivateKey, "0x")
}
