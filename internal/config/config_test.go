package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func setProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOND_ORACLE_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("ETH_RPC_URL", "http://localhost:8545")
	t.Setenv("ETH_PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
}

func TestNewProviderConfig(t *testing.T) {
	t.Run("valid environment", func(t *testing.T) {
		setProviderEnv(t)
		t.Setenv("CHAIN_ID", "1")

		cfg, err := NewProviderConfig()
		assert.NoError(t, err)
		assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.BondOracleAddress)
		assert.Equal(t, 10, cfg.CacheTTLSeconds)
		assert.Equal(t, int64(1000000), cfg.PriceScalingFactor)
	})

	t.Run("rejects malformed contract address", func(t *testing.T) {
		setProviderEnv(t)
		t.Setenv("BOND_ORACLE_ADDRESS", "not-an-address")

		_, err := NewProviderConfig()
		assert.Error(t, err)
	})

	t.Run("rejects short private key", func(t *testing.T) {
		setProviderEnv(t)
		t.Setenv("ETH_PRIVATE_KEY", "deadbeef")

		_, err := NewProviderConfig()
		assert.Error(t, err)
	})

	t.Run("accepts 0x-prefixed private key", func(t *testing.T) {
		setProviderEnv(t)
		t.Setenv("ETH_PRIVATE_KEY", "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")

		cfg, err := NewProviderConfig()
		assert.NoError(t, err)
		assert.Equal(t, "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", cfg.GetPrivateKeyHex())
	})

	t.Run("rejects non-numeric chain id", func(t *testing.T) {
		setProviderEnv(t)
		t.Setenv("CHAIN_ID", "mainnet")

		_, err := NewProviderConfig()
		assert.Error(t, err)
	})

	t.Run("chain id is optional", func(t *testing.T) {
		setProviderEnv(t)
		t.Setenv("CHAIN_ID", "")

		_, err := NewProviderConfig()
		assert.NoError(t, err)
	})
}

func setPublisherEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OFFCHAIN_PROVIDER_BASE_URL", "http://localhost:8080")
	t.Setenv("BOND_ORACLE_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("ETHEREUM_RPC_URL", "http://localhost:8545")
	t.Setenv("PUBLISHER_PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	t.Setenv("BOND_ORACLE_ABI_PATH", "./abi.json")
}

func TestNewPublisherConfig(t *testing.T) {
	t.Run("valid environment", func(t *testing.T) {
		setPublisherEnv(t)

		cfg, err := NewPublisherConfig()
		assert.NoError(t, err)
		assert.Equal(t, 60, cfg.PollIntervalSeconds)
		assert.Equal(t, 0.5, cfg.PriceChangeThresholdPct)
	})

	t.Run("rejects malformed contract address", func(t *testing.T) {
		setPublisherEnv(t)
		t.Setenv("BOND_ORACLE_ADDRESS", "nope")

		_, err := NewPublisherConfig()
		assert.Error(t, err)
	})
}
