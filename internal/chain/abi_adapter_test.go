package chain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalABI = `[{"constant":true,"inputs":[{"name":"secid","type":"string"}],"name":"secidToBond","outputs":[{"name":"","type":"address"}],"type":"function"}]`

func writeABI(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abi.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadABIBareArrayShape(t *testing.T) {
	path := writeABI(t, minimalABI)
	parsed, err := LoadABI(path)
	require.NoError(t, err)
	_, exists := parsed.Methods["secidToBond"]
	assert.True(t, exists)
}

func TestLoadABIFoundryShape(t *testing.T) {
	path := writeABI(t, `{"abi": `+minimalABI+`, "bytecode": "0x00"}`)
	parsed, err := LoadABI(path)
	require.NoError(t, err)
	_, exists := parsed.Methods["secidToBond"]
	assert.True(t, exists)
}

func TestLoadABITruffleShape(t *testing.T) {
	path := writeABI(t, `{"contractName": "BondOracle", "abi": `+minimalABI+`}`)
	parsed, err := LoadABI(path)
	require.NoError(t, err)
	_, exists := parsed.Methods["secidToBond"]
	assert.True(t, exists)
}

func TestLoadABIRejectsUnrecognizedShape(t *testing.T) {
	path := writeABI(t, `{"foo": "bar"}`)
	_, err := LoadABI(path)
	assert.Error(t, err)
}

func TestLoadABIMissingFile(t *testing.T) {
	_, err := LoadABI(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestIsPoAURL(t *testing.T) {
	cases := map[string]bool{
		"https://rinkeby.infura.io/v3/xyz":       true,
		"https://polygon-rpc.com":                true,
		"https://eth-goerli.alchemyapi.io":       true,
		"https://rpc-mumbai.maticvigil.com":      true,
		"http://localhost:8545":                  false,
		"https://mainnet.infura.io/v3/xyz":       false,
	}
	for url, want := range cases {
		assert.Equal(t, want, isPoAURL(url), url)
	}
}
