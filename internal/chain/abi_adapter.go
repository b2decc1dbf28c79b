package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// LoadABI loads a contract ABI from a file, recognizing the three
// JSON container shapes spec.md §6/§9 describes: a bare array (raw
// ABI), an object with an "abi" field (Foundry/Hardhat), or an object
// with both "contractName" and "abi" (Truffle). This is an explicit
// tagged-union probe, not duck typing — see spec.md §9's re-architecting
// note on the source's dynamic shape sniffing.
func LoadABI(path string) (abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("read abi file %s: %w", path, err)
	}

	raw, err := extractABIJSON(data, path)
	if err != nil {
		return abi.ABI{}, err
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi from %s: %w", path, err)
	}
	return parsed, nil
}

// wrappedABI probes for the "abi" field shared by the Foundry and
// Truffle container forms.
type wrappedABI struct {
	ContractName *string         `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
}

func extractABIJSON(data []byte, path string) (json.RawMessage, error) {
	// Arm 1: bare JSON array.
	var asArray []json.RawMessage
	if err := json.Unmarshal(data, &asArray); err == nil {
		return data, nil
	}

	// Arm 2/3: object with an "abi" field (Foundry shape and Truffle
	// shape both satisfy this; ContractName is decoded but does not
	// affect extraction).
	var wrapped wrappedABI
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.ABI != nil {
		return wrapped.ABI, nil
	}

	return nil, fmt.Errorf("unrecognized abi format in %s", path)
}
