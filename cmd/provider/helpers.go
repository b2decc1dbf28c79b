package main

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sljivkov/ofz-bond-oracle/internal/chain"
	"github.com/sljivkov/ofz-bond-oracle/internal/exchange"
)

func mustParseChainID(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid CHAIN_ID: " + s)
	}
	return n
}

// bondOracleRegistryABI is the minimal read surface the Provider's
// registered-bond rescan needs; it deliberately avoids requiring the
// full ABI file the Publisher loads via BOND_ORACLE_ABI_PATH, since
// the Provider only ever calls secidToBond.
const bondOracleRegistryABI = `[{"inputs":[{"internalType":"string","name":"secid","type":"string"}],"name":"secidToBond","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

// newRegistryClient builds a read-only chain.Client scoped to the
// single secidToBond call the Provider's rescan needs.
func newRegistryClient(ctx context.Context, rpcURL, contractAddr string) (*chain.Client, error) {
	parsedABI, err := abi.JSON(strings.NewReader(bondOracleRegistryABI))
	if err != nil {
		return nil, err
	}
	return chain.New(ctx, rpcURL, common.HexToAddress(contractAddr), parsedABI, "", nil)
}

// rescanAgainstContract iterates the exchange's active instrument
// list and retains those with a non-zero secidToBond address,
// matching discovery.Service's algorithm (spec.md §4.6, §4.9) but run
// Provider-side against its own independent cache instance.
func rescanAgainstContract(ctx context.Context, exch *exchange.Client, registry *chain.Client) (map[string]struct{}, error) {
	instruments, err := exch.ListInstruments(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]struct{})
	for _, inst := range instruments {
		addr, err := registry.SecidToBond(ctx, inst.SECID)
		if err != nil {
			continue
		}
		if addr != (common.Address{}) {
			out[inst.SECID] = struct{}{}
		}
	}
	return out, nil
}
