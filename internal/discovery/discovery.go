// Package discovery intersects the Provider's bond list with the
// on-chain registry, per spec.md §4.9.
package discovery

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

// BondLister fetches the Provider's candidate instrument list.
type BondLister interface {
	ListBonds(ctx context.Context) ([]oracle.Instrument, error)
}

// RegistryChecker reports whether a SECID is registered on-chain.
type RegistryChecker interface {
	SecidToBond(ctx context.Context, secid string) (common.Address, error)
}

// Service implements DiscoveryService.
type Service struct {
	bonds    BondLister
	registry RegistryChecker
}

// New builds a Service.
func New(bonds BondLister, registry RegistryChecker) *Service {
	return &Service{bonds: bonds, registry: registry}
}

// RegisteredSecids fetches candidates from the Provider, then retains
// only those with a non-zero on-chain bond address.
func (s *Service) RegisteredSecids(ctx context.Context) (map[string]struct{}, error) {
	candidates, err := s.bonds.ListBonds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bonds: %w", err)
	}

	out := make(map[string]struct{})
	for _, c := range candidates {
		addr, err := s.registry.SecidToBond(ctx, c.SECID)
		if err != nil {
			// A failed lookup for one SECID is treated as "not
			// registered" and its error is dropped here rather than
			// aborting the scan; the caller does not see it.
			continue
		}
		if addr != (common.Address{}) {
			out[c.SECID] = struct{}{}
		}
	}
	return out, nil
}
