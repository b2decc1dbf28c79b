// Package httpapi implements the Provider's HTTP surface (spec.md §4.7).
package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sljivkov/ofz-bond-oracle/internal/cache"
	"github.com/sljivkov/ofz-bond-oracle/internal/exchange"
	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
	"github.com/sljivkov/ofz-bond-oracle/internal/pricing"
	"github.com/sljivkov/ofz-bond-oracle/internal/signer"
)

// Resolver resolves a price quote for one instrument.
type Resolver interface {
	Price(ctx context.Context, secid string) (oracle.Quote, bool, error)
}

// InstrumentLister lists tradable instruments and per-instrument
// descriptive metadata.
type InstrumentLister interface {
	ListInstruments(ctx context.Context) ([]oracle.Instrument, error)
	Description(ctx context.Context, secid string) (exchange.Description, error)
}

// Service is the Provider's domain façade: everything HTTP handlers
// need, assembled once at startup and never read from globals.
type Service struct {
	exchange           InstrumentLister
	resolver           Resolver
	signer             *signer.Signer
	priceCache         *cache.PriceCache
	registeredBonds    *cache.RegisteredBondCache
	scalingFactor      int64
	cacheTTLSeconds    int
	startedAt          time.Time
	logger             zerolog.Logger
}

// NewService builds the Provider's HTTP-facing domain façade.
func NewService(exch InstrumentLister, resolver Resolver, sig *signer.Signer, priceCache *cache.PriceCache, registeredBonds *cache.RegisteredBondCache, scalingFactor int64, cacheTTLSeconds int, logger zerolog.Logger) *Service {
	return &Service{
		exchange:        exch,
		resolver:        resolver,
		signer:          sig,
		priceCache:      priceCache,
		registeredBonds: registeredBonds,
		scalingFactor:   scalingFactor,
		cacheTTLSeconds: cacheTTLSeconds,
		startedAt:       time.Now(),
		logger:          logger,
	}
}

// snapshot returns the current PriceSnapshot, building one (signing
// every resolvable price so the cached copy holds maximum fidelity)
// on a cache miss. The HTTP layer, not the cache, decides whether a
// given request may see the signature fields — see WithoutSignature.
func (s *Service) snapshot(ctx context.Context) (*oracle.PriceSnapshot, error) {
	if snap, ok := s.priceCache.Get(); ok {
		return snap, nil
	}
	return s.buildSnapshot(ctx)
}

func (s *Service) buildSnapshot(ctx context.Context) (*oracle.PriceSnapshot, error) {
	secids, err := s.registeredBonds.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("⚠️ registered bond rescan failed, building snapshot from empty set")
	}

	prices := make(map[string]oracle.PriceEntry, len(secids))
	for secid := range secids {
		entry, ok, err := s.priceEntry(ctx, secid)
		if err != nil {
			s.logger.Error().Err(err).Str("secid", secid).Msg("❌ price resolution failed")
			continue
		}
		if !ok {
			continue
		}
		prices[secid] = entry
	}

	snap := &oracle.PriceSnapshot{Timestamp: time.Now().Unix(), Prices: prices}
	if err := s.priceCache.Put(snap); err != nil {
		s.logger.Error().Err(err).Msg("❌ failed to persist price snapshot")
	}
	return snap, nil
}

// priceEntry resolves and signs a single SECID's price entry. ok is
// false when the resolver has no data for secid.
func (s *Service) priceEntry(ctx context.Context, secid string) (oracle.PriceEntry, bool, error) {
	quote, ok, err := s.resolver.Price(ctx, secid)
	if err != nil {
		return oracle.PriceEntry{}, false, err
	}
	if !ok {
		return oracle.PriceEntry{}, false, nil
	}

	scaled, err := pricing.Scale(quote.PricePercent, s.scalingFactor)
	if err != nil {
		return oracle.PriceEntry{}, false, fmt.Errorf("scale price for %s: %w", secid, err)
	}

	attestation, err := s.signer.Sign(secid, scaled)
	if err != nil {
		return oracle.PriceEntry{}, false, fmt.Errorf("sign price for %s: %w", secid, err)
	}

	nonce := attestation.Nonce
	deadline := attestation.Deadline
	return oracle.PriceEntry{
		Price:               quote.PricePercent,
		PriceUint:           scaled,
		IsCurrentMarketData: quote.IsCurrent,
		DataSource:          quote.DataSource(),
		Signature:           attestation.Signature,
		Nonce:               &nonce,
		Deadline:            &deadline,
	}, true, nil
}

// SignerAddress exposes the Provider's signing address for the health
// endpoint.
func (s *Service) SignerAddress() string { return s.signer.Address().Hex() }

// StartedAt is the Service's construction time.
func (s *Service) StartedAt() time.Time { return s.startedAt }
