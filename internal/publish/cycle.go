package publish

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/sljivkov/ofz-bond-oracle/internal/chain"
	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

// Discoverer returns the current registered-SECID set.
type Discoverer interface {
	RegisteredSecids(ctx context.Context) (map[string]struct{}, error)
}

// RegistryLookup resolves a SECID to its on-chain bond address and
// price feed, mirroring chain.Client's read surface.
type RegistryLookup interface {
	SecidToBond(ctx context.Context, secid string) (common.Address, error)
	GetPriceFeed(ctx context.Context, bond common.Address) (chain.PriceFeed, error)
}

// SignedPriceFetcher fetches the Provider's signed attestation for one
// SECID.
type SignedPriceFetcher interface {
	SignedPrice(ctx context.Context, secid string) (SignedPrice, bool, error)
}

// Cycle implements PublishCycle: discover, fetch signed price,
// compare, submit — per spec.md §4.10.
type Cycle struct {
	discovery       Discoverer
	registry        RegistryLookup
	provider        SignedPriceFetcher
	tx              *TxService
	thresholdPct    float64
	logger          zerolog.Logger
	now             func() time.Time
}

// NewCycle builds a Cycle.
func NewCycle(discovery Discoverer, registry RegistryLookup, provider SignedPriceFetcher, tx *TxService, thresholdPct float64, logger zerolog.Logger) *Cycle {
	return &Cycle{
		discovery:    discovery,
		registry:     registry,
		provider:     provider,
		tx:           tx,
		thresholdPct: thresholdPct,
		logger:       logger,
		now:          time.Now,
	}
}

// Run executes one publish cycle. Errors discovering the registered
// set abort the cycle; per-SECID errors are logged and the cycle
// continues, per spec.md §4.10 step 3.
func (c *Cycle) Run(ctx context.Context) error {
	secids, err := c.discovery.RegisteredSecids(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("❌ discovery failed, aborting cycle")
		return err
	}
	if len(secids) == 0 {
		c.logger.Info().Msg("🔍 no registered bonds, skipping cycle")
		return nil
	}

	for secid := range secids {
		c.processOne(ctx, secid)
	}
	return nil
}

func (c *Cycle) processOne(ctx context.Context, secid string) {
	signed, ok, err := c.provider.SignedPrice(ctx, secid)
	if err != nil {
		c.logger.Error().Err(err).Str("secid", secid).Msg("❌ fetch signed price failed")
		return
	}
	if !ok {
		c.logger.Warn().Str("secid", secid).Msg("⚠️ incomplete signed price, skipping")
		return
	}

	bondAddr, err := c.registry.SecidToBond(ctx, secid)
	if err != nil {
		c.logger.Error().Err(err).Str("secid", secid).Msg("❌ secid_to_bond failed")
		return
	}
	if bondAddr == (common.Address{}) {
		c.logger.Warn().Str("secid", secid).Msg("⚠️ bond unregistered, skipping")
		return
	}

	feed, err := c.registry.GetPriceFeed(ctx, bondAddr)
	if err != nil {
		c.logger.Error().Err(err).Str("secid", secid).Msg("❌ get_price_feed failed")
		return
	}

	if !shouldPublish(feed.Price, signed.PriceUint, c.thresholdPct) {
		c.logger.Debug().Str("secid", secid).Msg("⏭️ deviation below threshold, skipping")
		return
	}

	if signed.Deadline <= c.now().Unix() {
		err := &oracle.SignatureExpired{SECID: secid, Deadline: signed.Deadline, Now: c.now().Unix()}
		c.logger.Warn().Err(err).Str("secid", secid).Msg("⚠️ signature expired, dropping")
		return
	}

	sigBytes, err := decodeHexSignature(signed.Signature)
	if err != nil {
		c.logger.Error().Err(err).Str("secid", secid).Msg("❌ malformed signature, skipping")
		return
	}

	txHash, err := c.tx.SendUpdate(ctx, secid, signed.PriceUint, signed.Deadline, signed.Nonce, sigBytes)
	if err != nil {
		c.logger.Error().Err(err).Str("secid", secid).Str("tx", txHash.Hex()).Msg("❌ send_update failed")
		return
	}
	c.logger.Info().Str("secid", secid).Str("tx", txHash.Hex()).Msg("✅ price published")
}

// shouldPublish implements the deviation gate of spec.md §4.10/§8:
// publish if current is zero, else iff |new-current|*100 >= threshold*current.
func shouldPublish(current, newPrice *big.Int, thresholdPct float64) bool {
	if current == nil || current.Sign() == 0 {
		return true
	}

	diff := new(big.Int).Sub(newPrice, current)
	diff.Abs(diff)

	lhs := new(big.Int).Mul(diff, big.NewInt(100))

	thresholdScaled := new(big.Float).Mul(big.NewFloat(thresholdPct), new(big.Float).SetInt(current))
	rhs, _ := thresholdScaled.Int(nil)

	return lhs.Cmp(rhs) >= 0
}
