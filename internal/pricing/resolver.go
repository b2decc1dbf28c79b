// Package pricing resolves per-instrument quotes from raw exchange
// data and converts them to the fixed-point integer form the contract
// expects.
package pricing

import (
	"context"
	"time"

	"github.com/sljivkov/ofz-bond-oracle/internal/exchange"
	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

// snapshotSource is the subset of exchange.Client PriceResolver needs,
// kept narrow so tests can fake it without an httptest server.
type snapshotSource interface {
	MarketSnapshot(ctx context.Context, secid string) (map[string]float64, error)
	DailyCandles(ctx context.Context, secid string, from, to time.Time) ([]exchange.Candle, error)
}

// Resolver implements PriceResolver: the priority-ordered market-field
// scan with a daily-candle fallback.
type Resolver struct {
	client snapshotSource
	now    func() time.Time
}

// NewResolver builds a Resolver against client. now defaults to
// time.Now when nil, overridable in tests.
func NewResolver(client snapshotSource, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{client: client, now: now}
}

// Price resolves secid's quote per spec.md §4.2: scan market fields in
// priority order, then fall back to the most recent daily candle.
// Returns ok=false (with a zero Quote) when no source has data.
func (r *Resolver) Price(ctx context.Context, secid string) (oracle.Quote, bool, error) {
	snapshot, err := r.client.MarketSnapshot(ctx, secid)
	if err != nil {
		return oracle.Quote{}, false, err
	}

	for _, field := range oracle.PriceFieldPriority {
		if v, ok := snapshot[field]; ok {
			return oracle.Quote{PricePercent: v, SourceField: field, IsCurrent: true}, true, nil
		}
	}

	to := r.now()
	from := to.AddDate(0, 0, -7)
	candles, err := r.client.DailyCandles(ctx, secid, from, to)
	if err != nil {
		return oracle.Quote{}, false, err
	}
	if len(candles) == 0 {
		return oracle.Quote{}, false, nil
	}
	last := candles[len(candles)-1]
	return oracle.Quote{PricePercent: last.Close, SourceField: oracle.FieldDailyCandle, IsCurrent: false}, true, nil
}
