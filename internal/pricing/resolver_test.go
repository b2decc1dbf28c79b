package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sljivkov/ofz-bond-oracle/internal/exchange"
)

type fakeSource struct {
	snapshot map[string]float64
	snapErr  error
	candles  []exchange.Candle
	candErr  error
}

func (f *fakeSource) MarketSnapshot(ctx context.Context, secid string) (map[string]float64, error) {
	return f.snapshot, f.snapErr
}

func (f *fakeSource) DailyCandles(ctx context.Context, secid string, from, to time.Time) ([]exchange.Candle, error) {
	return f.candles, f.candErr
}

func TestResolverPrice(t *testing.T) {
	t.Run("prefers MARKETPRICE over later fields", func(t *testing.T) {
		src := &fakeSource{snapshot: map[string]float64{"LAST": 95.0, "MARKETPRICE": 97.125}}
		r := NewResolver(src, nil)

		quote, ok, err := r.Price(context.Background(), "SU26207RMFS9")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 97.125, quote.PricePercent)
		assert.True(t, quote.IsCurrent)
		assert.Equal(t, "market_price", quote.DataSource())
	})

	t.Run("falls back to last candle when all fields absent", func(t *testing.T) {
		src := &fakeSource{
			snapshot: map[string]float64{},
			candles:  []exchange.Candle{{Begin: "2026-07-23", Close: 95.0}, {Begin: "2026-07-24", Close: 96.4}},
		}
		r := NewResolver(src, nil)

		quote, ok, err := r.Price(context.Background(), "SU26207RMFS9")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 96.4, quote.PricePercent)
		assert.False(t, quote.IsCurrent)
		assert.Equal(t, "daily_candle", quote.DataSource())
	})

	t.Run("no data anywhere returns not ok", func(t *testing.T) {
		src := &fakeSource{snapshot: map[string]float64{}, candles: nil}
		r := NewResolver(src, nil)

		_, ok, err := r.Price(context.Background(), "SU99999ZZZZ0")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("propagates snapshot error", func(t *testing.T) {
		src := &fakeSource{snapErr: assertErr}
		r := NewResolver(src, nil)

		_, _, err := r.Price(context.Background(), "SU26207RMFS9")
		assert.Error(t, err)
	})
}

var assertErr = &testUpstreamErr{}

type testUpstreamErr struct{}

func (e *testUpstreamErr) Error() string { return "upstream failure" }
