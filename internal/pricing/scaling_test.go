package pricing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScale(t *testing.T) {
	t.Run("cold start example from spec scenario 1", func(t *testing.T) {
		scaled, err := Scale(97.125, 100_000_000)
		assert.NoError(t, err)
		assert.Equal(t, big.NewInt(97_125_000), scaled)
	})

	t.Run("whole percent", func(t *testing.T) {
		scaled, err := Scale(97.0, 1_000_000)
		assert.NoError(t, err)
		assert.Equal(t, big.NewInt(97_000), scaled)
	})

	t.Run("rejects scaling factor not a multiple of 1000", func(t *testing.T) {
		_, err := Scale(97.0, 1234)
		assert.Error(t, err)
	})

	t.Run("round trip preserves three decimal digits", func(t *testing.T) {
		const S = 1_000_000_000
		for _, p := range []float64{97.125, 100.0, 0.001, 99.999} {
			scaled, err := Scale(p, S)
			assert.NoError(t, err)
			got := Unscale(scaled, S)
			assert.InDelta(t, p, got, 1e-9)
		}
	})
}
