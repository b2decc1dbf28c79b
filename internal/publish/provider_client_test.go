package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBondsUnwrapsBondsField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bonds", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bonds":[{"secid":"SU26207RMFS9","shortname":"OFZ 26207"}],"count":1}`))
	}))
	defer server.Close()

	c := NewProviderClient(server.URL, time.Second)
	bonds, err := c.ListBonds(context.Background())
	require.NoError(t, err)
	require.Len(t, bonds, 1)
	assert.Equal(t, "SU26207RMFS9", bonds[0].SECID)
}

func TestSignedPriceReturnsNotOkOn404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewProviderClient(server.URL, time.Second)
	_, ok, err := c.SignedPrice(context.Background(), "SU26207RMFS9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignedPriceReturnsNotOkOnIncompleteBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price_uint":"97125000"}`))
	}))
	defer server.Close()

	c := NewProviderClient(server.URL, time.Second)
	_, ok, err := c.SignedPrice(context.Background(), "SU26207RMFS9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignedPriceParsesCompleteBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("sign"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price_uint":"97125000","signature":"0xdead","nonce":3,"deadline":1999999999}`))
	}))
	defer server.Close()

	c := NewProviderClient(server.URL, time.Second)
	sp, ok, err := c.SignedPrice(context.Background(), "SU26207RMFS9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "97125000", sp.PriceUint.String())
	assert.Equal(t, uint64(3), sp.Nonce)
	assert.Equal(t, int64(1999999999), sp.Deadline)
}
