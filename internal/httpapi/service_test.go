package httpapi

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sljivkov/ofz-bond-oracle/internal/cache"
	"github.com/sljivkov/ofz-bond-oracle/internal/exchange"
	"github.com/sljivkov/ofz-bond-oracle/internal/nonce"
	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
	"github.com/sljivkov/ofz-bond-oracle/internal/signer"
)

const testPrivateKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeExchange struct {
	instruments []oracle.Instrument
	descs       map[string]exchange.Description
	listErr     error
}

func (f fakeExchange) ListInstruments(ctx context.Context) ([]oracle.Instrument, error) {
	return f.instruments, f.listErr
}

func (f fakeExchange) Description(ctx context.Context, secid string) (exchange.Description, error) {
	d, ok := f.descs[secid]
	if !ok {
		return nil, errors.New("no description")
	}
	return d, nil
}

type fakeResolver struct {
	quotes map[string]oracle.Quote
}

func (f fakeResolver) Price(ctx context.Context, secid string) (oracle.Quote, bool, error) {
	q, ok := f.quotes[secid]
	return q, ok, nil
}

func newTestService(t *testing.T, exch fakeExchange, resolver fakeResolver) *Service {
	t.Helper()
	store, err := nonce.Open(filepath.Join(t.TempDir(), "nonce.json"))
	require.NoError(t, err)
	sig, err := signer.New(testPrivateKeyHex, big.NewInt(1), common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa"), store, 120)
	require.NoError(t, err)

	priceCache := cache.NewPriceCache(filepath.Join(t.TempDir(), "prices.json"), 10*time.Second)
	secidSet := make(map[string]struct{}, len(exch.instruments))
	for _, inst := range exch.instruments {
		secidSet[inst.SECID] = struct{}{}
	}
	bondCache := cache.NewRegisteredBondCache(time.Hour, func(ctx context.Context) (map[string]struct{}, error) {
		return secidSet, nil
	})

	return NewService(exch, resolver, sig, priceCache, bondCache, 1_000_000, 10, zerolog.Nop())
}

func TestHandlePricesHidesSignatureByDefault(t *testing.T) {
	exch := fakeExchange{instruments: []oracle.Instrument{{SECID: "SU26207RMFS9"}}}
	resolver := fakeResolver{quotes: map[string]oracle.Quote{
		"SU26207RMFS9": {PricePercent: 97.125, IsCurrent: true},
	}}
	svc := newTestService(t, exch, resolver)
	router := NewRouter(svc)

	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/prices")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Prices map[string]struct {
			Signature string `json:"signature"`
			Price     float64 `json:"price"`
		} `json:"prices"`
	}
	require.NoError(t, decodeJSON(resp, &body))
	entry := body.Prices["SU26207RMFS9"]
	assert.Empty(t, entry.Signature)
	assert.Equal(t, 97.125, entry.Price)
}

func TestHandlePricesIncludesSignatureWhenRequested(t *testing.T) {
	exch := fakeExchange{instruments: []oracle.Instrument{{SECID: "SU26207RMFS9"}}}
	resolver := fakeResolver{quotes: map[string]oracle.Quote{
		"SU26207RMFS9": {PricePercent: 97.125, IsCurrent: true},
	}}
	svc := newTestService(t, exch, resolver)
	router := NewRouter(svc)

	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/prices?sign=true")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Prices map[string]struct {
			Signature string `json:"signature"`
		} `json:"prices"`
	}
	require.NoError(t, decodeJSON(resp, &body))
	assert.NotEmpty(t, body.Prices["SU26207RMFS9"].Signature)
}

func TestHandlePriceOneReturns404WhenMissing(t *testing.T) {
	svc := newTestService(t, fakeExchange{}, fakeResolver{})
	router := NewRouter(svc)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/prices/UNKNOWN")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleBondsListsAllWithoutOnchainFilter(t *testing.T) {
	exch := fakeExchange{instruments: []oracle.Instrument{
		{SECID: "SU26207RMFS9"}, {SECID: "SU26208RMFS7"},
	}}
	svc := newTestService(t, exch, fakeResolver{})
	router := NewRouter(svc)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/bonds")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, decodeJSON(resp, &body))
	assert.Equal(t, 2, body.Count)
}

func TestHandleHealthReportsSignerAddress(t *testing.T) {
	svc := newTestService(t, fakeExchange{}, fakeResolver{})
	router := NewRouter(svc)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		SignerAddress string `json:"signer_address"`
	}
	require.NoError(t, decodeJSON(resp, &body))
	assert.Equal(t, svc.SignerAddress(), body.SignerAddress)
}
