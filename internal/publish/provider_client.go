package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

// ProviderClient is the Publisher's HTTP client against the Provider's
// /api/bonds and /api/prices/{secid} routes.
type ProviderClient struct {
	http *resty.Client
}

// NewProviderClient builds a ProviderClient against baseURL.
func NewProviderClient(baseURL string, timeout time.Duration) *ProviderClient {
	return &ProviderClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// ListBonds implements discovery.BondLister against GET /api/bonds.
func (c *ProviderClient) ListBonds(ctx context.Context) ([]oracle.Instrument, error) {
	var body struct {
		Bonds []oracle.Instrument `json:"bonds"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&body).Get("/api/bonds")
	if err != nil {
		return nil, &oracle.UpstreamError{Op: "list_bonds", Err: err}
	}
	if resp.IsError() {
		return nil, &oracle.UpstreamError{Op: "list_bonds", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return body.Bonds, nil
}

// SignedPrice is the subset of a /api/prices/{secid}?sign=true response
// PublishCycle needs.
type SignedPrice struct {
	PriceUint *big.Int
	Signature string
	Nonce     uint64
	Deadline  int64
}

// SignedPrice fetches GET /api/prices/{secid}?sign=true. A response
// missing any of price_uint/signature/nonce/deadline returns ok=false
// so the caller skips the SECID, per spec.md §4.10 step 2a.
func (c *ProviderClient) SignedPrice(ctx context.Context, secid string) (SignedPrice, bool, error) {
	var body struct {
		PriceUint *json.Number `json:"price_uint"`
		Signature *string `json:"signature"`
		Nonce     *uint64 `json:"nonce"`
		Deadline  *int64  `json:"deadline"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("secid", secid).
		SetQueryParam("sign", "true").
		Get("/api/prices/{secid}")
	if err != nil {
		return SignedPrice{}, false, &oracle.UpstreamError{Op: "signed_price", Err: err}
	}
	if resp.StatusCode() == 404 {
		return SignedPrice{}, false, nil
	}
	if resp.IsError() {
		return SignedPrice{}, false, &oracle.UpstreamError{Op: "signed_price", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	if body.PriceUint == nil || body.Signature == nil || body.Nonce == nil || body.Deadline == nil {
		return SignedPrice{}, false, nil
	}

	priceUint, ok := new(big.Int).SetString(body.PriceUint.String(), 10)
	if !ok {
		return SignedPrice{}, false, nil
	}

	return SignedPrice{
		PriceUint: priceUint,
		Signature: *body.Signature,
		Nonce:     *body.Nonce,
		Deadline:  *body.Deadline,
	}, true, nil
}
