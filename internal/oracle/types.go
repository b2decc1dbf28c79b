// Package oracle defines the data model shared by the Provider and
// Publisher processes: instruments, quotes, scaled prices, signed
// attestations and the on-disk snapshot/nonce formats.
package oracle

import "math/big"

// Instrument is the exchange's short identifier for one bond issue
// (e.g. "SU26207RMFS9"), a.k.a. SECID.
type Instrument struct {
	SECID     string `json:"secid"`
	ShortName string `json:"shortname"`
}

// Source field names returned by the exchange's market snapshot, in
// the fixed priority order PriceResolver scans them.
const (
	FieldMarketPrice  = "MARKETPRICE"
	FieldLast         = "LAST"
	FieldLClosePrice  = "LCLOSEPRICE"
	FieldWAPrice      = "WAPRICE"
	FieldPrevWAPrice  = "PREVWAPRICE"
	FieldClosePrice   = "CLOSEPRICE"
	FieldDailyCandle  = "candle"
)

// PriceFieldPriority is the stable, publicly observable attribution
// order PriceResolver walks before falling back to the daily candle.
var PriceFieldPriority = []string{
	FieldMarketPrice,
	FieldLast,
	FieldLClosePrice,
	FieldWAPrice,
	FieldPrevWAPrice,
	FieldClosePrice,
}

// Quote is a single resolved price observation for one instrument.
type Quote struct {
	PricePercent float64
	SourceField  string
	IsCurrent    bool
}

// DataSource renders the quote's origin for API responses:
// "market_price" for any live field, "daily_candle" for the fallback.
func (q Quote) DataSource() string {
	if q.IsCurrent {
		return "market_price"
	}
	return "daily_candle"
}

// PriceUpdate is the EIP-712 typed struct signed by the Provider:
//
//	PriceUpdate(string secid, uint160 price, uint256 nonce, uint256 deadline)
type PriceUpdate struct {
	SECID    string
	Price    *big.Int
	Nonce    uint64
	Deadline int64
}

// SignedAttestation is the cross-process payload the Provider issues
// and the Publisher consumes. It is never persisted and must be
// consumed before Deadline.
type SignedAttestation struct {
	SECID     string `json:"secid"`
	PriceUint *big.Int `json:"price_uint"`
	Nonce     uint64 `json:"nonce"`
	Deadline  int64  `json:"deadline"`
	Signature string `json:"signature"`
}

// BondDetails is static descriptive metadata for one instrument.
// Every field is optional (nil / zero value when absent upstream).
type BondDetails struct {
	InitialFace        *float64 `json:"initialPrice,omitempty"`
	MaturityFace        *float64 `json:"maturityPrice,omitempty"`
	MaturityAt          *string  `json:"maturityAt,omitempty"`
	IssueDate           *string  `json:"issueDate,omitempty"`
	FaceCurrency        *string  `json:"faceUnit,omitempty"`
	CouponValue         *float64 `json:"couponValue,omitempty"`
	CouponPercent       *float64 `json:"couponPercent,omitempty"`
	NextCoupon          *string  `json:"nextCoupon,omitempty"`
	CouponFrequency     *int     `json:"couponFrequency,omitempty"`
	AccruedInterest     *float64 `json:"accruedInt,omitempty"`
	SecurityType        *string  `json:"securityType,omitempty"`
	IssueSize           *float64 `json:"issueSize,omitempty"`
	ISIN                *string  `json:"isin,omitempty"`
	RegistrationNumber  *string  `json:"regNumber,omitempty"`

	// Scaled (uint160-equivalent) forms of the price-bearing fields
	// above, added by the detail endpoints; see SPEC_FULL.md
	// "Supplemented features" #2.
	InitialFaceScaled    *big.Int `json:"initialPrice_uint,omitempty"`
	MaturityFaceScaled   *big.Int `json:"maturityPrice_uint,omitempty"`
	CouponValueScaled    *big.Int `json:"couponValue_uint,omitempty"`
	AccruedInterestScaled *big.Int `json:"accruedInt_uint,omitempty"`
}

// PriceEntry is one instrument's entry inside a PriceSnapshot.
type PriceEntry struct {
	Price                float64  `json:"price"`
	PriceUint            *big.Int `json:"price_uint"`
	IsCurrentMarketData  bool     `json:"is_current_market_data"`
	DataSource           string   `json:"data_source"`
	Signature            string   `json:"signature,omitempty"`
	Nonce                *uint64  `json:"nonce,omitempty"`
	Deadline             *int64   `json:"deadline,omitempty"`
}

// WithoutSignature returns a copy of the entry with signature, nonce
// and deadline elided, for the unsigned-request visibility rule in
// spec.md §4.7.
func (p PriceEntry) WithoutSignature() PriceEntry {
	p.Signature = ""
	p.Nonce = nil
	p.Deadline = nil
	return p
}

// PriceSnapshot is the persisted, full-price picture cached by
// PriceCache.
type PriceSnapshot struct {
	Timestamp int64                 `json:"timestamp"`
	Prices    map[string]PriceEntry `json:"prices"`
}

// NonceRecord is the on-disk representation of NonceStore's state.
type NonceRecord struct {
	Nonce uint64 `json:"nonce"`
}
