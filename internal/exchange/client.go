// Package exchange adapts the MOEX ISS REST API to the four reads the
// Provider needs: instrument list, market snapshot, daily candles and
// per-instrument descriptive metadata. The wire format throughout is
// ISS's row/column shape ({"columns": [...], "data": [[...], ...]}),
// per original_source/get_ofz_prices.py.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

const (
	// ofzSecurityTypeCode is MOEX's numeric SECTYPE code for OFZ bonds,
	// per original_source/get_ofz_prices.py::fetch_ofz_list.
	ofzSecurityTypeCode = "3"
	activeStatusMarker  = "A"
	defaultTimeout      = 15 * time.Second
)

// Client is a thin adapter over the exchange's REST API. Retry policy
// is deliberately absent here per spec.md §4.1 ("no retry inside the
// client") — resty is used only for its timeout handling and typed
// response decoding, with SetRetryCount left at its zero default.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

// New builds a Client against baseURL with the given request timeout.
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: http, logger: logger}
}

// rowColumnTable is ISS's recurring {"columns": [...], "data": [[...]]}
// shape.
type rowColumnTable struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

func (t rowColumnTable) colIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func stringCell(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func floatCell(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

type instrumentsResponse struct {
	Securities rowColumnTable `json:"securities"`
}

// ListInstruments returns every actively traded OFZ instrument, per
// original_source/get_ofz_prices.py::fetch_ofz_list.
func (c *Client) ListInstruments(ctx context.Context) ([]oracle.Instrument, error) {
	var body instrumentsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParam("iss.meta", "off").
		SetQueryParam("limit", "10000").
		Get("/iss/engines/stock/markets/bonds/boards/TQOB/securities.json")
	if err != nil {
		return nil, &oracle.UpstreamError{Op: "list_instruments", Err: err}
	}
	if resp.IsError() {
		return nil, &oracle.UpstreamError{Op: "list_instruments", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	table := body.Securities
	secidIdx, shortNameIdx := table.colIndex("SECID"), table.colIndex("SHORTNAME")
	secTypeIdx, statusIdx := table.colIndex("SECTYPE"), table.colIndex("STATUS")
	if secidIdx < 0 || secTypeIdx < 0 || statusIdx < 0 {
		return nil, &oracle.UpstreamError{Op: "list_instruments", Err: fmt.Errorf("missing expected columns in securities table")}
	}

	maxIdx := secidIdx
	if secTypeIdx > maxIdx {
		maxIdx = secTypeIdx
	}
	if statusIdx > maxIdx {
		maxIdx = statusIdx
	}

	out := make([]oracle.Instrument, 0, len(table.Data))
	for _, row := range table.Data {
		if len(row) <= maxIdx {
			continue
		}
		if stringCell(row[secTypeIdx]) != ofzSecurityTypeCode || stringCell(row[statusIdx]) != activeStatusMarker {
			continue
		}
		inst := oracle.Instrument{SECID: stringCell(row[secidIdx])}
		if shortNameIdx >= 0 && shortNameIdx < len(row) {
			inst.ShortName = stringCell(row[shortNameIdx])
		}
		out = append(out, inst)
	}
	return out, nil
}

type marketDataResponse struct {
	MarketData rowColumnTable `json:"marketdata"`
}

// MarketSnapshot returns the raw field→value mapping for one
// instrument's current marketdata row; fields absent or null upstream
// are omitted from the map rather than present with a zero value, per
// original_source/get_ofz_prices.py::market_prices.
func (c *Client) MarketSnapshot(ctx context.Context, secid string) (map[string]float64, error) {
	var body marketDataResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("secid", secid).
		SetQueryParam("iss.only", "marketdata").
		SetQueryParam("iss.meta", "off").
		Get("/iss/engines/stock/markets/bonds/securities/{secid}.json")
	if err != nil {
		return nil, &oracle.UpstreamError{Op: "market_snapshot", Err: err}
	}
	if resp.IsError() {
		return nil, &oracle.UpstreamError{Op: "market_snapshot", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	table := body.MarketData
	out := make(map[string]float64, len(table.Columns))
	if len(table.Data) == 0 {
		return out, nil
	}
	row := table.Data[0]
	for i, col := range table.Columns {
		if i >= len(row) {
			continue
		}
		if v, ok := floatCell(row[i]); ok {
			out[col] = v
		}
	}
	return out, nil
}

// Candle is one daily OHLC row; only Begin and Close matter to
// PriceResolver's fallback.
type Candle struct {
	Begin string
	Close float64
}

type candlesResponse struct {
	Candles rowColumnTable `json:"candles"`
}

// DailyCandles returns candles for secid between from and to,
// oldest first, per original_source/get_ofz_prices.py::daily_candles.
func (c *Client) DailyCandles(ctx context.Context, secid string, from, to time.Time) ([]Candle, error) {
	var body candlesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("secid", secid).
		SetQueryParam("interval", "24").
		SetQueryParam("from", from.Format("2006-01-02")).
		SetQueryParam("to", to.Format("2006-01-02")).
		SetQueryParam("iss.meta", "off").
		Get("/iss/engines/stock/markets/bonds/boards/TQOB/securities/{secid}/candles.json")
	if err != nil {
		return nil, &oracle.UpstreamError{Op: "daily_candles", Err: err}
	}
	if resp.IsError() {
		return nil, &oracle.UpstreamError{Op: "daily_candles", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	table := body.Candles
	beginIdx, closeIdx := table.colIndex("begin"), table.colIndex("close")
	if beginIdx < 0 || closeIdx < 0 {
		return nil, &oracle.UpstreamError{Op: "daily_candles", Err: fmt.Errorf("missing begin/close columns in candles table")}
	}

	maxIdx := beginIdx
	if closeIdx > maxIdx {
		maxIdx = closeIdx
	}

	out := make([]Candle, 0, len(table.Data))
	for _, row := range table.Data {
		if len(row) <= maxIdx {
			continue
		}
		closeVal, _ := floatCell(row[closeIdx])
		out = append(out, Candle{Begin: stringCell(row[beginIdx]), Close: closeVal})
	}
	return out, nil
}

// Description is the merged field→string mapping pricing.BuildBondDetails
// reads, keyed by MOEX field name (INITIALFACEVALUE, FACEVALUE, MATDATE,
// ...). It is assembled from the "securities" row (authoritative column
// names, used as a fallback base) overlaid with the "description" block's
// name/value rows (authoritative values where present), exactly
// reproducing original_source/get_ofz_prices.py::get_bond_details's
// two-block merge.
type Description map[string]string

type securitiesAndDescriptionResponse struct {
	Securities  rowColumnTable `json:"securities"`
	Description rowColumnTable `json:"description"`
}

// Description fetches descriptive metadata for one instrument.
func (c *Client) Description(ctx context.Context, secid string) (Description, error) {
	var body securitiesAndDescriptionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("secid", secid).
		SetQueryParam("iss.only", "securities,description").
		SetQueryParam("iss.meta", "off").
		Get("/iss/securities/{secid}.json")
	if err != nil {
		return nil, &oracle.UpstreamError{Op: "description", Err: err}
	}
	if resp.IsError() {
		return nil, &oracle.UpstreamError{Op: "description", Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	out := make(Description)

	// Base layer: the "securities" block's single row, keyed by its own
	// column names (FACEVALUE, MATDATE, COUPONVALUE, COUPONPERCENT,
	// NEXTCOUPON, ...), used as a fallback when "description" lacks a
	// field.
	secTable := body.Securities
	if len(secTable.Data) > 0 {
		row := secTable.Data[0]
		for i, col := range secTable.Columns {
			if i < len(row) && row[i] != nil {
				out[col] = stringCell(row[i])
			}
		}
	}

	// Overlay: the "description" block's name/value rows, which take
	// precedence over the securities fallback.
	descTable := body.Description
	nameIdx, valueIdx := descTable.colIndex("name"), descTable.colIndex("value")
	if nameIdx >= 0 && valueIdx >= 0 {
		for _, row := range descTable.Data {
			if nameIdx >= len(row) || valueIdx >= len(row) || row[valueIdx] == nil {
				continue
			}
			out[stringCell(row[nameIdx])] = stringCell(row[valueIdx])
		}
	}

	return out, nil
}
