// Package postgrest implements the record-source port against an upstream
// PostgREST endpoint exposing the transactions table. The adapter translates
// Query predicates into PostgREST filter parameters; everything the upstream
// cannot express (date ranges over text dates) stays with the caller.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"cardstats/internal/core"
	"cardstats/internal/source"
)

const defaultTimeout = 15 * time.Second

// Client queries a PostgREST endpoint. Safe for concurrent use; each request
// is independent and carries no state.
type Client struct {
	baseURL string
	table   string
	httpc   *http.Client
}

// New creates a client for the given PostgREST base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		table:   "transactions",
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

// wireRecord mirrors the upstream table schema. Nullable columns are
// pointers so absent values survive decoding as absent.
type wireRecord struct {
	CardNo         string   `json:"card_no"`
	TxnDate        string   `json:"txn_date"`
	RefNo          string   `json:"ref_no"`
	Particulars    string   `json:"particulars"`
	RewardPoints   int64    `json:"reward_points"`
	SourceCurrency string   `json:"source_currency"`
	SourceAmt      *float64 `json:"source_amt"`
	MCC            *int     `json:"MCC"`
}

func (w wireRecord) toCore() core.TransactionRecord {
	r := core.TransactionRecord{
		CardNumber:     w.CardNo,
		TxnDate:        w.TxnDate,
		RefNo:          w.RefNo,
		Particulars:    w.Particulars,
		RewardPoints:   w.RewardPoints,
		SourceCurrency: w.SourceCurrency,
		MCC:            w.MCC,
	}
	if w.SourceAmt != nil {
		amt := decimal.NewFromFloat(*w.SourceAmt)
		r.SourceAmount = &amt
	}
	return r
}

// Search implements source.RecordSource.
func (c *Client) Search(ctx context.Context, q source.Query) ([]core.TransactionRecord, error) {
	var rows []wireRecord
	if err := c.get(ctx, encodeQuery(q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	records := make([]core.TransactionRecord, 0, len(rows))
	for _, w := range rows {
		records = append(records, w.toCore())
	}
	return records, nil
}

// Categories implements source.RecordSource. PostgREST has no distinct
// projection, so the column is fetched and deduplicated here.
func (c *Client) Categories(ctx context.Context) ([]int, error) {
	params := url.Values{}
	params.Set("select", "MCC")

	var rows []struct {
		MCC *int `json:"MCC"`
	}
	if err := c.get(ctx, params, &rows); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	var codes []int
	for _, row := range rows {
		if row.MCC == nil || *row.MCC == 0 {
			continue
		}
		if _, dup := seen[*row.MCC]; dup {
			continue
		}
		seen[*row.MCC] = struct{}{}
		codes = append(codes, *row.MCC)
	}
	sort.Ints(codes)
	return codes, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	u := c.baseURL + "/" + c.table
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", source.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: upstream returned %d", source.ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", source.ErrUnavailable, err)
	}
	return nil
}

// encodeQuery maps Query predicates onto PostgREST filter syntax:
// ilike.*x* for substrings, eq./gte./lte. for comparisons, like. for the
// month glob on the text date column, or=(...) for the generic search.
func encodeQuery(q source.Query) url.Values {
	params := url.Values{}

	if q.Card != "" {
		params.Set("card_no", "ilike.*"+q.Card+"*")
	}
	if q.Merchant != "" {
		params.Set("particulars", "ilike.*"+q.Merchant+"*")
	}
	if q.RefNo != "" {
		params.Set("ref_no", "ilike.*"+q.RefNo+"*")
	}
	if q.MCC != nil {
		params.Set("MCC", "eq."+strconv.Itoa(*q.MCC))
	}
	if q.DateText != "" {
		params.Set("txn_date", "eq."+q.DateText)
	}
	if q.MonthPattern != "" {
		params.Set("txn_date", "like."+q.MonthPattern)
	}
	if q.MinAmount != nil {
		params.Add("source_amt", "gte."+q.MinAmount.String())
	}
	if q.MaxAmount != nil {
		params.Add("source_amt", "lte."+q.MaxAmount.String())
	}
	if q.AnyOf != "" {
		params.Set("or", "(card_no.ilike.*"+q.AnyOf+"*,particulars.ilike.*"+q.AnyOf+"*,ref_no.ilike.*"+q.AnyOf+"*)")
	}
	if q.OrderBy != "" {
		dir := ".asc"
		if q.Desc {
			dir = ".desc"
		}
		params.Set("order", q.OrderBy+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}
