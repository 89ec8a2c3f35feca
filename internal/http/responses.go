package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"cardstats/internal/core"
	applog "cardstats/internal/log"
	"cardstats/internal/service"
	"cardstats/internal/source"
)

type transactionDTO struct {
	CardNo         string  `json:"card_no"`
	TxnDate        string  `json:"txn_date"`
	RefNo          string  `json:"ref_no"`
	Particulars    string  `json:"particulars"`
	RewardPoints   int64   `json:"reward_points"`
	SourceCurrency string  `json:"source_currency"`
	SourceAmt      *string `json:"source_amt"`
	MCC            *int    `json:"MCC"`
}

type searchResponse struct {
	Count              int              `json:"count"`
	SkippedUnparseable *int             `json:"skipped_unparseable,omitempty"`
	Transactions       []transactionDTO `json:"transactions"`
}

type groupDTO struct {
	Key          string  `json:"key"`
	Count        int     `json:"count"`
	Total        string  `json:"total"`
	Avg          string  `json:"avg"`
	Min          *string `json:"min,omitempty"`
	Max          *string `json:"max,omitempty"`
	RewardPoints int64   `json:"reward_points"`
}

type rankedDTO struct {
	groupDTO
	SharePct string `json:"share_pct"`
}

type overallDTO struct {
	Count             int     `json:"count"`
	Total             string  `json:"total"`
	Avg               string  `json:"avg"`
	Min               *string `json:"min,omitempty"`
	Max               *string `json:"max,omitempty"`
	RewardPoints      int64   `json:"reward_points"`
	RewardAvg         string  `json:"reward_avg"`
	DistinctCards     int     `json:"distinct_cards"`
	DistinctMerchants int     `json:"distinct_merchants"`
	DistinctMCCs      int     `json:"distinct_mccs"`
}

type summaryResponse struct {
	NoData               bool        `json:"no_data"`
	Overall              *overallDTO `json:"overall,omitempty"`
	MCCDistribution      []rankedDTO `json:"mcc_distribution,omitempty"`
	CurrencyDistribution []rankedDTO `json:"currency_distribution,omitempty"`
	TopMCC               []groupDTO  `json:"top_mcc,omitempty"`
}

type coverageDTO struct {
	Requested  []int  `json:"requested"`
	Found      []int  `json:"found"`
	Missing    []int  `json:"missing"`
	Percentage string `json:"percentage"`
}

type reportResponse struct {
	NoData             bool         `json:"no_data"`
	Overall            *overallDTO  `json:"overall,omitempty"`
	ByCategory         []rankedDTO  `json:"by_category,omitempty"`
	ByCard             []rankedDTO  `json:"by_card,omitempty"`
	ByMonth            []rankedDTO  `json:"by_month,omitempty"`
	Coverage           *coverageDTO `json:"mcc_coverage,omitempty"`
	SkippedUnparseable int          `json:"skipped_unparseable"`
}

type bucketDTO struct {
	Label string `json:"label"`
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
	Total string `json:"total"`
	Avg   string `json:"avg"`
}

type bucketsResponse struct {
	Buckets            []bucketDTO `json:"buckets"`
	SkippedUnparseable int         `json:"skipped_unparseable"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Amounts cross the wire as fixed two-decimal strings.
func amountString(d decimal.Decimal) string {
	return core.Round2(d).StringFixed(2)
}

func optionalAmount(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := amountString(*d)
	return &s
}

func toTransactionDTO(r core.TransactionRecord) transactionDTO {
	return transactionDTO{
		CardNo:         r.CardNumber,
		TxnDate:        r.TxnDate,
		RefNo:          r.RefNo,
		Particulars:    r.Particulars,
		RewardPoints:   r.RewardPoints,
		SourceCurrency: r.SourceCurrency,
		SourceAmt:      optionalAmount(r.SourceAmount),
		MCC:            r.MCC,
	}
}

func toTransactionDTOs(records []core.TransactionRecord) []transactionDTO {
	dtos := make([]transactionDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, toTransactionDTO(r))
	}
	return dtos
}

func toGroupDTO(g core.GroupSummary) groupDTO {
	return groupDTO{
		Key:          g.Key,
		Count:        g.Count,
		Total:        amountString(g.Sum),
		Avg:          amountString(g.Avg()),
		Min:          optionalAmount(g.Min),
		Max:          optionalAmount(g.Max),
		RewardPoints: g.RewardSum,
	}
}

func toGroupDTOs(groups []core.GroupSummary) []groupDTO {
	dtos := make([]groupDTO, 0, len(groups))
	for _, g := range groups {
		dtos = append(dtos, toGroupDTO(g))
	}
	return dtos
}

func toRankedDTOs(groups []core.RankedGroup) []rankedDTO {
	dtos := make([]rankedDTO, 0, len(groups))
	for _, g := range groups {
		dtos = append(dtos, rankedDTO{
			groupDTO: toGroupDTO(g.GroupSummary),
			SharePct: amountString(g.Share),
		})
	}
	return dtos
}

func toOverallDTO(g core.GroupSummary) *overallDTO {
	return &overallDTO{
		Count:             g.Count,
		Total:             amountString(g.Sum),
		Avg:               amountString(g.Avg()),
		Min:               optionalAmount(g.Min),
		Max:               optionalAmount(g.Max),
		RewardPoints:      g.RewardSum,
		RewardAvg:         amountString(g.RewardAvg()),
		DistinctCards:     g.DistinctCards,
		DistinctMerchants: g.DistinctMerchants,
		DistinctMCCs:      g.DistinctMCCs,
	}
}

func toCoverageDTO(c *core.Coverage) *coverageDTO {
	if c == nil {
		return nil
	}
	return &coverageDTO{
		Requested:  c.Requested,
		Found:      c.Found,
		Missing:    c.Missing,
		Percentage: amountString(c.Percentage),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

// writeError maps service and source failures onto HTTP status codes:
// bad parameters become 400, an unreachable data source becomes 502 and
// anything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrBadDate), errors.Is(err, service.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, source.ErrUnavailable):
		slog.ErrorContext(r.Context(), "Data source unavailable",
			applog.FieldError, err.Error(), applog.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "data source unavailable"})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err.Error(), applog.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
