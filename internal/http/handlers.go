package http

import (
	"net/http"

	"cardstats/internal/core"
	"cardstats/internal/service"
)

func (s *Server) handleSearchByCard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	card, err := requireString(query, "card_no")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := queryInt(query, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.analytics.SearchByCard(r.Context(), card, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Count:        len(records),
		Transactions: toTransactionDTOs(records),
	})
}

func (s *Server) handleSearchByMCC(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mcc, err := requireInt(query, "mcc")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := queryInt(query, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.analytics.SearchByMCC(r.Context(), mcc, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Count:        len(records),
		Transactions: toTransactionDTOs(records),
	})
}

func (s *Server) handleSearchByMonth(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	month, err := requireInt(query, "month")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	year, err := requireInt(query, "year")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := queryInt(query, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.analytics.SearchByMonth(r.Context(), month, year, queryString(query, "card_no"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Count:        len(records),
		Transactions: toTransactionDTOs(records),
	})
}

func (s *Server) handleSearchByDate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, err := requireString(query, "date")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := queryInt(query, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.analytics.SearchByDate(r.Context(), date, queryString(query, "card_no"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Count:        len(records),
		Transactions: toTransactionDTOs(records),
	})
}

func (s *Server) handleSearchByDateRange(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := requireString(query, "from_date")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	to, err := requireString(query, "to_date")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := queryInt(query, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.analytics.SearchByDateRange(r.Context(), queryString(query, "card_no"), from, to, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Count:              len(result.Records),
		SkippedUnparseable: &result.Skipped,
		Transactions:       toTransactionDTOs(result.Records),
	})
}

func (s *Server) handleSearchByMerchant(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	merchant, err := requireString(query, "merchant")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := queryInt(query, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.analytics.SearchByMerchant(r.Context(), merchant, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Count:        len(records),
		Transactions: toTransactionDTOs(records),
	})
}

func (s *Server) handleSearchHighValue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	minAmount, err := parseAmount(query, "min_amount")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	maxAmount, err := parseOptionalAmount(query, "max_amount")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := queryInt(query, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.analytics.SearchHighValue(r.Context(), minAmount, maxAmount, queryString(query, "card_no"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Count:        len(records),
		Transactions: toTransactionDTOs(records),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q, err := requireString(query, "q")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	limit, err := queryInt(query, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	records, err := s.analytics.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Count:        len(records),
		Transactions: toTransactionDTOs(records),
	})
}

func (s *Server) handleMCCCategories(w http.ResponseWriter, r *http.Request) {
	codes, err := s.analytics.MCCCodes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if codes == nil {
		codes = []int{}
	}
	writeJSON(w, http.StatusOK, struct {
		Count int   `json:"count"`
		MCCs  []int `json:"mccs"`
	}{Count: len(codes), MCCs: codes})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	// card_no is optional; without it the summary covers the whole ledger.
	card := queryString(r.URL.Query(), "card_no")

	summary, err := s.analytics.Summary(r.Context(), card)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if summary.NoData {
		writeJSON(w, http.StatusOK, summaryResponse{NoData: true})
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Overall:              toOverallDTO(summary.Overall),
		MCCDistribution:      toRankedDTOs(summary.ByMCC),
		CurrencyDistribution: toRankedDTOs(summary.ByCurrency),
		TopMCC:               toGroupDTOs(summary.TopMCC),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mccs, err := parseMCCList(query, "mccs")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	topN, err := queryInt(query, "top_n", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	report, err := s.analytics.Report(r.Context(), service.ReportParams{
		Card:     queryString(query, "card_no"),
		FromText: queryString(query, "from_date"),
		ToText:   queryString(query, "to_date"),
		MCCs:     mccs,
		TopN:     topN,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := reportResponse{
		NoData:             report.NoData,
		Coverage:           toCoverageDTO(report.Coverage),
		SkippedUnparseable: report.SkippedUnparseable,
	}
	if !report.NoData {
		resp.Overall = toOverallDTO(report.Overall)
		resp.ByCategory = toRankedDTOs(report.ByCategory)
		resp.ByCard = toRankedDTOs(report.ByCard)
		resp.ByMonth = toRankedDTOs(report.ByMonth)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGroupedByDateRange(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := requireString(query, "from_date")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	to, err := requireString(query, "to_date")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	days, err := queryInt(query, "bucket_days", 7)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.analytics.GroupedByBuckets(r.Context(), queryString(query, "card_no"), from, to, days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	buckets := make([]bucketDTO, 0, len(result.Buckets))
	for _, b := range result.Buckets {
		buckets = append(buckets, bucketDTO{
			Label: b.Bucket.Label(),
			From:  core.FormatDate(b.Bucket.From),
			To:    core.FormatDate(b.Bucket.To),
			Count: b.Summary.Count,
			Total: amountString(b.Summary.Sum),
			Avg:   amountString(b.Summary.Avg()),
		})
	}
	writeJSON(w, http.StatusOK, bucketsResponse{
		Buckets:            buckets,
		SkippedUnparseable: result.Skipped,
	})
}
