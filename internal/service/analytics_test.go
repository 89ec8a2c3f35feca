package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cardstats/internal/core"
	"cardstats/internal/source"
	"cardstats/internal/source/memory"
)

// countingSource wraps a record source and counts upstream calls.
type countingSource struct {
	inner      source.RecordSource
	searches   int
	categories int
}

func (c *countingSource) Search(ctx context.Context, q source.Query) ([]core.TransactionRecord, error) {
	c.searches++
	return c.inner.Search(ctx, q)
}

func (c *countingSource) Categories(ctx context.Context) ([]int, error) {
	c.categories++
	return c.inner.Categories(ctx)
}

type failingSource struct{}

func (failingSource) Search(ctx context.Context, q source.Query) ([]core.TransactionRecord, error) {
	return nil, source.ErrUnavailable
}

func (failingSource) Categories(ctx context.Context) ([]int, error) {
	return nil, source.ErrUnavailable
}

func record(card, date, ref, particulars, currency string, amount float64, mccCode int) core.TransactionRecord {
	amt := decimal.NewFromFloat(amount)
	return core.TransactionRecord{
		CardNumber:     card,
		TxnDate:        date,
		RefNo:          ref,
		Particulars:    particulars,
		SourceCurrency: currency,
		SourceAmount:   &amt,
		MCC:            &mccCode,
	}
}

func testAnalytics(records ...core.TransactionRecord) *Analytics {
	return New(memory.New(records...), nil, Options{})
}

func sampleSet() []core.TransactionRecord {
	return []core.TransactionRecord{
		record("4111222233334444", "01/06/2025", "R1", "AMAZON RETAIL", "USD", 100, 5411),
		record("4111222233334444", "15/06/2025", "R2", "UBER TRIP", "USD", 50, 4121),
		record("4111222233334444", "01/07/2025", "R3", "AMAZON RETAIL", "EUR", 75, 5411),
		record("5500666677778888", "20/06/2025", "R4", "STARBUCKS", "USD", 200, 5812),
	}
}

func TestSearchByDateRejectsMalformed(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	for _, bad := range []string{"2025-06-01", "1/6/2025", "31/13/2025", "junk"} {
		if _, err := a.SearchByDate(context.Background(), bad, "", 10); !errors.Is(err, ErrBadDate) {
			t.Errorf("SearchByDate(%q) error = %v, want ErrBadDate", bad, err)
		}
	}
}

func TestSearchByDateExact(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	records, err := a.SearchByDate(context.Background(), "15/06/2025", "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].RefNo != "R2" {
		t.Fatalf("expected R2, got %+v", records)
	}
}

func TestSearchByDateNarrowsByCard(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	records, err := a.SearchByDate(context.Background(), "20/06/2025", "4444", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records for other card, got %+v", records)
	}

	records, err = a.SearchByDate(context.Background(), "20/06/2025", "8888", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].RefNo != "R4" {
		t.Fatalf("expected R4, got %+v", records)
	}
}

func TestSearchByMonthValidation(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	if _, err := a.SearchByMonth(context.Background(), 13, 2025, "", 10); !errors.Is(err, ErrBadRequest) {
		t.Errorf("month 13 error = %v, want ErrBadRequest", err)
	}
	if _, err := a.SearchByMonth(context.Background(), 0, 2025, "", 10); !errors.Is(err, ErrBadRequest) {
		t.Errorf("month 0 error = %v, want ErrBadRequest", err)
	}

	records, err := a.SearchByMonth(context.Background(), 6, 2025, "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 June records, got %d", len(records))
	}
}

func TestSearchByMonthNarrowsByCard(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	records, err := a.SearchByMonth(context.Background(), 6, 2025, "8888", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].RefNo != "R4" {
		t.Fatalf("expected only R4 for card 8888, got %+v", records)
	}
}

func TestSearchByDateRange(t *testing.T) {
	records := append(sampleSet(),
		core.TransactionRecord{CardNumber: "4111222233334444", TxnDate: "garbage", RefNo: "R5"})
	a := testAnalytics(records...)

	result, err := a.SearchByDateRange(context.Background(), "4444", "01/06/2025", "30/06/2025", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records in range, got %d", len(result.Records))
	}
	if result.Records[0].TxnDate != "15/06/2025" {
		t.Errorf("expected newest first, got %s", result.Records[0].TxnDate)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
}

func TestSearchByDateRangeRejectsBadBoundary(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	if _, err := a.SearchByDateRange(context.Background(), "", "junk", "30/06/2025", 10); !errors.Is(err, ErrBadDate) {
		t.Errorf("bad from error = %v, want ErrBadDate", err)
	}
	if _, err := a.SearchByDateRange(context.Background(), "", "01/06/2025", "junk", 10); !errors.Is(err, ErrBadDate) {
		t.Errorf("bad to error = %v, want ErrBadDate", err)
	}
}

func TestSearchByDateRangeLimit(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	result, err := a.SearchByDateRange(context.Background(), "", "01/06/2025", "31/07/2025", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected limit cap at 2, got %d", len(result.Records))
	}
}

func TestSearchHighValue(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	records, err := a.SearchHighValue(context.Background(), decimal.NewFromInt(100), nil, "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[0].Amount().Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected largest first, got %s", records[0].Amount())
	}
}

func TestSearchHighValueMaxBound(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	max := decimal.NewFromInt(100)
	records, err := a.SearchHighValue(context.Background(), decimal.NewFromInt(40), &max, "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records within bounds, got %d", len(records))
	}
	if !records[0].Amount().Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100 first, got %s", records[0].Amount())
	}
	for _, r := range records {
		if r.Amount().Cmp(max) > 0 {
			t.Errorf("record above max bound: %s", r.Amount())
		}
	}
}

func TestSearchHighValueNarrowsByCard(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	records, err := a.SearchHighValue(context.Background(), decimal.NewFromInt(40), nil, "8888", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || !records[0].Amount().Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected only the 200.00 record for card 8888, got %+v", records)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	if _, err := a.Search(context.Background(), "", 10); !errors.Is(err, ErrBadRequest) {
		t.Errorf("empty query error = %v, want ErrBadRequest", err)
	}
}

func TestMCCCodesCached(t *testing.T) {
	src := &countingSource{inner: memory.New(sampleSet()...)}
	a := New(src, nil, Options{})

	for i := 0; i < 3; i++ {
		codes, err := a.MCCCodes(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(codes) != 3 {
			t.Fatalf("expected 3 codes, got %v", codes)
		}
	}
	if src.categories != 1 {
		t.Errorf("upstream category calls = %d, want 1", src.categories)
	}
}

func TestMCCCodesUpstreamFailureIsNotCached(t *testing.T) {
	a := New(failingSource{}, nil, Options{})

	if _, err := a.MCCCodes(context.Background()); !errors.Is(err, source.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestSummary(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	s, err := a.Summary(context.Background(), "4444")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.NoData {
		t.Fatal("expected data")
	}
	if s.Overall.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Overall.Count)
	}
	if !s.Overall.Sum.Equal(decimal.NewFromInt(225)) {
		t.Errorf("Sum = %s, want 225", s.Overall.Sum)
	}

	// 5411 appears twice of three records.
	var grocery *core.RankedGroup
	for i := range s.ByMCC {
		if s.ByMCC[i].Key == "5411" {
			grocery = &s.ByMCC[i]
		}
	}
	if grocery == nil {
		t.Fatal("missing MCC 5411 in distribution")
	}
	want := decimal.NewFromInt(200).Div(decimal.NewFromInt(3))
	if !core.Round2(grocery.Share).Equal(core.Round2(want)) {
		t.Errorf("5411 share = %s, want %s", grocery.Share, want)
	}

	if len(s.ByCurrency) != 2 {
		t.Errorf("expected 2 currencies, got %d", len(s.ByCurrency))
	}
	if len(s.TopMCC) == 0 || s.TopMCC[0].Key != "5411" {
		t.Errorf("expected 5411 as top category, got %+v", s.TopMCC)
	}
}

func TestSummaryWholeLedger(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	s, err := a.Summary(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.NoData {
		t.Fatal("expected data")
	}
	if s.Overall.Count != 4 {
		t.Errorf("Count = %d, want all 4 records", s.Overall.Count)
	}
	if s.Overall.DistinctCards != 2 {
		t.Errorf("DistinctCards = %d, want 2", s.Overall.DistinctCards)
	}
}

func TestSummaryNoData(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	s, err := a.Summary(context.Background(), "0000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.NoData {
		t.Fatal("expected NoData")
	}
}

func TestReportSingleFetch(t *testing.T) {
	src := &countingSource{inner: memory.New(sampleSet()...)}
	a := New(src, nil, Options{})

	report, err := a.Report(context.Background(), ReportParams{Card: "4444"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.searches != 1 {
		t.Errorf("upstream searches = %d, want 1", src.searches)
	}
	if report.NoData {
		t.Fatal("expected data")
	}
	if report.Overall.Count != 3 {
		t.Errorf("Count = %d, want 3", report.Overall.Count)
	}
}

func TestReportDateRangeAndCoverage(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	report, err := a.Report(context.Background(), ReportParams{
		Card:     "4444",
		FromText: "01/06/2025",
		ToText:   "30/06/2025",
		MCCs:     []int{5411, 4121, 9999},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Overall.Count != 2 {
		t.Errorf("Count = %d, want 2 records in June", report.Overall.Count)
	}
	if report.Coverage == nil {
		t.Fatal("expected coverage")
	}
	if len(report.Coverage.Missing) != 1 || report.Coverage.Missing[0] != 9999 {
		t.Errorf("Missing = %v, want [9999]", report.Coverage.Missing)
	}
}

func TestReportRejectsBadBoundary(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	_, err := a.Report(context.Background(), ReportParams{FromText: "30/02/2025"})
	if !errors.Is(err, ErrBadDate) {
		t.Errorf("error = %v, want ErrBadDate", err)
	}
}

func TestReportPropagatesUpstreamFailure(t *testing.T) {
	a := New(failingSource{}, nil, Options{})

	_, err := a.Report(context.Background(), ReportParams{Card: "4444"})
	if !errors.Is(err, source.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestGroupedByBuckets(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	result, err := a.GroupedByBuckets(context.Background(), "4444", "01/06/2025", "30/06/2025", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Buckets) != 5 {
		t.Fatalf("expected 5 windows, got %d", len(result.Buckets))
	}
	if result.Buckets[0].Summary.Count != 1 {
		t.Errorf("first window Count = %d, want 1", result.Buckets[0].Summary.Count)
	}
}

func TestGroupedByBucketsRejectsBadInput(t *testing.T) {
	a := testAnalytics(sampleSet()...)

	if _, err := a.GroupedByBuckets(context.Background(), "", "01/06/2025", "30/06/2025", 0); !errors.Is(err, ErrBadRequest) {
		t.Errorf("zero days error = %v, want ErrBadRequest", err)
	}
	if _, err := a.GroupedByBuckets(context.Background(), "", "junk", "30/06/2025", 7); !errors.Is(err, ErrBadDate) {
		t.Errorf("bad from error = %v, want ErrBadDate", err)
	}
}
