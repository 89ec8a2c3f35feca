package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildReportGroupings(t *testing.T) {
	rep := BuildReport(sampleRecords(), ReportOptions{TopN: 5})
	if rep.NoData {
		t.Fatal("report over three records is not no-data")
	}
	if rep.Overall.Count != 3 || !rep.Overall.Sum.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("overall count=%d sum=%s", rep.Overall.Count, rep.Overall.Sum)
	}

	if len(rep.ByCategory) != 2 || rep.ByCategory[0].Key != "2" {
		t.Fatalf("category ranking should lead with MCC 2 (amount 200): %+v", rep.ByCategory)
	}
	if len(rep.ByMonth) != 2 || rep.ByMonth[0].Key != "2025-07" {
		t.Fatalf("month ranking should lead with 2025-07: %+v", rep.ByMonth)
	}
	if len(rep.ByCard) != 2 {
		t.Fatalf("expected 2 card groups, got %d", len(rep.ByCard))
	}
}

func TestBuildReportMasksCards(t *testing.T) {
	records := []TransactionRecord{
		{CardNumber: "4111222233334444", SourceAmount: amt("10"), TxnDate: "01/06/2025"},
		{CardNumber: "ab", SourceAmount: amt("5"), TxnDate: "01/06/2025"},
	}
	rep := BuildReport(records, ReportOptions{})

	keys := map[string]bool{}
	for _, g := range rep.ByCard {
		keys[g.Key] = true
	}
	if !keys["****-****-****-4444"] {
		t.Errorf("long identifiers must be masked, got %v", keys)
	}
	if !keys["ab"] {
		t.Errorf("short identifiers pass through unmasked, got %v", keys)
	}
}

func TestBuildReportShares(t *testing.T) {
	rep := BuildReport(sampleRecords(), ReportOptions{})
	sum := decimal.Decimal{}
	for _, g := range rep.ByCategory {
		sum = sum.Add(g.Share)
	}
	if !Round2(sum).Equal(decimal.NewFromInt(100)) {
		t.Fatalf("category shares sum to %s, want 100", sum)
	}
}

func TestBuildReportTopN(t *testing.T) {
	records := sampleRecords()
	records = append(records,
		TransactionRecord{CardNumber: "C", SourceAmount: amt("7"), MCC: mcc(3), TxnDate: "02/06/2025"},
		TransactionRecord{CardNumber: "D", SourceAmount: amt("3"), MCC: mcc(4), TxnDate: "03/06/2025"},
	)
	rep := BuildReport(records, ReportOptions{TopN: 3})
	if len(rep.ByCategory) != 3 {
		t.Fatalf("top-3 must never return more than 3 entries, got %d", len(rep.ByCategory))
	}
	// Shares stay relative to the overall total even after truncation.
	if rep.ByCategory[0].Share.Cmp(decimal.NewFromInt(100)) > 0 {
		t.Fatalf("share above 100%%: %s", rep.ByCategory[0].Share)
	}
}

func TestBuildReportCoverage(t *testing.T) {
	rep := BuildReport(sampleRecords(), ReportOptions{RequestedMCCs: []int{1, 2, 3}})
	if rep.Coverage == nil {
		t.Fatal("coverage must be present when an MCC set is requested")
	}
	cov := rep.Coverage
	if len(cov.Found) != 2 || cov.Found[0] != 1 || cov.Found[1] != 2 {
		t.Errorf("found = %v, want [1 2]", cov.Found)
	}
	if len(cov.Missing) != 1 || cov.Missing[0] != 3 {
		t.Errorf("missing = %v, want [3]", cov.Missing)
	}
	want, _ := decimal.NewFromString("66.67")
	if !Round2(cov.Percentage).Equal(want) {
		t.Errorf("coverage percentage = %s, want 66.67", Round2(cov.Percentage))
	}
}

func TestBuildReportNoCoverageWithoutRequest(t *testing.T) {
	rep := BuildReport(sampleRecords(), ReportOptions{})
	if rep.Coverage != nil {
		t.Fatal("coverage only appears for an explicit MCC set")
	}
}

func TestBuildReportNoData(t *testing.T) {
	rep := BuildReport(nil, ReportOptions{RequestedMCCs: []int{9}})
	if !rep.NoData {
		t.Fatal("empty record set must be explicit no-data")
	}
	if rep.Coverage == nil || len(rep.Coverage.Missing) != 1 {
		t.Fatal("requested codes are all missing when nothing matched")
	}
	if !rep.Coverage.Percentage.IsZero() {
		t.Fatalf("coverage over nothing is 0, got %s", rep.Coverage.Percentage)
	}
}

func TestBuildReportSkippedUnparseable(t *testing.T) {
	records := append(sampleRecords(),
		TransactionRecord{CardNumber: "E", SourceAmount: amt("1"), TxnDate: "garbage"},
	)
	rep := BuildReport(records, ReportOptions{})
	if rep.SkippedUnparseable != 1 {
		t.Fatalf("expected 1 skipped unparseable, got %d", rep.SkippedUnparseable)
	}
	// The unparseable record still contributes to overall statistics.
	if rep.Overall.Count != 4 {
		t.Fatalf("overall count = %d, want 4", rep.Overall.Count)
	}
}
