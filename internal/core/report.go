package core

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// ReportOptions configures the comprehensive report composer.
type ReportOptions struct {
	// TopN caps each ranking; <= 0 keeps every group.
	TopN int
	// RequestedMCCs, when non-empty, adds coverage metrics for the set.
	RequestedMCCs []int
}

// Coverage describes how much of a requested category-code set actually
// appears in the matched records.
type Coverage struct {
	Requested []int
	Found     []int
	Missing   []int
	// Percentage is 100 * found / requested, unrounded.
	Percentage decimal.Decimal
}

// Report is the comprehensive analytics response: overall statistics plus
// three simultaneous groupings over the same record set, each ranked,
// truncated and share-annotated, with optional category coverage.
type Report struct {
	NoData  bool
	Overall GroupSummary

	ByCategory []RankedGroup
	ByCard     []RankedGroup
	ByMonth    []RankedGroup

	Coverage *Coverage

	// SkippedUnparseable counts records excluded from the month grouping
	// because their date text could not be parsed.
	SkippedUnparseable int
}

// BuildReport composes the full report from a single already-filtered record
// set. The three groupings are independent views over the same slice; no
// re-filtering or re-fetching happens here. Card identifiers are masked on
// the way out.
func BuildReport(records []TransactionRecord, opts ReportOptions) Report {
	rep := Report{NoData: len(records) == 0}
	if rep.NoData {
		if len(opts.RequestedMCCs) > 0 {
			rep.Coverage = buildCoverage(opts.RequestedMCCs, nil)
		}
		return rep
	}

	rep.Overall = Overall(records)
	total := rep.Overall.Sum

	byCategory := Aggregate(records, KeyByMCC)
	byCard := Aggregate(records, KeyByCard)
	byMonth := Aggregate(records, KeyByMonth)
	rep.SkippedUnparseable = byMonth.Skipped

	rep.ByCategory = Distribute(Rank(byCategory.Groups, MetricAmount, opts.TopN), MetricAmount, total)
	rep.ByMonth = Distribute(Rank(byMonth.Groups, MetricAmount, opts.TopN), MetricAmount, total)

	masked := Distribute(Rank(byCard.Groups, MetricAmount, opts.TopN), MetricAmount, total)
	for i := range masked {
		masked[i].Key = MaskCard(masked[i].Key)
	}
	rep.ByCard = masked

	if len(opts.RequestedMCCs) > 0 {
		rep.Coverage = buildCoverage(opts.RequestedMCCs, byCategory.Groups)
	}
	return rep
}

func buildCoverage(requested []int, categoryGroups []GroupSummary) *Coverage {
	cov := &Coverage{Requested: NormalizeMCCs(requested)}

	present := make(map[string]struct{}, len(categoryGroups))
	for _, g := range categoryGroups {
		present[g.Key] = struct{}{}
	}
	for _, code := range cov.Requested {
		if _, ok := present[strconv.Itoa(code)]; ok {
			cov.Found = append(cov.Found, code)
		} else {
			cov.Missing = append(cov.Missing, code)
		}
	}
	if n := len(cov.Requested); n > 0 {
		cov.Percentage = decimal.NewFromInt(int64(len(cov.Found)) * 100).
			Div(decimal.NewFromInt(int64(n)))
	}
	return cov
}
