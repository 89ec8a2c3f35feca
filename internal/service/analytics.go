// Package service exposes the read-side analytics operations over a
// record source: single-criterion searches, local date-range narrowing,
// summaries, comprehensive reports and time-bucketed groupings.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cardstats/internal/cache"
	"cardstats/internal/core"
	"cardstats/internal/log"
	"cardstats/internal/source"
)

// ErrBadDate reports a date parameter that is not a valid DD/MM/YYYY date.
var ErrBadDate = errors.New("invalid date, expected DD/MM/YYYY")

// ErrBadRequest reports an invalid non-date parameter.
var ErrBadRequest = errors.New("invalid request parameter")

const mccCacheKey = "mcc_codes"

type Options struct {
	DefaultLimit int
	MaxLimit     int
	TopN         int
	MCCCacheTTL  time.Duration
}

type Analytics struct {
	src    source.RecordSource
	logger *log.Logger

	defaultLimit int
	maxLimit     int
	topN         int

	mccCache *cache.LRUCache[[]int]
}

func New(src source.RecordSource, logger *log.Logger, opts Options) *Analytics {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 100
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 1000
	}
	if opts.TopN <= 0 {
		opts.TopN = 5
	}
	if opts.MCCCacheTTL <= 0 {
		opts.MCCCacheTTL = 5 * time.Minute
	}

	return &Analytics{
		src:          src,
		logger:       logger.WithComponent(log.ComponentAnalytics),
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		topN:         opts.TopN,
		mccCache:     cache.NewLRUCache[[]int](1, opts.MCCCacheTTL),
	}
}

// MCCCache exposes the category cache for cleanup registration.
func (a *Analytics) MCCCache() *cache.LRUCache[[]int] {
	return a.mccCache
}

func (a *Analytics) clampLimit(limit int) int {
	if limit <= 0 {
		return a.defaultLimit
	}
	if limit > a.maxLimit {
		return a.maxLimit
	}
	return limit
}

// SearchByCard returns transactions whose card number contains the given
// fragment, newest first.
func (a *Analytics) SearchByCard(ctx context.Context, card string, limit int) ([]core.TransactionRecord, error) {
	return a.src.Search(ctx, source.Query{
		Card:    card,
		OrderBy: source.OrderByDate,
		Desc:    true,
		Limit:   a.clampLimit(limit),
	})
}

// SearchByMCC returns transactions with the exact merchant category code.
func (a *Analytics) SearchByMCC(ctx context.Context, mcc int, limit int) ([]core.TransactionRecord, error) {
	return a.src.Search(ctx, source.Query{
		MCC:     &mcc,
		OrderBy: source.OrderByDate,
		Desc:    true,
		Limit:   a.clampLimit(limit),
	})
}

// SearchByMonth returns transactions in the given calendar month,
// optionally narrowed to a card fragment.
func (a *Analytics) SearchByMonth(ctx context.Context, month, year int, card string, limit int) ([]core.TransactionRecord, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", ErrBadRequest, month)
	}
	if year < 1000 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d out of range", ErrBadRequest, year)
	}
	return a.src.Search(ctx, source.Query{
		Card:         card,
		MonthPattern: source.MonthPattern(month, year),
		OrderBy:      source.OrderByDate,
		Desc:         true,
		Limit:        a.clampLimit(limit),
	})
}

// SearchByDate returns transactions on an exact date, optionally narrowed
// to a card fragment. The date must be a valid DD/MM/YYYY string.
func (a *Analytics) SearchByDate(ctx context.Context, dateText, card string, limit int) ([]core.TransactionRecord, error) {
	if _, ok := core.ParseDate(dateText); !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadDate, dateText)
	}
	return a.src.Search(ctx, source.Query{
		Card:     card,
		DateText: dateText,
		Limit:    a.clampLimit(limit),
	})
}

// SearchByMerchant returns transactions whose particulars contain the
// given fragment, newest first.
func (a *Analytics) SearchByMerchant(ctx context.Context, merchant string, limit int) ([]core.TransactionRecord, error) {
	return a.src.Search(ctx, source.Query{
		Merchant: merchant,
		OrderBy:  source.OrderByDate,
		Desc:     true,
		Limit:    a.clampLimit(limit),
	})
}

// SearchHighValue returns transactions at or above minAmount, largest
// first. A non-nil maxAmount adds an inclusive upper bound; a non-empty
// card narrows to that card fragment.
func (a *Analytics) SearchHighValue(ctx context.Context, minAmount decimal.Decimal, maxAmount *decimal.Decimal, card string, limit int) ([]core.TransactionRecord, error) {
	return a.src.Search(ctx, source.Query{
		Card:      card,
		MinAmount: &minAmount,
		MaxAmount: maxAmount,
		OrderBy:   source.OrderByAmount,
		Desc:      true,
		Limit:     a.clampLimit(limit),
	})
}

// Search matches the query against card number, particulars and reference
// number at once.
func (a *Analytics) Search(ctx context.Context, query string, limit int) ([]core.TransactionRecord, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrBadRequest)
	}
	return a.src.Search(ctx, source.Query{
		AnyOf:   query,
		OrderBy: source.OrderByDate,
		Desc:    true,
		Limit:   a.clampLimit(limit),
	})
}

// RangeResult carries date-range search results together with the number
// of records dropped because their date text could not be parsed.
type RangeResult struct {
	Records []core.TransactionRecord
	Skipped int
}

// SearchByDateRange returns transactions between from and to inclusive.
// The backend narrows by card only; date comparison happens here because
// dates are stored as text.
func (a *Analytics) SearchByDateRange(ctx context.Context, card, fromText, toText string, limit int) (RangeResult, error) {
	from, ok := core.ParseDate(fromText)
	if !ok {
		return RangeResult{}, fmt.Errorf("%w: %q", ErrBadDate, fromText)
	}
	to, ok := core.ParseDate(toText)
	if !ok {
		return RangeResult{}, fmt.Errorf("%w: %q", ErrBadDate, toText)
	}

	records, err := a.src.Search(ctx, source.Query{
		Card:    card,
		OrderBy: source.OrderByDate,
		Desc:    true,
		Limit:   a.maxLimit,
	})
	if err != nil {
		return RangeResult{}, err
	}

	filter := core.Filter{From: &from, To: &to}
	kept, skipped := filter.Apply(records)
	core.SortByDateDesc(kept)

	max := a.clampLimit(limit)
	if len(kept) > max {
		kept = kept[:max]
	}

	a.logger.DebugContext(ctx, "Date range search",
		log.FieldOperation, log.OpSearch,
		log.FieldRecords, len(kept),
		log.FieldSkipped, skipped)

	return RangeResult{Records: kept, Skipped: skipped}, nil
}

// MCCCodes returns the distinct merchant category codes present in the
// source. The catalog changes rarely, so results are cached.
func (a *Analytics) MCCCodes(ctx context.Context) ([]int, error) {
	if codes, ok := a.mccCache.Get(mccCacheKey); ok {
		return codes, nil
	}

	codes, err := a.src.Categories(ctx)
	if err != nil {
		return nil, err
	}

	a.mccCache.Set(mccCacheKey, codes)
	a.logger.DebugContext(ctx, "Refreshed MCC catalog",
		log.FieldOperation, log.OpCatalog,
		log.FieldRecords, len(codes))
	return codes, nil
}

// Summary describes a card's transactions in aggregate: overall totals,
// category and currency distributions by transaction count, and the most
// frequent categories.
type Summary struct {
	NoData     bool
	Overall    core.GroupSummary
	ByMCC      []core.RankedGroup
	ByCurrency []core.RankedGroup
	TopMCC     []core.GroupSummary
}

// Summary computes the transaction summary for a card fragment.
func (a *Analytics) Summary(ctx context.Context, card string) (Summary, error) {
	records, err := a.src.Search(ctx, source.Query{
		Card:  card,
		Limit: a.maxLimit,
	})
	if err != nil {
		return Summary{}, err
	}
	if len(records) == 0 {
		return Summary{NoData: true}, nil
	}

	overall := core.Overall(records)
	total := decimal.NewFromInt(int64(overall.Count))

	byMCC := core.Aggregate(records, core.KeyByMCC)
	byCurrency := core.Aggregate(records, keyByCurrency)

	a.logger.DebugContext(ctx, "Built summary",
		log.FieldOperation, log.OpSummary,
		log.FieldCard, core.MaskCard(card),
		log.FieldRecords, overall.Count)

	return Summary{
		Overall:    overall,
		ByMCC:      core.Distribute(byMCC.Groups, core.MetricCount, total),
		ByCurrency: core.Distribute(byCurrency.Groups, core.MetricCount, total),
		TopMCC:     core.Rank(byMCC.Groups, core.MetricCount, a.topN),
	}, nil
}

func keyByCurrency(r core.TransactionRecord) (string, bool) {
	if r.SourceCurrency == "" {
		return "", false
	}
	return r.SourceCurrency, true
}

// ReportParams selects the records and shape of a comprehensive report.
type ReportParams struct {
	Card     string
	FromText string
	ToText   string
	MCCs     []int
	TopN     int
}

// Report builds the comprehensive report from a single source fetch.
func (a *Analytics) Report(ctx context.Context, params ReportParams) (core.Report, error) {
	var filter core.Filter
	if params.FromText != "" {
		from, ok := core.ParseDate(params.FromText)
		if !ok {
			return core.Report{}, fmt.Errorf("%w: %q", ErrBadDate, params.FromText)
		}
		filter.From = &from
	}
	if params.ToText != "" {
		to, ok := core.ParseDate(params.ToText)
		if !ok {
			return core.Report{}, fmt.Errorf("%w: %q", ErrBadDate, params.ToText)
		}
		filter.To = &to
	}

	records, err := a.src.Search(ctx, source.Query{
		Card:  params.Card,
		Limit: a.maxLimit,
	})
	if err != nil {
		return core.Report{}, err
	}

	kept, skipped := filter.Apply(records)

	topN := params.TopN
	if topN <= 0 {
		topN = a.topN
	}

	report := core.BuildReport(kept, core.ReportOptions{
		TopN:          topN,
		RequestedMCCs: core.NormalizeMCCs(params.MCCs),
	})
	report.SkippedUnparseable += skipped

	a.logger.DebugContext(ctx, "Built report",
		log.FieldOperation, log.OpReport,
		log.FieldCard, core.MaskCard(params.Card),
		log.FieldRecords, len(kept),
		log.FieldSkipped, report.SkippedUnparseable)

	return report, nil
}

// BucketsResult carries per-window aggregates for a date range.
type BucketsResult struct {
	Buckets []core.BucketSummary
	Skipped int
}

// GroupedByBuckets splits [from, to] into consecutive windows of
// bucketDays days and aggregates each window separately.
func (a *Analytics) GroupedByBuckets(ctx context.Context, card, fromText, toText string, bucketDays int) (BucketsResult, error) {
	if bucketDays <= 0 {
		return BucketsResult{}, fmt.Errorf("%w: bucket days must be positive", ErrBadRequest)
	}
	from, ok := core.ParseDate(fromText)
	if !ok {
		return BucketsResult{}, fmt.Errorf("%w: %q", ErrBadDate, fromText)
	}
	to, ok := core.ParseDate(toText)
	if !ok {
		return BucketsResult{}, fmt.Errorf("%w: %q", ErrBadDate, toText)
	}

	records, err := a.src.Search(ctx, source.Query{
		Card:  card,
		Limit: a.maxLimit,
	})
	if err != nil {
		return BucketsResult{}, err
	}

	buckets, skipped := core.AggregateBuckets(records, from, to, bucketDays)

	a.logger.DebugContext(ctx, "Built date buckets",
		log.FieldOperation, log.OpBuckets,
		log.FieldRecords, len(buckets),
		log.FieldSkipped, skipped)

	return BucketsResult{Buckets: buckets, Skipped: skipped}, nil
}
