package core

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// KeyFunc derives the grouping key for a record. ok=false excludes the
// record from the grouping (no derivable key: unparseable date on a
// date-keyed path, absent category code on the MCC path).
type KeyFunc func(TransactionRecord) (key string, ok bool)

// KeyByMCC groups by merchant category code.
func KeyByMCC(r TransactionRecord) (string, bool) {
	if r.MCC == nil {
		return "", false
	}
	return strconv.Itoa(*r.MCC), true
}

// KeyByCard groups by the opaque card identifier. Masking happens at the
// formatting boundary, not here.
func KeyByCard(r TransactionRecord) (string, bool) {
	return r.CardNumber, true
}

// KeyByMonth groups by the YYYY-MM token of the transaction date.
func KeyByMonth(r TransactionRecord) (string, bool) {
	d, ok := ParseDate(r.TxnDate)
	if !ok {
		return "", false
	}
	return MonthKey(d), true
}

// KeyOverall puts every record in a single group.
func KeyOverall(TransactionRecord) (string, bool) {
	return "", true
}

// GroupSummary is the finalized, read-only statistics of one group.
// Sum/Avg/Min/Max cover only records that carry an amount; Min and Max are
// nil when no record in the group does, so an absent amount can never
// pollute a minimum with a spurious zero. Values are unrounded; rounding to
// two decimals belongs to the formatting boundary.
type GroupSummary struct {
	Key         string
	Count       int
	AmountCount int
	Sum         decimal.Decimal
	Min         *decimal.Decimal
	Max         *decimal.Decimal
	RewardSum   int64

	DistinctCards     int
	DistinctMerchants int
	DistinctMCCs      int
}

// Avg is the amount average over records carrying an amount. Zero when none
// does; never a division fault.
func (g GroupSummary) Avg() decimal.Decimal {
	if g.AmountCount == 0 {
		return decimal.Decimal{}
	}
	return g.Sum.Div(decimal.NewFromInt(int64(g.AmountCount)))
}

// RewardAvg is the reward-point average over every record in the group,
// including zero-reward ones.
func (g GroupSummary) RewardAvg() decimal.Decimal {
	if g.Count == 0 {
		return decimal.Decimal{}
	}
	return decimal.NewFromInt(g.RewardSum).Div(decimal.NewFromInt(int64(g.Count)))
}

// Aggregation is the result of partitioning a record set by a key function.
// Groups appear in the order their key was first seen. Skipped counts
// records the key function could not place. A nil/empty Groups with
// Skipped==0 means nothing matched at all, distinguishable from
// matched-but-zero-valued groups.
type Aggregation struct {
	Groups  []GroupSummary
	Skipped int
}

// NoData reports whether the aggregation saw no groupable records.
func (a Aggregation) NoData() bool {
	return len(a.Groups) == 0
}

type groupAccumulator struct {
	key         string
	count       int
	amountCount int
	sum         decimal.Decimal
	min         decimal.Decimal
	max         decimal.Decimal
	rewardSum   int64
	cards       map[string]struct{}
	merchants   map[string]struct{}
	mccs        map[int]struct{}
}

func newGroupAccumulator(key string) *groupAccumulator {
	return &groupAccumulator{
		key:       key,
		cards:     make(map[string]struct{}),
		merchants: make(map[string]struct{}),
		mccs:      make(map[int]struct{}),
	}
}

func (g *groupAccumulator) add(r TransactionRecord) {
	g.count++
	g.rewardSum += r.RewardPoints
	g.cards[r.CardNumber] = struct{}{}
	if r.Particulars != "" {
		g.merchants[r.Particulars] = struct{}{}
	}
	if r.MCC != nil {
		g.mccs[*r.MCC] = struct{}{}
	}
	if !r.HasAmount() {
		return
	}
	amt := r.Amount()
	g.sum = g.sum.Add(amt)
	if g.amountCount == 0 || amt.Cmp(g.min) < 0 {
		g.min = amt
	}
	if g.amountCount == 0 || amt.Cmp(g.max) > 0 {
		g.max = amt
	}
	g.amountCount++
}

func (g *groupAccumulator) finalize() GroupSummary {
	s := GroupSummary{
		Key:               g.key,
		Count:             g.count,
		AmountCount:       g.amountCount,
		Sum:               g.sum,
		RewardSum:         g.rewardSum,
		DistinctCards:     len(g.cards),
		DistinctMerchants: len(g.merchants),
		DistinctMCCs:      len(g.mccs),
	}
	if g.amountCount > 0 {
		mn, mx := g.min, g.max
		s.Min, s.Max = &mn, &mx
	}
	return s
}

// Aggregate partitions records by key and computes per-group statistics in a
// single pass. Accumulators are local to the call and finalized into
// read-only summaries before returning.
func Aggregate(records []TransactionRecord, key KeyFunc) Aggregation {
	var (
		order  []string
		groups = make(map[string]*groupAccumulator)
		agg    Aggregation
	)
	for _, r := range records {
		k, ok := key(r)
		if !ok {
			agg.Skipped++
			continue
		}
		acc, seen := groups[k]
		if !seen {
			acc = newGroupAccumulator(k)
			groups[k] = acc
			order = append(order, k)
		}
		acc.add(r)
	}
	for _, k := range order {
		agg.Groups = append(agg.Groups, groups[k].finalize())
	}
	return agg
}

// Overall computes the identity-grouping summary of a record set.
func Overall(records []TransactionRecord) GroupSummary {
	agg := Aggregate(records, KeyOverall)
	if len(agg.Groups) == 0 {
		return GroupSummary{}
	}
	return agg.Groups[0]
}

// BucketSummary pairs a day window with its group statistics.
type BucketSummary struct {
	Bucket  DateBucket
	Summary GroupSummary
}

// AggregateBuckets groups records into fixed-length day windows of
// [from, to]. Every window appears in the result, empty ones included, so
// periodic views have no gaps. Records dated outside the interval are
// ignored; records with unparseable dates are counted in skipped.
func AggregateBuckets(records []TransactionRecord, from, to time.Time, days int) (buckets []BucketSummary, skipped int) {
	windows := DayBuckets(from, to, days)
	if windows == nil {
		return nil, 0
	}
	accs := make([]*groupAccumulator, len(windows))
	for i, w := range windows {
		accs[i] = newGroupAccumulator(w.Label())
	}
	for _, r := range records {
		d, ok := ParseDate(r.TxnDate)
		if !ok {
			skipped++
			continue
		}
		idx := BucketIndex(from, d, days)
		if idx < 0 || idx >= len(accs) {
			continue
		}
		accs[idx].add(r)
	}
	for i, acc := range accs {
		buckets = append(buckets, BucketSummary{Bucket: windows[i], Summary: acc.finalize()})
	}
	return buckets, skipped
}
