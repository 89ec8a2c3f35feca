package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Metric selects the value groups are ranked and distributed by.
type Metric int

const (
	MetricAmount Metric = iota // total source amount
	MetricCount                // record count
)

func (g GroupSummary) metricValue(m Metric) decimal.Decimal {
	switch m {
	case MetricCount:
		return decimal.NewFromInt(int64(g.Count))
	default:
		return g.Sum
	}
}

// Rank returns groups stable-sorted descending by metric and truncated to
// topN. Ties keep their input (first-seen) order. topN <= 0 disables
// truncation; truncation always happens after sorting, never before.
func Rank(groups []GroupSummary, m Metric, topN int) []GroupSummary {
	ranked := make([]GroupSummary, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].metricValue(m).Cmp(ranked[j].metricValue(m)) > 0
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// RankedGroup is a group summary annotated with its percentage share of a
// total.
type RankedGroup struct {
	GroupSummary
	Share decimal.Decimal
}

// Distribute annotates each group with 100 * metric / total. When total is
// zero every share is zero; there is never a division fault.
func Distribute(groups []GroupSummary, m Metric, total decimal.Decimal) []RankedGroup {
	out := make([]RankedGroup, 0, len(groups))
	hundred := decimal.NewFromInt(100)
	for _, g := range groups {
		rg := RankedGroup{GroupSummary: g}
		if !total.IsZero() {
			rg.Share = g.metricValue(m).Mul(hundred).Div(total)
		}
		out = append(out, rg)
	}
	return out
}

// maskedPrefix is fixed regardless of the identifier's true length; only
// the literal last four characters are ever disclosed.
const maskedPrefix = "****-****-****-"

// MaskCard masks a card identifier for output. Identifiers shorter than
// four characters are returned unmasked; that is documented degradation,
// not an error.
func MaskCard(id string) string {
	if len(id) < 4 {
		return id
	}
	return maskedPrefix + id[len(id)-4:]
}

// SortByDateDesc orders records newest first by parsed transaction date.
// Records with unparseable dates sort last, keeping their relative order.
func SortByDateDesc(records []TransactionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		di, oki := ParseDate(records[i].TxnDate)
		dj, okj := ParseDate(records[j].TxnDate)
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}
		return di.After(dj)
	})
}

// Round2 rounds a value to two decimal places. Exposed for the formatting
// boundary only; intermediate accumulation stays unrounded.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NormalizeMCCs sorts a category-code set ascending and removes duplicates.
func NormalizeMCCs(codes []int) []int {
	seen := make(map[int]struct{}, len(codes))
	out := make([]int, 0, len(codes))
	for _, c := range codes {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}
