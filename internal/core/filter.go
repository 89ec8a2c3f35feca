package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Filter is a conjunction of field predicates over a transaction record.
// Zero-valued fields are inactive; a record matches when every active
// predicate holds. The same filter narrows what is requested from the
// record source and post-filters what it returns, since the source cannot
// evaluate date ranges on its text-encoded date field.
type Filter struct {
	Card     string // case-insensitive substring of the card identifier
	Merchant string // case-insensitive substring of particulars
	RefNo    string // case-insensitive substring of the reference number

	MCC    *int  // exact merchant category code
	MCCSet []int // membership; active when non-empty

	MinAmount *decimal.Decimal // inclusive lower bound; absent amount never matches
	MaxAmount *decimal.Decimal // inclusive upper bound; absent amount never matches

	From *time.Time // inclusive date range, evaluated via the date codec
	To   *time.Time
}

// Matches reports whether the record satisfies every active predicate.
// A record whose date fails to parse never matches an active date bound.
func (f Filter) Matches(r TransactionRecord) bool {
	ok, _ := f.match(r)
	return ok
}

// match additionally reports whether the record was rejected solely because
// its date text could not be parsed while a date bound was active.
func (f Filter) match(r TransactionRecord) (matched, unparseable bool) {
	if f.Card != "" && !containsFold(r.CardNumber, f.Card) {
		return false, false
	}
	if f.Merchant != "" && !containsFold(r.Particulars, f.Merchant) {
		return false, false
	}
	if f.RefNo != "" && !containsFold(r.RefNo, f.RefNo) {
		return false, false
	}
	if f.MCC != nil && (r.MCC == nil || *r.MCC != *f.MCC) {
		return false, false
	}
	if len(f.MCCSet) > 0 {
		if r.MCC == nil {
			return false, false
		}
		member := false
		for _, code := range f.MCCSet {
			if *r.MCC == code {
				member = true
				break
			}
		}
		if !member {
			return false, false
		}
	}
	if f.MinAmount != nil || f.MaxAmount != nil {
		if !r.HasAmount() {
			return false, false
		}
		if f.MinAmount != nil && r.Amount().Cmp(*f.MinAmount) < 0 {
			return false, false
		}
		if f.MaxAmount != nil && r.Amount().Cmp(*f.MaxAmount) > 0 {
			return false, false
		}
	}
	if f.From != nil || f.To != nil {
		d, ok := ParseDate(r.TxnDate)
		if !ok {
			return false, true
		}
		if f.From != nil && d.Before(*f.From) {
			return false, false
		}
		if f.To != nil && d.After(*f.To) {
			return false, false
		}
	}
	return true, false
}

// Apply filters a record set, returning the matching records in input order
// plus the number of records dropped only because their date text was
// unparseable while a date bound was active.
func (f Filter) Apply(records []TransactionRecord) (kept []TransactionRecord, skipped int) {
	for _, r := range records {
		ok, unparseable := f.match(r)
		switch {
		case ok:
			kept = append(kept, r)
		case unparseable:
			skipped++
		}
	}
	return kept, skipped
}

// MatchesAny is the generic search predicate: true when q is a
// case-insensitive substring of the card identifier, particulars, or
// reference number. This is the only OR composition the engine supports.
func MatchesAny(r TransactionRecord, q string) bool {
	if q == "" {
		return false
	}
	return containsFold(r.CardNumber, q) ||
		containsFold(r.Particulars, q) ||
		containsFold(r.RefNo, q)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
