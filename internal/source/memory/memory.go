// Package memory provides a slice-backed record source used in tests and as
// the default backend for local runs.
package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"cardstats/internal/core"
	"cardstats/internal/source"
)

type Store struct {
	mu      sync.Mutex
	records []core.TransactionRecord
}

func New(records ...core.TransactionRecord) *Store {
	return &Store{records: records}
}

// seedRecord is the JSON shape of a seed file entry, matching the upstream
// column names.
type seedRecord struct {
	CardNo         string   `json:"card_no"`
	TxnDate        string   `json:"txn_date"`
	RefNo          string   `json:"ref_no"`
	Particulars    string   `json:"particulars"`
	RewardPoints   int64    `json:"reward_points"`
	SourceCurrency string   `json:"source_currency"`
	SourceAmt      *float64 `json:"source_amt"`
	MCC            *int     `json:"MCC"`
}

// NewFromFiles loads seed records from base/seed_transactions.json. A
// missing or unreadable file yields a small built-in sample set so the
// service always has something to serve locally.
func NewFromFiles(base string) *Store {
	records := readSeed(filepath.Join(base, "seed_transactions.json"))
	if len(records) == 0 {
		records = builtinSeed()
	}
	return New(records...)
}

func readSeed(path string) []core.TransactionRecord {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var rows []seedRecord
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	records := make([]core.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		r := core.TransactionRecord{
			CardNumber:     row.CardNo,
			TxnDate:        row.TxnDate,
			RefNo:          row.RefNo,
			Particulars:    row.Particulars,
			RewardPoints:   row.RewardPoints,
			SourceCurrency: row.SourceCurrency,
			MCC:            row.MCC,
		}
		if row.SourceAmt != nil {
			amt := decimal.NewFromFloat(*row.SourceAmt)
			r.SourceAmount = &amt
		}
		records = append(records, r)
	}
	return records
}

func builtinSeed() []core.TransactionRecord {
	mk := func(card, date, ref, particulars string, points int64, amount float64, mcc int) core.TransactionRecord {
		amt := decimal.NewFromFloat(amount)
		return core.TransactionRecord{
			CardNumber:     card,
			TxnDate:        date,
			RefNo:          ref,
			Particulars:    particulars,
			RewardPoints:   points,
			SourceCurrency: "INR",
			SourceAmount:   &amt,
			MCC:            &mcc,
		}
	}
	return []core.TransactionRecord{
		mk("4111222233334444", "01/06/2025", "REF001", "AMAZON RETAIL", 12, 1250.00, 5399),
		mk("4111222233334444", "15/06/2025", "REF002", "UBER TRIP", 4, 430.50, 4121),
		mk("5500666677778888", "01/07/2025", "REF003", "STARBUCKS COFFEE", 2, 260.00, 5812),
		mk("5500666677778888", "09/07/2025", "REF004", "BIG BAZAAR", 18, 1899.90, 5411),
	}
}

// Add appends records to the store. Used by tests.
func (s *Store) Add(records ...core.TransactionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Search implements source.RecordSource by evaluating every predicate
// in-process, the same way the upstream would.
func (s *Store) Search(_ context.Context, q source.Query) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	snapshot := make([]core.TransactionRecord, len(s.records))
	copy(snapshot, s.records)
	s.mu.Unlock()

	f := core.Filter{
		Card:      q.Card,
		Merchant:  q.Merchant,
		RefNo:     q.RefNo,
		MCC:       q.MCC,
		MinAmount: q.MinAmount,
		MaxAmount: q.MaxAmount,
	}

	var out []core.TransactionRecord
	for _, r := range snapshot {
		if !f.Matches(r) {
			continue
		}
		if q.DateText != "" && r.TxnDate != q.DateText {
			continue
		}
		if q.MonthPattern != "" && !matchMonthPattern(r.TxnDate, q.MonthPattern) {
			continue
		}
		if q.AnyOf != "" && !core.MatchesAny(r, q.AnyOf) {
			continue
		}
		out = append(out, r)
	}

	orderRecords(out, q)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Categories implements source.RecordSource.
func (s *Store) Categories(_ context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]struct{})
	var codes []int
	for _, r := range s.records {
		if r.MCC == nil || *r.MCC == 0 {
			continue
		}
		if _, dup := seen[*r.MCC]; dup {
			continue
		}
		seen[*r.MCC] = struct{}{}
		codes = append(codes, *r.MCC)
	}
	sort.Ints(codes)
	return codes, nil
}

// matchMonthPattern evaluates the "*/MM/YYYY" glob the upstream applies to
// its text date column: anything for the day, literal month and year.
func matchMonthPattern(dateText, pattern string) bool {
	if len(pattern) < 2 || pattern[0] != '*' {
		return false
	}
	suffix := pattern[1:] // "/MM/YYYY"
	if len(dateText) < len(suffix) {
		return false
	}
	return dateText[len(dateText)-len(suffix):] == suffix
}

func orderRecords(records []core.TransactionRecord, q source.Query) {
	switch q.OrderBy {
	case source.OrderByDate:
		sort.SliceStable(records, func(i, j int) bool {
			di, oki := core.ParseDate(records[i].TxnDate)
			dj, okj := core.ParseDate(records[j].TxnDate)
			if oki != okj {
				return oki // parseable dates sort ahead of junk either way
			}
			if !oki {
				return false
			}
			if q.Desc {
				return di.After(dj)
			}
			return di.Before(dj)
		})
	case source.OrderByAmount:
		sort.SliceStable(records, func(i, j int) bool {
			cmp := records[i].Amount().Cmp(records[j].Amount())
			if q.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
}
