package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"cardstats/internal/core"
	"cardstats/internal/source"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store, card, date, ref, particulars string, amount float64, mccCode int) {
	t.Helper()
	amt := decimal.NewFromFloat(amount)
	err := s.Insert(context.Background(), core.TransactionRecord{
		CardNumber:   card,
		TxnDate:      date,
		RefNo:        ref,
		Particulars:  particulars,
		SourceAmount: &amt,
		MCC:          &mccCode,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestSearchFilters(t *testing.T) {
	s := openTestStore(t)
	seed(t, s, "4111222233334444", "01/06/2025", "R1", "AMAZON RETAIL", 100, 5411)
	seed(t, s, "4111222233334444", "15/06/2025", "R2", "UBER TRIP", 50, 4121)
	seed(t, s, "5500666677778888", "01/07/2025", "R3", "STARBUCKS", 200, 5812)

	tests := []struct {
		name  string
		query source.Query
		want  int
	}{
		{"card substring", source.Query{Card: "4444"}, 2},
		{"merchant substring", source.Query{Merchant: "uber"}, 1},
		{"mcc equality", source.Query{MCC: intPtr(5812)}, 1},
		{"exact date", source.Query{DateText: "15/06/2025"}, 1},
		{"month pattern", source.Query{MonthPattern: source.MonthPattern(6, 2025)}, 2},
		{"amount floor", source.Query{MinAmount: decPtr("100")}, 2},
		{"amount range", source.Query{MinAmount: decPtr("60"), MaxAmount: decPtr("150")}, 1},
		{"generic or", source.Query{AnyOf: "star"}, 1},
		{"no match", source.Query{Card: "0000"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := s.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != tt.want {
				t.Fatalf("got %d records, want %d", len(records), tt.want)
			}
		})
	}
}

func TestSearchDateOrderIsChronological(t *testing.T) {
	s := openTestStore(t)
	// Lexicographic text order would put 02/01/2026 before 30/12/2025.
	seed(t, s, "C", "30/12/2025", "R1", "A", 1, 1)
	seed(t, s, "C", "02/01/2026", "R2", "B", 2, 1)

	records, err := s.Search(context.Background(), source.Query{OrderBy: source.OrderByDate, Desc: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].TxnDate != "02/01/2026" {
		t.Fatalf("expected newest first, got %s", records[0].TxnDate)
	}
}

func TestSearchLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		seed(t, s, "C", "01/06/2025", "R", "A", float64(i), 1)
	}
	records, err := s.Search(context.Background(), source.Query{Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
}

func TestSearchNullColumns(t *testing.T) {
	s := openTestStore(t)
	err := s.Insert(context.Background(), core.TransactionRecord{
		CardNumber: "C",
		TxnDate:    "01/06/2025",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	records, err := s.Search(context.Background(), source.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].SourceAmount != nil || records[0].MCC != nil {
		t.Fatalf("expected absent amount and mcc, got %+v", records[0])
	}
}

func TestCategories(t *testing.T) {
	s := openTestStore(t)
	seed(t, s, "C", "01/06/2025", "R1", "A", 1, 5812)
	seed(t, s, "C", "02/06/2025", "R2", "B", 2, 5411)
	seed(t, s, "C", "03/06/2025", "R3", "C", 3, 5812)

	codes, err := s.Categories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 2 || codes[0] != 5411 || codes[1] != 5812 {
		t.Fatalf("codes = %v, want [5411 5812]", codes)
	}
}

func intPtr(v int) *int { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
