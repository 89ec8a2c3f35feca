// Package sqlitestore provides a transaction source backed by a local
// SQLite database, useful for self-contained deployments and seeding
// fixture data without a PostgREST upstream.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"cardstats/internal/core"
	"cardstats/internal/source"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Search(ctx context.Context, q source.Query) ([]core.TransactionRecord, error) {
	query, args := buildSearchQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", source.ErrUnavailable, err)
	}
	defer rows.Close()

	var records []core.TransactionRecord
	for rows.Next() {
		var (
			r        core.TransactionRecord
			amount   sql.NullFloat64
			category sql.NullInt64
		)
		if err := rows.Scan(&r.CardNumber, &r.TxnDate, &r.RefNo, &r.Particulars,
			&r.RewardPoints, &r.SourceCurrency, &amount, &category); err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", source.ErrUnavailable, err)
		}
		if amount.Valid {
			d := decimal.NewFromFloat(amount.Float64)
			r.SourceAmount = &d
		}
		if category.Valid {
			code := int(category.Int64)
			r.MCC = &code
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %v", source.ErrUnavailable, err)
	}

	return records, nil
}

func (s *Store) Categories(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT mcc FROM transactions WHERE mcc IS NOT NULL AND mcc != 0 ORDER BY mcc`)
	if err != nil {
		return nil, fmt.Errorf("%w: query categories: %v", source.ErrUnavailable, err)
	}
	defer rows.Close()

	var codes []int
	for rows.Next() {
		var code int
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("%w: scan category: %v", source.ErrUnavailable, err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate categories: %v", source.ErrUnavailable, err)
	}

	return codes, nil
}

// Insert stores a single record. It is used by the seeding binary and by
// tests; the serving path is read-only.
func (s *Store) Insert(ctx context.Context, r core.TransactionRecord) error {
	var amount any
	if r.SourceAmount != nil {
		f, _ := r.SourceAmount.Float64()
		amount = f
	}
	var category any
	if r.MCC != nil {
		category = *r.MCC
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions
		   (card_no, txn_date, ref_no, particulars, reward_points, source_currency, source_amt, mcc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CardNumber, r.TxnDate, r.RefNo, r.Particulars,
		r.RewardPoints, r.SourceCurrency, amount, category)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func buildSearchQuery(q source.Query) (string, []any) {
	var (
		where []string
		args  []any
	)

	if q.Card != "" {
		where = append(where, "card_no LIKE ?")
		args = append(args, "%"+q.Card+"%")
	}
	if q.Merchant != "" {
		where = append(where, "particulars LIKE ?")
		args = append(args, "%"+q.Merchant+"%")
	}
	if q.RefNo != "" {
		where = append(where, "ref_no LIKE ?")
		args = append(args, "%"+q.RefNo+"%")
	}
	if q.MCC != nil {
		where = append(where, "mcc = ?")
		args = append(args, *q.MCC)
	}
	if q.DateText != "" {
		where = append(where, "txn_date = ?")
		args = append(args, q.DateText)
	}
	if q.MonthPattern != "" {
		where = append(where, "txn_date LIKE ?")
		args = append(args, strings.ReplaceAll(q.MonthPattern, "*", "%"))
	}
	if q.MinAmount != nil {
		where = append(where, "source_amt >= ?")
		f, _ := q.MinAmount.Float64()
		args = append(args, f)
	}
	if q.MaxAmount != nil {
		where = append(where, "source_amt <= ?")
		f, _ := q.MaxAmount.Float64()
		args = append(args, f)
	}
	if q.AnyOf != "" {
		where = append(where, "(card_no LIKE ? OR particulars LIKE ? OR ref_no LIKE ?)")
		pattern := "%" + q.AnyOf + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var b strings.Builder
	b.WriteString(`SELECT card_no, txn_date, ref_no, particulars, reward_points, source_currency, source_amt, mcc FROM transactions`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	switch q.OrderBy {
	case source.OrderByDate:
		// Dates are stored as DD/MM/YYYY text, so order by the
		// year, month and day substrings to get chronological order.
		b.WriteString(" ORDER BY substr(txn_date, 7, 4)")
		if q.Desc {
			b.WriteString(" DESC")
		}
		b.WriteString(", substr(txn_date, 4, 2)")
		if q.Desc {
			b.WriteString(" DESC")
		}
		b.WriteString(", substr(txn_date, 1, 2)")
		if q.Desc {
			b.WriteString(" DESC")
		}
	case source.OrderByAmount:
		b.WriteString(" ORDER BY source_amt IS NULL, source_amt")
		if q.Desc {
			b.WriteString(" DESC")
		}
	}

	if q.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", q.Limit))
	}

	return b.String(), args
}
