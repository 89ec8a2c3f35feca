// Package source defines the record-source port: the one external
// collaborator the analytics engine consumes. A source accepts a conjunction
// of field-level predicates it can evaluate natively and returns matching
// transaction records. Date-range predicates are deliberately absent from
// Query: the upstream stores dates as text and cannot compare them reliably,
// so callers fetch a superset and filter locally via core.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"cardstats/internal/core"
)

// ErrUnavailable marks transport-level failures reaching the record source.
// An empty result set is never wrapped in it; backends return nil, nil for
// "no matches".
var ErrUnavailable = errors.New("record source unavailable")

// Columns a source can order by.
const (
	OrderByDate   = "txn_date"
	OrderByAmount = "source_amt"
)

// Query is a conjunction of predicates the source evaluates natively.
// Zero-valued fields are inactive.
type Query struct {
	Card     string // case-insensitive substring on the card identifier
	Merchant string // case-insensitive substring on particulars
	RefNo    string // case-insensitive substring on the reference number

	MCC      *int   // exact merchant category code
	DateText string // exact DD/MM/YYYY text match on the date column
	// MonthPattern is a "*/MM/YYYY" glob on the text date column, the only
	// date narrowing the upstream can do.
	MonthPattern string

	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal

	// AnyOf matches when the term is a substring of the card identifier,
	// particulars, or reference number (the generic-search OR).
	AnyOf string

	OrderBy string
	Desc    bool
	Limit   int
}

// MonthPattern builds the text glob for all dates within a month.
func MonthPattern(month, year int) string {
	return fmt.Sprintf("*/%02d/%d", month, year)
}

// RecordSource is the query interface every backend implements.
type RecordSource interface {
	// Search returns records matching q. nil, nil means no matches;
	// errors wrapping ErrUnavailable mean the source could not be reached.
	Search(ctx context.Context, q Query) ([]core.TransactionRecord, error)

	// Categories returns the distinct merchant category codes present,
	// ascending.
	Categories(ctx context.Context) ([]int, error)
}
