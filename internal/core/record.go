package core

import "github.com/shopspring/decimal"

// TransactionRecord is a single ledger row as returned by the record source.
// Records are read-only: the engine never mutates them. Fields the upstream
// may omit are pointers so that "absent" stays distinguishable from zero.
type TransactionRecord struct {
	CardNumber     string
	TxnDate        string // DD/MM/YYYY text as stored upstream; not guaranteed parseable
	RefNo          string
	Particulars    string
	RewardPoints   int64
	SourceCurrency string
	SourceAmount   *decimal.Decimal
	MCC            *int
}

// HasAmount reports whether the record carries a source amount. Records
// without one contribute to counts but never to sum/avg/min/max.
func (r TransactionRecord) HasAmount() bool {
	return r.SourceAmount != nil
}

// Amount returns the source amount, or zero when absent. Callers that feed
// min/max must check HasAmount first.
func (r TransactionRecord) Amount() decimal.Decimal {
	if r.SourceAmount == nil {
		return decimal.Decimal{}
	}
	return *r.SourceAmount
}

// HasMCC reports whether the record carries a merchant category code.
func (r TransactionRecord) HasMCC() bool {
	return r.MCC != nil
}
