// Command cardstats-seed loads transaction records from a JSON file into
// the local SQLite database used by the sqlite backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"cardstats/internal/config"
	"cardstats/internal/core"
	applog "cardstats/internal/log"
	"cardstats/internal/source/sqlitestore"
)

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

func (r seedRecord) toCore() core.TransactionRecord {
	record := core.TransactionRecord{
		CardNumber:     r.CardNo,
		TxnDate:        r.TxnDate,
		RefNo:          r.RefNo,
		Particulars:    r.Particulars,
		RewardPoints:   r.RewardPoints,
		SourceCurrency: r.SourceCurrency,
		MCC:            r.MCC,
	}
	if r.SourceAmt != nil {
		amt := decimal.NewFromFloat(*r.SourceAmt)
		record.SourceAmount = &amt
	}
	return record
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentSeed,
	})
	applog.SetDefault(logger)

	dbPath := flag.String("db", cfg.SQLiteDBPath, "path to the SQLite database")
	filePath := flag.String("file", "data/seed_transactions.json", "path to the JSON records file")
	flag.Parse()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("Failed to read seed file", "error", err, "file", *filePath)
		os.Exit(1)
	}

	var records []seedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Error("Failed to parse seed file", "error", err, "file", *filePath)
		os.Exit(1)
	}

	store, err := sqlitestore.Open(*dbPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "db", *dbPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	inserted := 0
	for _, r := range records {
		if err := store.Insert(ctx, r.toCore()); err != nil {
			logger.Error("Failed to insert record", "error", err, "ref_no", r.RefNo)
			os.Exit(1)
		}
		inserted++
	}

	logger.Info("Seed completed", "records", inserted, "db", *dbPath)
}
