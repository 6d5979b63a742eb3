package repository

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func seedSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "dash.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE all_predictions (ticker TEXT, date TEXT, predictions REAL)`,
		`INSERT INTO all_predictions VALUES ('AAPL','2024-05-01',0.031),('TSLA',NULL,NULL)`,
		`CREATE TABLE stock_price_predictions (ticker TEXT, ds TEXT, y REAL, yhat REAL, yhat_lower REAL, yhat_upper REAL)`,
		`INSERT INTO stock_price_predictions VALUES ('AAPL','2024-05-01 00:00:00',180,181,179,183),('AAPL','2024-05-02',NULL,182,180,184)`,
		`CREATE TABLE technical_indicators (ticker TEXT, date TEXT, sma REAL, rsi REAL)`,
		`INSERT INTO technical_indicators VALUES ('AAPL','2023-03-01',150,45)`,
		`CREATE TABLE earnings (ticker TEXT, date TEXT, "Revenue" REAL, "EPS_Actual" REAL, "EPS_Estimate" REAL)`,
		`INSERT INTO earnings VALUES ('AAPL','2024Q1',1000,1.0,1.2)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return db
}

var testTables = TableFiles{
	Predictions: "all_predictions",
	PriceSeries: "stock_price_predictions",
	Technicals:  "technical_indicators",
	Earnings:    "earnings",
}

func TestSQLSource(t *testing.T) {
	src, err := NewSQLSource("sqlite:test", seedSQLite(t), testTables, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	preds, err := src.Predictions(ctx)
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	if len(preds) != 2 || preds[0].ReturnPercent != 0.031 || !math.IsNaN(preds[1].ReturnPercent) || !preds[1].Date.IsZero() {
		t.Fatalf("unexpected predictions: %+v", preds)
	}

	price, err := src.PriceSeries(ctx)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if len(price) != 2 || !math.IsNaN(price[1].Close) || price[0].Date.Day() != 1 {
		t.Fatalf("unexpected price: %+v", price)
	}

	tech, err := src.Technicals(ctx)
	if err != nil || len(tech) != 1 || tech[0].RSI != 45 {
		t.Fatalf("unexpected technicals: %+v err=%v", tech, err)
	}
	earn, err := src.Earnings(ctx)
	if err != nil || len(earn) != 1 || earn[0].Date != "2024Q1" || earn[0].EPSEstimate != 1.2 {
		t.Fatalf("unexpected earnings: %+v err=%v", earn, err)
	}

	s, err := Load(ctx, src, StoreOptions{}, nil, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p, _ := s.Prediction("AAPL"); p.ReturnPercent != 3.1 {
		t.Fatalf("expected 3.1, got %v", p.ReturnPercent)
	}
}

func TestSQLSourceRejectsTableName(t *testing.T) {
	bad := testTables
	bad.Earnings = "earnings; DROP TABLE x"
	if _, err := NewSQLSource("x", nil, bad, nil); err == nil {
		t.Fatal("expected invalid table error")
	}
	ok := testTables
	ok.Earnings = "analytics.earnings"
	if _, err := NewSQLSource("x", nil, ok, nil); err != nil {
		t.Fatalf("schema-qualified name rejected: %v", err)
	}
}

func TestSQLSourceMissingTable(t *testing.T) {
	db := seedSQLite(t)
	tables := testTables
	tables.Technicals = "nope"
	src, err := NewSQLSource("sqlite:test", db, tables, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := src.Technicals(context.Background()); err == nil {
		t.Fatal("expected query error")
	}
}

func TestToTime(t *testing.T) {
	if _, err := toTime([]byte("2024-01-02")); err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if _, err := toTime(int64(5)); err == nil {
		t.Fatal("expected error for int")
	}
	if got := toLabel(nil); got != "" {
		t.Fatalf("expected empty label, got %q", got)
	}
}

func TestSQLSourcePredictionsWithoutDate(t *testing.T) {
	db := seedSQLite(t)
	stmts := []string{
		`CREATE TABLE preds (ticker TEXT, predictions REAL)`,
		`INSERT INTO preds VALUES ('AAPL',0.015),('MSFT',NULL)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	tables := testTables
	tables.Predictions = "preds"
	src, err := NewSQLSource("sqlite:test", db, tables, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	preds, err := src.Predictions(context.Background())
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	if len(preds) != 2 || preds[0].ReturnPercent != 0.015 || !preds[0].Date.IsZero() || !math.IsNaN(preds[1].ReturnPercent) {
		t.Fatalf("unexpected predictions: %+v", preds)
	}
}

func TestSQLSourcePredictionsMissingColumn(t *testing.T) {
	db := seedSQLite(t)
	if _, err := db.Exec(`CREATE TABLE preds (ticker TEXT, date TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	tables := testTables
	tables.Predictions = "preds"
	src, err := NewSQLSource("sqlite:test", db, tables, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := src.Predictions(context.Background()); err == nil {
		t.Fatal("expected error for missing predictions column")
	}
}
