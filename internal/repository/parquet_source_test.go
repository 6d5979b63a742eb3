package repository

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func writeParquet[T any](t *testing.T, path string, rows []T) {
	t.Helper()
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestParquetSource(t *testing.T) {
	dir := t.TempDir()
	writeParquet(t, filepath.Join(dir, "all_predictions.parquet"), []predictionRecord{
		{Ticker: "AAPL", Date: str("2024-05-01"), Predictions: f64(0.02)},
		{Ticker: "MSFT", Predictions: nil},
	})
	writeParquet(t, filepath.Join(dir, "stock_price_predictions.parquet"), []priceSeriesRecord{
		{Ticker: "AAPL", DS: "2024-05-01", Y: f64(180), YHat: f64(181), YHatLower: f64(179), YHatUpper: f64(183)},
	})
	writeParquet(t, filepath.Join(dir, "technical_indicators.parquet"), []technicalRecord{
		{Ticker: "AAPL", Date: "2023-02-01", SMA: f64(150), RSI: nil},
	})
	writeParquet(t, filepath.Join(dir, "earnings.parquet"), []earningsRecord{
		{Ticker: "AAPL", Date: "2024Q1", Revenue: f64(1000), EPSActual: f64(1.1), EPSEstimate: f64(1.2)},
	})

	src := NewParquetSource(dir, testFiles)
	ctx := context.Background()

	preds, err := src.Predictions(ctx)
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	if len(preds) != 2 || preds[0].ReturnPercent != 0.02 || !math.IsNaN(preds[1].ReturnPercent) {
		t.Fatalf("unexpected predictions: %+v", preds)
	}
	if preds[0].Date.Day() != 1 || !preds[1].Date.IsZero() {
		t.Fatalf("unexpected dates: %+v", preds)
	}

	price, err := src.PriceSeries(ctx)
	if err != nil || len(price) != 1 || price[0].Upper != 183 {
		t.Fatalf("unexpected price rows: %+v err=%v", price, err)
	}
	tech, err := src.Technicals(ctx)
	if err != nil || len(tech) != 1 || !math.IsNaN(tech[0].RSI) {
		t.Fatalf("unexpected technicals: %+v err=%v", tech, err)
	}
	earn, err := src.Earnings(ctx)
	if err != nil || len(earn) != 1 || earn[0].EPSActual != 1.1 {
		t.Fatalf("unexpected earnings: %+v err=%v", earn, err)
	}
}

func TestParquetSourceMissingFile(t *testing.T) {
	if _, err := NewParquetSource(t.TempDir(), testFiles).Technicals(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestParquetSourceBadDate(t *testing.T) {
	dir := t.TempDir()
	writeParquet(t, filepath.Join(dir, "technical_indicators.parquet"), []technicalRecord{
		{Ticker: "AAPL", Date: "not a date"},
	})
	if _, err := NewParquetSource(dir, testFiles).Technicals(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestParquetSourceMissingColumn(t *testing.T) {
	type tickerOnly struct {
		Ticker string `parquet:"ticker"`
	}
	type tickerDate struct {
		Ticker string `parquet:"ticker"`
		Date   string `parquet:"date"`
	}
	dir := t.TempDir()
	writeParquet(t, filepath.Join(dir, "all_predictions.parquet"), []tickerOnly{{Ticker: "AAPL"}})
	writeParquet(t, filepath.Join(dir, "earnings.parquet"), []tickerDate{{Ticker: "AAPL", Date: "2024Q1"}})
	writeParquet(t, filepath.Join(dir, "technical_indicators.parquet"), []tickerDate{{Ticker: "AAPL", Date: "2024-01-02"}})
	src := NewParquetSource(dir, testFiles)
	ctx := context.Background()

	if _, err := src.Predictions(ctx); err == nil || !strings.Contains(err.Error(), `missing column "predictions"`) {
		t.Fatalf("expected missing predictions column, got %v", err)
	}
	if _, err := src.Earnings(ctx); err == nil || !strings.Contains(err.Error(), `missing column "Revenue"`) {
		t.Fatalf("expected missing Revenue column, got %v", err)
	}
	if _, err := src.Technicals(ctx); err == nil || !strings.Contains(err.Error(), `missing column "sma"`) {
		t.Fatalf("expected missing sma column, got %v", err)
	}
}

func TestParquetSourcePredictionsWithoutDate(t *testing.T) {
	type undated struct {
		Ticker      string  `parquet:"ticker"`
		Predictions *float64 `parquet:"predictions,optional"`
	}
	dir := t.TempDir()
	writeParquet(t, filepath.Join(dir, "all_predictions.parquet"), []undated{{Ticker: "AAPL", Predictions: f64(0.01)}})
	preds, err := NewParquetSource(dir, testFiles).Predictions(context.Background())
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	if len(preds) != 1 || preds[0].ReturnPercent != 0.01 || !preds[0].Date.IsZero() {
		t.Fatalf("unexpected predictions: %+v", preds)
	}
}
