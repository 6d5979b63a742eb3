package repository

import (
	"context"
	"errors"

	"StockDash/internal/domain/models"
)

// ErrNotFound is returned when a ticker has no row in a table.
var ErrNotFound = errors.New("not found")

// TableSource reads the four raw dataset tables. Implementations return rows
// in source order; prediction values are returned as stored.
type TableSource interface {
	Name() string
	Predictions(ctx context.Context) ([]models.PredictionRow, error)
	PriceSeries(ctx context.Context) ([]models.PriceSeriesRow, error)
	Technicals(ctx context.Context) ([]models.TechnicalRow, error)
	Earnings(ctx context.Context) ([]models.EarningsRow, error)
	Close() error
}

// DataStore is the read-only view the dashboard renders from. Returned slices
// are shared and must not be modified.
type DataStore interface {
	Tickers() []string
	DefaultTicker() string
	TopPredictions(n int, d models.Direction) []models.PredictionRow
	Prediction(ticker string) (models.PredictionRow, error)
	PriceSeries(ticker string) []models.PriceSeriesRow
	Technicals(ticker string) []models.TechnicalRow
	Earnings(ticker string) []models.EarningsRow
	Stats() models.StoreStats
}

type Metrics interface {
	RecordRender(seconds float64)
	RecordMissing(chart string)
	RecordRows(table string, n int)
	RecordError(kind string)
}
