package repository

import (
	"context"
	"fmt"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	"StockDash/pkg/util"

	"github.com/parquet-go/parquet-go"
)

var _ domrepo.TableSource = (*ParquetSource)(nil)

// Parquet on-disk schemas. Column names match the CSV exports; dates are
// stored as strings, numeric columns are nullable.

type predictionRecord struct {
	Ticker      string   `parquet:"ticker"`
	Date        *string  `parquet:"date,optional"`
	Predictions *float64 `parquet:"predictions,optional"`
}

type priceSeriesRecord struct {
	Ticker    string   `parquet:"ticker"`
	DS        string   `parquet:"ds"`
	Y         *float64 `parquet:"y,optional"`
	YHat      *float64 `parquet:"yhat,optional"`
	YHatLower *float64 `parquet:"yhat_lower,optional"`
	YHatUpper *float64 `parquet:"yhat_upper,optional"`
}

type technicalRecord struct {
	Ticker string   `parquet:"ticker"`
	Date   string   `parquet:"date"`
	SMA    *float64 `parquet:"sma,optional"`
	RSI    *float64 `parquet:"rsi,optional"`
}

type earningsRecord struct {
	Ticker      string   `parquet:"ticker"`
	Date        string   `parquet:"date"`
	Revenue     *float64 `parquet:"Revenue,optional"`
	EPSActual   *float64 `parquet:"EPS_Actual,optional"`
	EPSEstimate *float64 `parquet:"EPS_Estimate,optional"`
}

// ParquetSource reads the four datasets from .parquet files in one directory.
// File names are the configured CSV names with the extension swapped.
type ParquetSource struct {
	dir   string
	files TableFiles
}

func NewParquetSource(dir string, files TableFiles) *ParquetSource {
	return &ParquetSource{dir: dir, files: files}
}

func (s *ParquetSource) Name() string { return "parquet:" + s.dir }

func (s *ParquetSource) Close() error { return nil }

func (s *ParquetSource) path(name string) string {
	ext := filepath.Ext(name)
	return filepath.Join(s.dir, strings.TrimSuffix(name, ext)+".parquet")
}

func (s *ParquetSource) Predictions(ctx context.Context) ([]models.PredictionRow, error) {
	recs, err := readParquet[predictionRecord](ctx, s.path(s.files.Predictions), colTicker, colPredictions)
	if err != nil {
		return nil, err
	}
	out := make([]models.PredictionRow, 0, len(recs))
	for i, r := range recs {
		row := models.PredictionRow{Ticker: r.Ticker, ReturnPercent: nullable(r.Predictions)}
		if r.Date != nil && *r.Date != "" {
			d, ok := util.ParseDate(*r.Date)
			if !ok {
				return nil, fmt.Errorf("%s: row %d: invalid date %q", s.files.Predictions, i, *r.Date)
			}
			row.Date = d
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *ParquetSource) PriceSeries(ctx context.Context) ([]models.PriceSeriesRow, error) {
	recs, err := readParquet[priceSeriesRecord](ctx, s.path(s.files.PriceSeries),
		colTicker, colDS, colClose, colForecast, colLower, colUpper)
	if err != nil {
		return nil, err
	}
	out := make([]models.PriceSeriesRow, 0, len(recs))
	for i, r := range recs {
		d, ok := util.ParseDate(r.DS)
		if !ok {
			return nil, fmt.Errorf("%s: row %d: invalid date %q", s.files.PriceSeries, i, r.DS)
		}
		out = append(out, models.PriceSeriesRow{
			Ticker:   r.Ticker,
			Date:     d,
			Close:    nullable(r.Y),
			Forecast: nullable(r.YHat),
			Lower:    nullable(r.YHatLower),
			Upper:    nullable(r.YHatUpper),
		})
	}
	return out, nil
}

func (s *ParquetSource) Technicals(ctx context.Context) ([]models.TechnicalRow, error) {
	recs, err := readParquet[technicalRecord](ctx, s.path(s.files.Technicals), colTicker, colDate, colSMA, colRSI)
	if err != nil {
		return nil, err
	}
	out := make([]models.TechnicalRow, 0, len(recs))
	for i, r := range recs {
		d, ok := util.ParseDate(r.Date)
		if !ok {
			return nil, fmt.Errorf("%s: row %d: invalid date %q", s.files.Technicals, i, r.Date)
		}
		out = append(out, models.TechnicalRow{Ticker: r.Ticker, Date: d, SMA: nullable(r.SMA), RSI: nullable(r.RSI)})
	}
	return out, nil
}

func (s *ParquetSource) Earnings(ctx context.Context) ([]models.EarningsRow, error) {
	recs, err := readParquet[earningsRecord](ctx, s.path(s.files.Earnings),
		colTicker, colDate, colRevenue, colEPSActual, colEPSEstimate)
	if err != nil {
		return nil, err
	}
	out := make([]models.EarningsRow, 0, len(recs))
	for _, r := range recs {
		out = append(out, models.EarningsRow{
			Ticker:      r.Ticker,
			Date:        r.Date,
			Revenue:     nullable(r.Revenue),
			EPSActual:   nullable(r.EPSActual),
			EPSEstimate: nullable(r.EPSEstimate),
		})
	}
	return out, nil
}

// readParquet loads every row of path into T. The reader fills columns absent
// from the file with zero values, so required columns are checked against the
// file schema first.
func readParquet[T any](ctx context.Context, path string, required ...string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	file, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	schema := file.Schema()
	for _, col := range required {
		if _, ok := schema.Lookup(col); !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	rows := make([]T, file.NumRows())
	reader := parquet.NewGenericReader[T](file)
	defer reader.Close()
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows[:n], nil
}

func nullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
