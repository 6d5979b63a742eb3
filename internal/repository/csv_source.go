package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	"StockDash/pkg/util"
)

var _ domrepo.TableSource = (*CSVSource)(nil)

// Column names used by the exported dataset files.
const (
	colTicker      = "ticker"
	colDate        = "date"
	colPredictions = "predictions"
	colDS          = "ds"
	colClose       = "y"
	colForecast    = "yhat"
	colLower       = "yhat_lower"
	colUpper       = "yhat_upper"
	colSMA         = "sma"
	colRSI         = "rsi"
	colRevenue     = "Revenue"
	colEPSActual   = "EPS_Actual"
	colEPSEstimate = "EPS_Estimate"
)

// TableFiles names the file (or table) holding each dataset.
type TableFiles struct {
	Predictions string
	PriceSeries string
	Technicals  string
	Earnings    string
}

// CSVSource reads the four datasets from delimited files in one directory.
type CSVSource struct {
	dir   string
	files TableFiles
}

func NewCSVSource(dir string, files TableFiles) *CSVSource {
	return &CSVSource{dir: dir, files: files}
}

func (s *CSVSource) Name() string { return "csv:" + s.dir }

func (s *CSVSource) Close() error { return nil }

func (s *CSVSource) Predictions(ctx context.Context) ([]models.PredictionRow, error) {
	t, err := readCSVTable(ctx, filepath.Join(s.dir, s.files.Predictions))
	if err != nil {
		return nil, err
	}
	idx, err := t.require(colTicker, colPredictions)
	if err != nil {
		return nil, err
	}
	dateIdx := t.optional(colDate)

	out := make([]models.PredictionRow, 0, len(t.rows))
	for i, rec := range t.rows {
		r := models.PredictionRow{Ticker: strings.TrimSpace(rec[idx[0]])}
		if r.ReturnPercent, err = t.float(i, rec, idx[1], colPredictions); err != nil {
			return nil, err
		}
		if dateIdx >= 0 && strings.TrimSpace(rec[dateIdx]) != "" {
			if r.Date, err = t.date(i, rec, dateIdx, colDate); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *CSVSource) PriceSeries(ctx context.Context) ([]models.PriceSeriesRow, error) {
	t, err := readCSVTable(ctx, filepath.Join(s.dir, s.files.PriceSeries))
	if err != nil {
		return nil, err
	}
	idx, err := t.require(colTicker, colDS, colClose, colForecast, colLower, colUpper)
	if err != nil {
		return nil, err
	}

	out := make([]models.PriceSeriesRow, 0, len(t.rows))
	for i, rec := range t.rows {
		r := models.PriceSeriesRow{Ticker: strings.TrimSpace(rec[idx[0]])}
		if r.Date, err = t.date(i, rec, idx[1], colDS); err != nil {
			return nil, err
		}
		if r.Close, err = t.float(i, rec, idx[2], colClose); err != nil {
			return nil, err
		}
		if r.Forecast, err = t.float(i, rec, idx[3], colForecast); err != nil {
			return nil, err
		}
		if r.Lower, err = t.float(i, rec, idx[4], colLower); err != nil {
			return nil, err
		}
		if r.Upper, err = t.float(i, rec, idx[5], colUpper); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *CSVSource) Technicals(ctx context.Context) ([]models.TechnicalRow, error) {
	t, err := readCSVTable(ctx, filepath.Join(s.dir, s.files.Technicals))
	if err != nil {
		return nil, err
	}
	idx, err := t.require(colTicker, colDate, colSMA, colRSI)
	if err != nil {
		return nil, err
	}

	out := make([]models.TechnicalRow, 0, len(t.rows))
	for i, rec := range t.rows {
		r := models.TechnicalRow{Ticker: strings.TrimSpace(rec[idx[0]])}
		if r.Date, err = t.date(i, rec, idx[1], colDate); err != nil {
			return nil, err
		}
		if r.SMA, err = t.float(i, rec, idx[2], colSMA); err != nil {
			return nil, err
		}
		if r.RSI, err = t.float(i, rec, idx[3], colRSI); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *CSVSource) Earnings(ctx context.Context) ([]models.EarningsRow, error) {
	t, err := readCSVTable(ctx, filepath.Join(s.dir, s.files.Earnings))
	if err != nil {
		return nil, err
	}
	idx, err := t.require(colTicker, colDate, colRevenue, colEPSActual, colEPSEstimate)
	if err != nil {
		return nil, err
	}

	out := make([]models.EarningsRow, 0, len(t.rows))
	for i, rec := range t.rows {
		r := models.EarningsRow{
			Ticker: strings.TrimSpace(rec[idx[0]]),
			Date:   strings.TrimSpace(rec[idx[1]]),
		}
		if r.Revenue, err = t.float(i, rec, idx[2], colRevenue); err != nil {
			return nil, err
		}
		if r.EPSActual, err = t.float(i, rec, idx[3], colEPSActual); err != nil {
			return nil, err
		}
		if r.EPSEstimate, err = t.float(i, rec, idx[4], colEPSEstimate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// csvTable is a fully read file with its header indexed by column name.
type csvTable struct {
	path   string
	header map[string]int
	rows   [][]string
}

func readCSVTable(ctx context.Context, path string) (*csvTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	head, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	t := &csvTable{path: path, header: make(map[string]int, len(head))}
	for i, name := range head {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := t.header[name]; !dup {
			t.header[name] = i
		}
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// require returns the indexes of the named columns, failing on the first one
// missing from the header.
func (t *csvTable) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		j, ok := t.header[n]
		if !ok {
			return nil, fmt.Errorf("%s: missing column %q", t.path, n)
		}
		idx[i] = j
	}
	return idx, nil
}

func (t *csvTable) optional(name string) int {
	if j, ok := t.header[name]; ok {
		return j
	}
	return -1
}

// line is the 1-based file line of data row i (the header is line 1).
func line(i int) int { return i + 2 }

func (t *csvTable) float(i int, rec []string, j int, col string) (float64, error) {
	v, err := util.ParseFloatCell(rec[j])
	if err != nil {
		return 0, fmt.Errorf("%s: line %d: column %s: %w", t.path, line(i), col, err)
	}
	return v, nil
}

func (t *csvTable) date(i int, rec []string, j int, col string) (time.Time, error) {
	v, ok := util.ParseDate(rec[j])
	if !ok {
		return time.Time{}, fmt.Errorf("%s: line %d: column %s: invalid date %q", t.path, line(i), col, rec[j])
	}
	return v, nil
}
