package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	applogger "StockDash/pkg/logger"
	"StockDash/pkg/util"
)

var _ domrepo.TableSource = (*SQLSource)(nil)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads the four datasets from tables reachable through database/sql
// (sqlite, postgres or clickhouse). Column names match the CSV exports.
type SQLSource struct {
	name   string
	db     *sql.DB
	tables TableFiles
	closer func() error
	l      *applogger.Logger
}

// NewSQLSource validates table names up front; they are interpolated into
// queries and cannot be bound as parameters.
func NewSQLSource(name string, db *sql.DB, tables TableFiles, closer func() error) (*SQLSource, error) {
	for _, t := range []string{tables.Predictions, tables.PriceSeries, tables.Technicals, tables.Earnings} {
		if !identRe.MatchString(t) {
			return nil, fmt.Errorf("invalid table name %q", t)
		}
	}
	return &SQLSource{name: name, db: db, tables: tables, closer: closer, l: applogger.NewNop()}, nil
}

// SetLogger injects a structured logger.
func (s *SQLSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *SQLSource) Name() string { return s.name }

func (s *SQLSource) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// Predictions reads the predictions table. The date column is optional and
// only selected when the table has one.
func (s *SQLSource) Predictions(ctx context.Context) ([]models.PredictionRow, error) {
	cols, err := s.columns(ctx, s.tables.Predictions)
	if err != nil {
		return nil, err
	}
	dated := cols[colDate]
	q := fmt.Sprintf(`SELECT ticker, predictions FROM %s`, s.tables.Predictions)
	if dated {
		q = fmt.Sprintf(`SELECT ticker, predictions, date FROM %s`, s.tables.Predictions)
	}
	var out []models.PredictionRow
	err = s.query(ctx, s.tables.Predictions, q, func(rows *sql.Rows) error {
		var (
			r    models.PredictionRow
			date any
			v    sql.NullFloat64
		)
		dest := []any{&r.Ticker, &v}
		if dated {
			dest = append(dest, &date)
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		if date != nil {
			d, err := toTime(date)
			if err != nil {
				return err
			}
			r.Date = d
		}
		r.ReturnPercent = nullFloat(v)
		out = append(out, r)
		return nil
	})
	return out, err
}

func (s *SQLSource) PriceSeries(ctx context.Context) ([]models.PriceSeriesRow, error) {
	q := fmt.Sprintf(`SELECT ticker, ds, y, yhat, yhat_lower, yhat_upper FROM %s`, s.tables.PriceSeries)
	var out []models.PriceSeriesRow
	err := s.query(ctx, s.tables.PriceSeries, q, func(rows *sql.Rows) error {
		var (
			r                  models.PriceSeriesRow
			date               any
			y, yhat, low, high sql.NullFloat64
		)
		if err := rows.Scan(&r.Ticker, &date, &y, &yhat, &low, &high); err != nil {
			return err
		}
		d, err := toTime(date)
		if err != nil {
			return err
		}
		r.Date = d
		r.Close, r.Forecast, r.Lower, r.Upper = nullFloat(y), nullFloat(yhat), nullFloat(low), nullFloat(high)
		out = append(out, r)
		return nil
	})
	return out, err
}

func (s *SQLSource) Technicals(ctx context.Context) ([]models.TechnicalRow, error) {
	q := fmt.Sprintf(`SELECT ticker, date, sma, rsi FROM %s`, s.tables.Technicals)
	var out []models.TechnicalRow
	err := s.query(ctx, s.tables.Technicals, q, func(rows *sql.Rows) error {
		var (
			r        models.TechnicalRow
			date     any
			sma, rsi sql.NullFloat64
		)
		if err := rows.Scan(&r.Ticker, &date, &sma, &rsi); err != nil {
			return err
		}
		d, err := toTime(date)
		if err != nil {
			return err
		}
		r.Date = d
		r.SMA, r.RSI = nullFloat(sma), nullFloat(rsi)
		out = append(out, r)
		return nil
	})
	return out, err
}

func (s *SQLSource) Earnings(ctx context.Context) ([]models.EarningsRow, error) {
	q := fmt.Sprintf(`SELECT ticker, date, "Revenue", "EPS_Actual", "EPS_Estimate" FROM %s`, s.tables.Earnings)
	var out []models.EarningsRow
	err := s.query(ctx, s.tables.Earnings, q, func(rows *sql.Rows) error {
		var (
			r             models.EarningsRow
			date          any
			rev, act, est sql.NullFloat64
		)
		if err := rows.Scan(&r.Ticker, &date, &rev, &act, &est); err != nil {
			return err
		}
		r.Date = toLabel(date)
		r.Revenue, r.EPSActual, r.EPSEstimate = nullFloat(rev), nullFloat(act), nullFloat(est)
		out = append(out, r)
		return nil
	})
	return out, err
}

func (s *SQLSource) query(ctx context.Context, table, q string, scan func(*sql.Rows) error) error {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("sql source query error", applogger.String("table", table), applogger.Error(err))
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("%s: row %d: %w", table, n, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: rows: %w", table, err)
	}
	s.l.Debug("sql source table read",
		applogger.String("table", table),
		applogger.Int("rows", n),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// columns lists the lower-cased column names of table without reading rows.
func (s *SQLSource) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT 0`, table))
	if err != nil {
		s.l.Error("sql source describe error", applogger.String("table", table), applogger.Error(err))
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[strings.ToLower(n)] = true
	}
	return cols, nil
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// toTime accepts what the drivers hand back for date columns: time.Time from
// clickhouse and postgres, text from sqlite.
func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		if t, ok := util.ParseDate(x); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("invalid date %q", x)
	case []byte:
		return toTime(string(x))
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

func toLabel(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return util.FormatDate(x.UTC())
	case []byte:
		return strings.TrimSpace(string(x))
	case string:
		return strings.TrimSpace(x)
	default:
		return fmt.Sprint(x)
	}
}
