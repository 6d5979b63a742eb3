package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	applogger "StockDash/pkg/logger"

	"github.com/shopspring/decimal"
)

var _ domrepo.DataStore = (*Store)(nil)

// StoreOptions controls how raw tables are turned into the in-memory store.
type StoreOptions struct {
	// PredictionsInPercent skips the fraction→percent conversion.
	PredictionsInPercent bool
}

// Store holds the four dataset tables plus the prediction ranking. It is built
// once by Load and never mutated afterwards, so it is safe for concurrent reads.
type Store struct {
	source      string
	predictions []models.PredictionRow
	tickers     []string
	firstPred   map[string]int

	price    map[string][]models.PriceSeriesRow
	tech     map[string][]models.TechnicalRow
	earnings map[string][]models.EarningsRow

	// ranked holds non-NaN predictions sorted descending, ties in input order.
	ranked []models.PredictionRow
	// rankedAsc is the ascending counterpart, ties in input order.
	rankedAsc []models.PredictionRow

	stats models.StoreStats
}

// Load reads every table from src and builds the store. Any failure is fatal
// for startup; no partial store is returned.
func Load(ctx context.Context, src domrepo.TableSource, opts StoreOptions, l *applogger.Logger, m domrepo.Metrics) (*Store, error) {
	if l == nil {
		l = applogger.NewNop()
	}
	start := time.Now()

	preds, err := src.Predictions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}
	price, err := src.PriceSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load price series: %w", err)
	}
	tech, err := src.Technicals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load technicals: %w", err)
	}
	earn, err := src.Earnings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load earnings: %w", err)
	}

	if !opts.PredictionsInPercent {
		for i := range preds {
			preds[i].ReturnPercent = fractionToPercent(preds[i].ReturnPercent)
		}
	}

	s := New(src.Name(), preds, price, tech, earn)

	if m != nil {
		m.RecordRows("predictions", s.stats.Predictions)
		m.RecordRows("price_series", s.stats.PriceSeries)
		m.RecordRows("technicals", s.stats.Technicals)
		m.RecordRows("earnings", s.stats.Earnings)
	}
	l.Info("data store loaded",
		applogger.String("source", s.source),
		applogger.Int("predictions", s.stats.Predictions),
		applogger.Int("price_series", s.stats.PriceSeries),
		applogger.Int("technicals", s.stats.Technicals),
		applogger.Int("earnings", s.stats.Earnings),
		applogger.Int("tickers", s.stats.Tickers),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return s, nil
}

// New builds a store from rows that are already in their final form.
func New(source string, preds []models.PredictionRow, price []models.PriceSeriesRow, tech []models.TechnicalRow, earn []models.EarningsRow) *Store {
	s := &Store{
		source:      source,
		predictions: preds,
		firstPred:   make(map[string]int),
		price:       make(map[string][]models.PriceSeriesRow),
		tech:        make(map[string][]models.TechnicalRow),
		earnings:    make(map[string][]models.EarningsRow),
	}

	for i, p := range preds {
		if _, ok := s.firstPred[p.Ticker]; ok {
			continue
		}
		s.firstPred[p.Ticker] = i
		s.tickers = append(s.tickers, p.Ticker)
	}
	for _, r := range price {
		s.price[r.Ticker] = append(s.price[r.Ticker], r)
	}
	for _, r := range tech {
		s.tech[r.Ticker] = append(s.tech[r.Ticker], r)
	}
	for _, r := range earn {
		s.earnings[r.Ticker] = append(s.earnings[r.Ticker], r)
	}

	s.ranked = make([]models.PredictionRow, 0, len(preds))
	for _, p := range preds {
		if !math.IsNaN(p.ReturnPercent) {
			s.ranked = append(s.ranked, p)
		}
	}
	s.rankedAsc = append([]models.PredictionRow(nil), s.ranked...)
	sort.SliceStable(s.ranked, func(i, j int) bool {
		return s.ranked[i].ReturnPercent > s.ranked[j].ReturnPercent
	})
	sort.SliceStable(s.rankedAsc, func(i, j int) bool {
		return s.rankedAsc[i].ReturnPercent < s.rankedAsc[j].ReturnPercent
	})

	s.stats = models.StoreStats{
		Source:      source,
		Predictions: len(preds),
		PriceSeries: len(price),
		Technicals:  len(tech),
		Earnings:    len(earn),
		Tickers:     len(s.tickers),
	}
	return s
}

// Tickers returns distinct prediction tickers in load order.
func (s *Store) Tickers() []string { return s.tickers }

// DefaultTicker is the first ticker in load order, or "" for an empty store.
func (s *Store) DefaultTicker() string {
	if len(s.tickers) == 0 {
		return ""
	}
	return s.tickers[0]
}

// TopPredictions returns at most n rows from the best or worst end of the
// ranking. Equal values keep their input order.
func (s *Store) TopPredictions(n int, d models.Direction) []models.PredictionRow {
	src := s.ranked
	if d == models.Worst {
		src = s.rankedAsc
	}
	if n > len(src) {
		n = len(src)
	}
	if n <= 0 {
		return nil
	}
	return src[:n:n]
}

// Prediction returns the first prediction row for ticker.
func (s *Store) Prediction(ticker string) (models.PredictionRow, error) {
	i, ok := s.firstPred[ticker]
	if !ok {
		return models.PredictionRow{}, fmt.Errorf("prediction for %q: %w", ticker, domrepo.ErrNotFound)
	}
	return s.predictions[i], nil
}

func (s *Store) PriceSeries(ticker string) []models.PriceSeriesRow { return s.price[ticker] }

func (s *Store) Technicals(ticker string) []models.TechnicalRow { return s.tech[ticker] }

func (s *Store) Earnings(ticker string) []models.EarningsRow { return s.earnings[ticker] }

func (s *Store) Stats() models.StoreStats { return s.stats }

// fractionToPercent converts 0.0123 to 1.23, rounding half away from zero.
func fractionToPercent(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Shift(2).Round(2).Float64()
	return f
}
