package usecase

import (
	"errors"
	"fmt"
	"math"
	"time"

	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	applogger "StockDash/pkg/logger"
)

// DashboardOptions are the render settings read from config.
type DashboardOptions struct {
	TopN int
	// TechnicalsCutoff drops technicals rows dated before it. Zero keeps all.
	TechnicalsCutoff time.Time
}

// Dashboard maps a UIState to the six figures and the prediction text. It
// holds no per-request state and is safe for concurrent use.
type Dashboard struct {
	store   domrepo.DataStore
	opts    DashboardOptions
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewDashboard(store domrepo.DataStore, opts DashboardOptions, m domrepo.Metrics, l *applogger.Logger) *Dashboard {
	if opts.TopN <= 0 {
		opts.TopN = 5
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Dashboard{store: store, opts: opts, metrics: m, l: l}
}

// ErrNoValue is returned when a ticker's prediction cell is empty.
var ErrNoValue = errors.New("prediction value missing")

// PredictedReturnText formats the first prediction row for ticker.
func (d *Dashboard) PredictedReturnText(ticker string) (string, error) {
	p, err := d.store.Prediction(ticker)
	if err != nil {
		return "", err
	}
	if math.IsNaN(p.ReturnPercent) {
		return "", fmt.Errorf("%s: %w", ticker, ErrNoValue)
	}
	return fmt.Sprintf("The predicted return of the %s is %.2f%%.", ticker, p.ReturnPercent), nil
}

// FallbackText is shown when no prediction can be formatted for ticker.
func FallbackText(ticker string) string {
	return fmt.Sprintf("No prediction available for %s.", ticker)
}

// Tickers lists the dropdown options and the default selection.
func (d *Dashboard) Tickers() models.TickersResponse {
	return models.TickersResponse{Tickers: d.store.Tickers(), Default: d.store.DefaultTicker()}
}

// Top returns the top-N rows for direction, with n capped at the configured
// top N.
func (d *Dashboard) Top(n int, dir models.Direction) []models.PredictionRow {
	if n <= 0 || n > d.opts.TopN {
		n = d.opts.TopN
	}
	return d.store.TopPredictions(n, dir)
}

func (d *Dashboard) Prediction(ticker string) (models.PredictionResponse, error) {
	p, err := d.store.Prediction(ticker)
	if err != nil {
		return models.PredictionResponse{}, err
	}
	text, err := d.PredictedReturnText(ticker)
	if err != nil {
		text = FallbackText(ticker)
	}
	return models.PredictionResponse{Prediction: p, Text: text}, nil
}

// Stats exposes the store row counts for health checks.
func (d *Dashboard) Stats() models.StoreStats { return d.store.Stats() }

// Render builds the full dashboard for state. An empty ticker selects the
// default ticker. Tables with no rows for the ticker yield empty traces with a
// placeholder note and an entry in Errors; Render itself never fails.
func (d *Dashboard) Render(state models.UIState) models.Dashboard {
	start := time.Now()

	ticker := state.Ticker
	if ticker == "" {
		ticker = d.store.DefaultTicker()
	}

	out := models.Dashboard{Ticker: ticker}
	missing := func(chart, msg string, fig *models.Figure) {
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[chart] = msg
		if fig != nil {
			fig.Layout.Annotations = append(fig.Layout.Annotations, placeholder(msg))
		}
		if d.metrics != nil {
			d.metrics.RecordMissing(chart)
		}
	}

	text, err := d.PredictedReturnText(ticker)
	if err != nil {
		text = FallbackText(ticker)
		missing(models.TextReturn, err.Error(), nil)
	}
	out.PredictedReturnText = text

	best := d.store.TopPredictions(d.opts.TopN, models.Best)
	worst := d.store.TopPredictions(d.opts.TopN, models.Worst)
	out.BestBarChart = rankingBar("Top 5 Best Predictions", colorBest, best)
	out.WorstBarChart = rankingBar("Top 5 Worst Predictions", colorWorst, worst)
	if d.opts.TopN != 5 {
		out.BestBarChart.Layout.Title = title(fmt.Sprintf("Top %d Best Predictions", d.opts.TopN))
		out.WorstBarChart.Layout.Title = title(fmt.Sprintf("Top %d Worst Predictions", d.opts.TopN))
	}
	if len(best) == 0 {
		missing(models.ChartBest, "No prediction data", &out.BestBarChart)
		missing(models.ChartWorst, "No prediction data", &out.WorstBarChart)
	}

	price := d.store.PriceSeries(ticker)
	tech := d.technicals(ticker)
	earn := d.store.Earnings(ticker)

	out.PriceChart = priceChart(ticker, price, tech, state.ShowSMA())
	if len(price) == 0 {
		missing(models.ChartPrice, fmt.Sprintf("No price data for %s", ticker), &out.PriceChart)
	}

	out.RSIChart = rsiChart(ticker, tech)
	if len(tech) == 0 {
		missing(models.ChartRSI, fmt.Sprintf("No technicals data for %s", ticker), &out.RSIChart)
	}

	out.RevenueChart = revenueChart(ticker, earn)
	out.EPSChart = epsChart(ticker, earn)
	if len(earn) == 0 {
		msg := fmt.Sprintf("No earnings data for %s", ticker)
		missing(models.ChartRevenue, msg, &out.RevenueChart)
		missing(models.ChartEPS, msg, &out.EPSChart)
	}

	elapsed := time.Since(start)
	if d.metrics != nil {
		d.metrics.RecordRender(elapsed.Seconds())
	}
	d.l.Debug("dashboard rendered",
		applogger.String("ticker", ticker),
		applogger.Bool("sma", state.ShowSMA()),
		applogger.Int("missing", len(out.Errors)),
		applogger.Duration("duration_ms", elapsed),
	)
	return out
}

// technicals returns the ticker's technicals on or after the cutoff.
func (d *Dashboard) technicals(ticker string) []models.TechnicalRow {
	rows := d.store.Technicals(ticker)
	if d.opts.TechnicalsCutoff.IsZero() {
		return rows
	}
	out := make([]models.TechnicalRow, 0, len(rows))
	for _, r := range rows {
		if !r.Date.Before(d.opts.TechnicalsCutoff) {
			out = append(out, r)
		}
	}
	return out
}
