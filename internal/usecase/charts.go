package usecase

import (
	"fmt"
	"time"

	"StockDash/internal/domain/models"
	"StockDash/pkg/util"
)

// Chart colors.
const (
	colorBest     = "green"
	colorWorst    = "red"
	colorForecast = "orange"
	colorBand     = "lightblue"
	colorRevenue  = "orange"
	colorEstimate = "yellow"
	colorRSIBand  = "lightgrey"
	colorBeat     = "green"
	colorMiss     = "red"
)

const (
	rsiLow  = 30
	rsiHigh = 70
)

func title(s string) *models.Text { return &models.Text{Text: s} }

func axis(s string) *models.Axis { return &models.Axis{Title: title(s)} }

// placeholder is the centered note shown on a chart whose table had no rows.
func placeholder(text string) models.Annotation {
	return models.Annotation{Text: text, XRef: "paper", YRef: "paper", X: 0.5, Y: 0.5, ShowArrow: false}
}

func rankingBar(chartTitle, color string, rows []models.PredictionRow) models.Figure {
	x := make([]string, len(rows))
	y := make(models.Series, len(rows))
	for i, r := range rows {
		x[i] = r.Ticker
		y[i] = r.ReturnPercent
	}
	return models.Figure{
		Data: []models.Trace{{Type: "bar", X: x, Y: y, Marker: &models.Marker{Color: color}}},
		Layout: models.Layout{
			Title: title(chartTitle),
			YAxis: axis("Predictions (%)"),
		},
	}
}

func lineTrace(name string, x []string, y models.Series, color string) models.Trace {
	t := models.Trace{Type: "scatter", Mode: "lines", Name: name, X: x, Y: y}
	if color != "" {
		t.Line = &models.Line{Color: color}
	}
	return t
}

func priceChart(ticker string, rows []models.PriceSeriesRow, tech []models.TechnicalRow, withSMA bool) models.Figure {
	x := make([]string, len(rows))
	closeY := make(models.Series, len(rows))
	forecast := make(models.Series, len(rows))
	lower := make(models.Series, len(rows))
	upper := make(models.Series, len(rows))
	for i, r := range rows {
		x[i] = util.FormatDate(r.Date)
		closeY[i] = r.Close
		forecast[i] = r.Forecast
		lower[i] = r.Lower
		upper[i] = r.Upper
	}

	band := lineTrace("Upper Bound", x, upper, colorBand)
	band.Fill = "tonexty"

	fig := models.Figure{
		Data: []models.Trace{
			lineTrace("Close Price", x, closeY, ""),
			lineTrace("Forecast", x, forecast, colorForecast),
			lineTrace("Lower Bound", x, lower, colorBand),
			band,
		},
		Layout: models.Layout{
			Title: title(fmt.Sprintf("Price Chart for %s", ticker)),
			XAxis: axis("Date"),
			YAxis: axis("Price"),
		},
	}
	if withSMA {
		tx, sma, _ := technicalSeries(tech)
		fig.Data = append(fig.Data, lineTrace("SMA", tx, sma, ""))
	}
	return fig
}

func technicalSeries(rows []models.TechnicalRow) (x []string, sma, rsi models.Series) {
	x = make([]string, len(rows))
	sma = make(models.Series, len(rows))
	rsi = make(models.Series, len(rows))
	for i, r := range rows {
		x[i] = util.FormatDate(r.Date)
		sma[i] = r.SMA
		rsi[i] = r.RSI
	}
	return x, sma, rsi
}

// rsiChart draws the RSI line over a band at [30,70]. The band spans the
// earliest to latest technicals date, or the full plot width when there are
// none.
func rsiChart(ticker string, rows []models.TechnicalRow) models.Figure {
	x, _, rsi := technicalSeries(rows)

	shape := models.Shape{
		Type:      "rect",
		XRef:      "paper",
		YRef:      "y",
		X0:        0,
		X1:        1,
		Y0:        rsiLow,
		Y1:        rsiHigh,
		FillColor: colorRSIBand,
		Opacity:   0.2,
		Layer:     "below",
	}
	if lo, hi, ok := dateBounds(rows); ok {
		shape.XRef = "x"
		shape.X0 = util.FormatDate(lo)
		shape.X1 = util.FormatDate(hi)
	}

	yAxis := axis("RSI Value")
	yAxis.Range = []float64{0, 100}
	return models.Figure{
		Data: []models.Trace{lineTrace("RSI", x, rsi, "")},
		Layout: models.Layout{
			Title:  title(fmt.Sprintf("RSI for %s", ticker)),
			XAxis:  axis("Date"),
			YAxis:  yAxis,
			Shapes: []models.Shape{shape},
		},
	}
}

func dateBounds(rows []models.TechnicalRow) (lo, hi time.Time, ok bool) {
	for i, r := range rows {
		if i == 0 || r.Date.Before(lo) {
			lo = r.Date
		}
		if i == 0 || r.Date.After(hi) {
			hi = r.Date
		}
	}
	return lo, hi, len(rows) > 0
}

func revenueChart(ticker string, rows []models.EarningsRow) models.Figure {
	x := make([]string, len(rows))
	y := make(models.Series, len(rows))
	for i, r := range rows {
		x[i] = r.Date
		y[i] = r.Revenue
	}
	return models.Figure{
		Data: []models.Trace{{Type: "bar", Name: "Revenue", X: x, Y: y, Marker: &models.Marker{Color: colorRevenue}}},
		Layout: models.Layout{
			Title: title(fmt.Sprintf("Revenue for %s", ticker)),
			XAxis: axis("Quarter"),
			YAxis: axis("Revenue"),
		},
	}
}

// epsChart colors a bar red when the actual EPS did not beat the estimate.
// A missing value never compares as a miss.
func epsChart(ticker string, rows []models.EarningsRow) models.Figure {
	x := make([]string, len(rows))
	actual := make(models.Series, len(rows))
	estimate := make(models.Series, len(rows))
	colors := make([]string, len(rows))
	for i, r := range rows {
		x[i] = r.Date
		actual[i] = r.EPSActual
		estimate[i] = r.EPSEstimate
		colors[i] = colorBeat
		if r.EPSActual <= r.EPSEstimate {
			colors[i] = colorMiss
		}
	}
	return models.Figure{
		Data: []models.Trace{
			{Type: "bar", Name: "EPS Actual", X: x, Y: actual, Marker: &models.Marker{Color: colors}},
			{Type: "scatter", Mode: "lines+markers", Name: "EPS Estimate", X: x, Y: estimate, Marker: &models.Marker{Color: colorEstimate}},
		},
		Layout: models.Layout{
			Title:   title(fmt.Sprintf("EPS for %s", ticker)),
			XAxis:   axis("Quarter"),
			YAxis:   axis("EPS Values"),
			BarMode: "group",
		},
	}
}
