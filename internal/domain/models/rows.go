package models

import (
	"encoding/json"
	"math"
	"time"
)

// PredictionRow is one aggregated prediction for a ticker. ReturnPercent is
// already expressed in percent (1.25 means 1.25%).
type PredictionRow struct {
	Ticker        string    `json:"ticker"`
	Date          time.Time `json:"date"`
	ReturnPercent float64   `json:"predicted_return_percent"`
}

// MarshalJSON writes a missing date as "" and a NaN value as null.
func (p PredictionRow) MarshalJSON() ([]byte, error) {
	out := struct {
		Ticker        string   `json:"ticker"`
		Date          string   `json:"date"`
		ReturnPercent *float64 `json:"predicted_return_percent"`
	}{Ticker: p.Ticker}
	if !p.Date.IsZero() {
		out.Date = p.Date.Format("2006-01-02")
	}
	if !math.IsNaN(p.ReturnPercent) && !math.IsInf(p.ReturnPercent, 0) {
		v := p.ReturnPercent
		out.ReturnPercent = &v
	}
	return json.Marshal(out)
}

// PriceSeriesRow is one point of a forecast horizon. Close is NaN for dates
// past the last observed close.
type PriceSeriesRow struct {
	Ticker   string
	Date     time.Time
	Close    float64
	Forecast float64
	Lower    float64
	Upper    float64
}

type TechnicalRow struct {
	Ticker string
	Date   time.Time
	SMA    float64
	RSI    float64
}

// EarningsRow keys on a period label rather than a parsed date: upstream files
// use both calendar dates and quarter labels.
type EarningsRow struct {
	Ticker      string
	Date        string
	Revenue     float64
	EPSActual   float64
	EPSEstimate float64
}

// Direction selects which end of the prediction ranking to read.
type Direction string

const (
	Best  Direction = "best"
	Worst Direction = "worst"
)

// StoreStats reports how many rows each table holds after load.
type StoreStats struct {
	Source      string `json:"source"`
	Predictions int    `json:"predictions"`
	PriceSeries int    `json:"price_series"`
	Technicals  int    `json:"technicals"`
	Earnings    int    `json:"earnings"`
	Tickers     int    `json:"tickers"`
}
