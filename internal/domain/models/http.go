package models

// Requests and responses for the dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type TopRequest struct {
	Direction string `query:"direction" json:"direction" default:"best" validate:"oneof=best worst"`
	N         int    `query:"n" json:"n" default:"5" validate:"gte=1,lte=100"`
}

type PredictionRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required"`
}

type TickersResponse struct {
	Tickers []string `json:"tickers"`
	Default string   `json:"default"`
}

type PredictionResponse struct {
	Prediction PredictionRow `json:"prediction"`
	Text       string        `json:"text"`
}

type TopResponse struct {
	Direction Direction       `json:"direction"`
	Rows      []PredictionRow `json:"rows"`
}
